package fakeapi

import (
	"fmt"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// Demo catalogue identifiers.
const (
	SeedGADateID     int64 = 1 // general admission, tier ids 1..3
	SeedSeatedDateID int64 = 2 // seated, tier ids 11..13 carried on every seat
	SeedLegacyDateID int64 = 3 // seated, tier ids 1..3 never sent

	SeedUserEmail    = "demo@ticketbooth.test"
	SeedUserPassword = "demo-password"
)

var seedPrices = map[model.TierName]float64{
	model.TierVIP:      120,
	model.TierFrontRow: 80,
	model.TierGA:       40,
}

// Seed loads the demo catalogue and the demo account.
func (s *Server) Seed() error {
	s.AddEvent(model.Event{ID: 1, Slug: "harbour-lights", Title: "Harbour Lights Festival", Description: "An evening of music on the quay."})
	s.AddEvent(model.Event{ID: 2, Slug: "the-tempest", Title: "The Tempest", Description: "Shakespeare in the round."})

	s.AddGADate(model.EventOccurrence{
		ID:    SeedGADateID,
		Event: model.EventSummary{ID: 1, Title: "Harbour Lights Festival", Description: "An evening of music on the quay."},
		Date:  "2026-11-20T19:30:00Z",
		Venue: model.Venue{ID: 1, Name: "Quayside Arena", Capacity: 130},
	}, []model.Tier{
		{ID: 1, Name: model.TierVIP, Price: seedPrices[model.TierVIP], Remaining: 10},
		{ID: 2, Name: model.TierFrontRow, Price: seedPrices[model.TierFrontRow], Remaining: 20},
		{ID: 3, Name: model.TierGA, Price: seedPrices[model.TierGA], Remaining: 100},
	})

	tempest := model.EventSummary{ID: 2, Title: "The Tempest", Description: "Shakespeare in the round."}
	venue := model.Venue{ID: 2, Name: "Globe Hall", Capacity: 12}

	seatedIDs := map[model.TierName]int64{model.TierVIP: 11, model.TierFrontRow: 12, model.TierGA: 13}
	s.AddSeatedDate(model.EventOccurrence{ID: SeedSeatedDateID, Event: tempest, Date: "2026-12-04T20:00:00Z", Venue: venue},
		seedSections(200, seatedIDs), seatedIDs, false)

	legacyIDs := map[model.TierName]int64{model.TierVIP: 1, model.TierFrontRow: 2, model.TierGA: 3}
	s.AddSeatedDate(model.EventOccurrence{ID: SeedLegacyDateID, Event: tempest, Date: "2026-12-05T20:00:00", Venue: venue},
		seedSections(300, legacyIDs), legacyIDs, true)

	if _, err := s.AddUser(SeedUserEmail, SeedUserPassword, "Demo", "User"); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	return nil
}

// seedSections builds one section with rows A (VIP), B (FRONT_ROW) and
// C (GA) of four seats each.  Seat ids start at base+1.
func seedSections(base int64, tierIDs map[model.TierName]int64) []model.SeatSection {
	rows := []struct {
		label string
		tier  model.TierName
	}{
		{"A", model.TierVIP},
		{"B", model.TierFrontRow},
		{"C", model.TierGA},
	}
	sec := model.SeatSection{Section: "Stalls"}
	id := base
	for _, r := range rows {
		row := model.SeatRow{Row: r.label}
		for n := 1; n <= 4; n++ {
			id++
			tid := tierIDs[r.tier]
			row.Seats = append(row.Seats, model.Seat{
				SeatID:       id,
				Label:        fmt.Sprintf("%s%d", r.label, n),
				TicketType:   r.tier,
				TicketTypeID: &tid,
				Price:        seedPrices[r.tier],
				Available:    true,
			})
		}
		sec.Rows = append(sec.Rows, row)
	}
	return []model.SeatSection{sec}
}
