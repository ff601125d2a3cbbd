package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownSeatingMode is returned when an availability payload carries a
// seatingMode tag other than GA or SEATED.
var ErrUnknownSeatingMode = errors.New("unknown seating mode")

// Availability is the snapshot of sellable inventory for one occurrence.
// It is a closed union: *GeneralAdmission or *SeatedAvailability.  A
// snapshot is never patched in place; a resync replaces it.
type Availability interface {
	SeatingMode() SeatingMode
	isAvailability()
}

// Tier is a general-admission ticket category.
type Tier struct {
	ID        int64    `json:"id"`
	Name      TierName `json:"name"`
	Price     float64  `json:"price"`
	Remaining int      `json:"remaining"`
}

// GeneralAdmission is the GA variant of Availability.
type GeneralAdmission struct {
	Tiers []Tier
}

func (*GeneralAdmission) SeatingMode() SeatingMode { return GeneralAdmissionMode }
func (*GeneralAdmission) isAvailability() {}

// Tier returns the tier with the given id.
func (g *GeneralAdmission) Tier(id int64) (Tier, bool) {
	for _, t := range g.Tiers {
		if t.ID == id {
			return t, true
		}
	}
	return Tier{}, false
}

func (g *GeneralAdmission) MarshalJSON() ([]byte, error) {
	tiers := g.Tiers
	if tiers == nil {
		tiers = []Tier{}
	}
	return json.Marshal(struct {
		SeatingMode SeatingMode `json:"seatingMode"`
		Tiers       []Tier      `json:"tiers"`
	}{GeneralAdmissionMode, tiers})
}

// Seat is one reservable seat.  TicketTypeID is optional on the wire; when
// it is missing the booking builder has to resolve the tier some other way.
type Seat struct {
	SeatID       int64    `json:"seatId"`
	Label        string   `json:"label"`
	TicketType   TierName `json:"ticketType"`
	TicketTypeID *int64   `json:"ticketTypeId,omitempty"`
	Price        float64  `json:"price"`
	Available    bool     `json:"available"`
}

// SeatRow is a labelled row of seats.
type SeatRow struct {
	Row   string `json:"row"`
	Seats []Seat `json:"seats"`
}

// SeatSection is a named block of rows.
type SeatSection struct {
	Section string    `json:"section"`
	Rows    []SeatRow `json:"rows"`
}

// SeatedAvailability is the SEATED variant of Availability.
type SeatedAvailability struct {
	Sections []SeatSection
}

func (*SeatedAvailability) SeatingMode() SeatingMode { return SeatedMode }
func (*SeatedAvailability) isAvailability() {}

// Seat returns the seat with the given id.
func (s *SeatedAvailability) Seat(id int64) (Seat, bool) {
	for _, sec := range s.Sections {
		for _, row := range sec.Rows {
			for _, seat := range row.Seats {
				if seat.SeatID == id {
					return seat, true
				}
			}
		}
	}
	return Seat{}, false
}

// Seats flattens the snapshot in section, row, seat order.
func (s *SeatedAvailability) Seats() []Seat {
	var out []Seat
	for _, sec := range s.Sections {
		for _, row := range sec.Rows {
			out = append(out, row.Seats...)
		}
	}
	return out
}

func (s *SeatedAvailability) MarshalJSON() ([]byte, error) {
	sections := s.Sections
	if sections == nil {
		sections = []SeatSection{}
	}
	return json.Marshal(struct {
		SeatingMode SeatingMode   `json:"seatingMode"`
		Sections    []SeatSection `json:"sections"`
	}{SeatedMode, sections})
}

// DecodeAvailability decodes an availability payload, dispatching on its
// seatingMode tag.
func DecodeAvailability(data []byte) (Availability, error) {
	var probe struct {
		SeatingMode SeatingMode `json:"seatingMode"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}
	switch probe.SeatingMode {
	case GeneralAdmissionMode:
		var body struct {
			Tiers []Tier `json:"tiers"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("decode GA availability: %w", err)
		}
		return &GeneralAdmission{Tiers: body.Tiers}, nil
	case SeatedMode:
		var body struct {
			Sections []SeatSection `json:"sections"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("decode seated availability: %w", err)
		}
		return &SeatedAvailability{Sections: body.Sections}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeatingMode, probe.SeatingMode)
	}
}
