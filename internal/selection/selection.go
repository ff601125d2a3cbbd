// Package selection holds a user's in-progress choice of tickets for one
// event occurrence.  The live shape follows the occurrence's seating
// mode: tier quantities for general admission, a seat set for seated.
package selection

import (
	"fmt"
	"sort"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// Selection is a closed union: *TierQuantities or *SeatSet.
type Selection interface {
	SeatingMode() model.SeatingMode
	// Count is the number of tickets selected.
	Count() int
	// Clone returns an independent copy.
	Clone() Selection
	isSelection()
}

// New returns an empty selection of the shape mode requires.
func New(mode model.SeatingMode) (Selection, error) {
	switch mode {
	case model.GeneralAdmissionMode:
		return &TierQuantities{}, nil
	case model.SeatedMode:
		return &SeatSet{}, nil
	default:
		return nil, fmt.Errorf("selection: %w: %q", model.ErrUnknownSeatingMode, mode)
	}
}

// TierQuantities maps tier id to a quantity of at least 1.  The zero
// value is empty and ready to use.
type TierQuantities struct {
	q map[int64]int
}

func (*TierQuantities) SeatingMode() model.SeatingMode { return model.GeneralAdmissionMode }
func (*TierQuantities) isSelection() {}

// Set stores quantity for tierID clamped to [0, remaining] and returns the
// stored value.  Zero removes the entry.  A tier missing from avail has
// nothing remaining.
func (t *TierQuantities) Set(avail *model.GeneralAdmission, tierID int64, quantity int) int {
	remaining := 0
	if avail != nil {
		if tier, ok := avail.Tier(tierID); ok {
			remaining = tier.Remaining
		}
	}
	quantity = clamp(quantity, 0, remaining)
	if quantity == 0 {
		delete(t.q, tierID)
		return 0
	}
	if t.q == nil {
		t.q = make(map[int64]int)
	}
	t.q[tierID] = quantity
	return quantity
}

// Quantity returns the selected quantity for tierID.
func (t *TierQuantities) Quantity(tierID int64) int { return t.q[tierID] }

func (t *TierQuantities) Count() int {
	n := 0
	for _, q := range t.q {
		n += q
	}
	return n
}

// Lines returns the selection as request lines in ascending tier id.
func (t *TierQuantities) Lines() []model.TierLine {
	out := make([]model.TierLine, 0, len(t.q))
	for id, q := range t.q {
		out = append(out, model.TierLine{TicketTypeID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketTypeID < out[j].TicketTypeID })
	return out
}

func (t *TierQuantities) Clone() Selection {
	c := &TierQuantities{}
	for id, q := range t.q {
		if c.q == nil {
			c.q = make(map[int64]int, len(t.q))
		}
		c.q[id] = q
	}
	return c
}

// SeatSet is a set of selected seat ids.  The zero value is empty.
type SeatSet struct {
	ids map[int64]struct{}
}

func (*SeatSet) SeatingMode() model.SeatingMode { return model.SeatedMode }
func (*SeatSet) isSelection() {}

// Toggle flips seatID's membership and reports whether it is selected
// afterwards.  A seat that avail does not list as available is left
// untouched, selected or not.
func (s *SeatSet) Toggle(avail *model.SeatedAvailability, seatID int64) bool {
	_, selected := s.ids[seatID]
	if avail == nil {
		return selected
	}
	seat, ok := avail.Seat(seatID)
	if !ok || !seat.Available {
		return selected
	}
	if selected {
		delete(s.ids, seatID)
		return false
	}
	if s.ids == nil {
		s.ids = make(map[int64]struct{})
	}
	s.ids[seatID] = struct{}{}
	return true
}

// Deselect removes seatID regardless of availability.  After a conflict
// resync a selected seat may be taken; this is how the user drops it.
func (s *SeatSet) Deselect(seatID int64) {
	delete(s.ids, seatID)
}

// Has reports whether seatID is selected.
func (s *SeatSet) Has(seatID int64) bool {
	_, ok := s.ids[seatID]
	return ok
}

func (s *SeatSet) Count() int { return len(s.ids) }

// IDs returns the selected seat ids in ascending order.
func (s *SeatSet) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *SeatSet) Clone() Selection {
	c := &SeatSet{}
	for id := range s.ids {
		if c.ids == nil {
			c.ids = make(map[int64]struct{}, len(s.ids))
		}
		c.ids[id] = struct{}{}
	}
	return c
}

// TotalPrice sums the live shape against avail: quantity times tier price,
// or the price of each selected seat found in avail.  A shape mismatch
// totals zero.
func TotalPrice(sel Selection, avail model.Availability) float64 {
	var total float64
	switch sel := sel.(type) {
	case *TierQuantities:
		ga, ok := avail.(*model.GeneralAdmission)
		if !ok {
			return 0
		}
		for _, tier := range ga.Tiers {
			total += float64(sel.q[tier.ID]) * tier.Price
		}
	case *SeatSet:
		seated, ok := avail.(*model.SeatedAvailability)
		if !ok {
			return 0
		}
		for _, seat := range seated.Seats() {
			if sel.Has(seat.SeatID) {
				total += seat.Price
			}
		}
	}
	return total
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
