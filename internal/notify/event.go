// Package notify publishes booking outcomes to RabbitMQ so other tools can
// log or react to them, and consumes them back for display.
package notify

import (
	"time"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// Routing keys on the booking exchange.
const (
	KeyBookingConfirmed = "booking.confirmed"
	KeyBookingConflict  = "booking.conflict"
)

// BookingConfirmedEvent is published after the server accepts a booking.
type BookingConfirmedEvent struct {
	OrderID      int64             `json:"order_id"`
	EventDateID  int64             `json:"event_date_id"`
	EventTitle   string            `json:"event_title"`
	VenueName    string            `json:"venue_name"`
	StartsAt     string            `json:"starts_at"`
	SeatingMode  model.SeatingMode `json:"seating_mode"`
	UserID       int64             `json:"user_id"`
	CustomerName string            `json:"customer_name"`
	Tickets      int               `json:"tickets"`
	SeatLabels   []string          `json:"seats,omitempty"`
	TotalAmount  float64           `json:"total_amount"`
	ConfirmedAt  string            `json:"confirmed_at"`
}

// BookingConflictEvent is published when a booking is rejected for lack
// of inventory.
type BookingConflictEvent struct {
	EventDateID int64             `json:"event_date_id"`
	EventTitle  string            `json:"event_title"`
	SeatingMode model.SeatingMode `json:"seating_mode"`
	UserID      int64             `json:"user_id"`
	Reason      string            `json:"reason"`
	Message     string            `json:"message"`
	Requested   int               `json:"requested"`
	OccurredAt  string            `json:"occurred_at"`
}

// NewBookingConfirmed builds the event for a confirmed booking.
func NewBookingConfirmed(occ model.EventOccurrence, req model.BookingRequest, conf model.BookingConfirmation, at time.Time) BookingConfirmedEvent {
	hdr := req.Header()
	ev := BookingConfirmedEvent{
		OrderID:      conf.OrderID,
		EventDateID:  occ.ID,
		EventTitle:   occ.Event.Title,
		VenueName:    occ.Venue.Name,
		StartsAt:     occ.Date,
		SeatingMode:  req.SeatingMode(),
		UserID:       hdr.UserID,
		CustomerName: hdr.CustomerName,
		Tickets:      len(conf.Tickets),
		TotalAmount:  conf.TotalAmount,
		ConfirmedAt:  at.UTC().Format(time.RFC3339),
	}
	for _, t := range conf.Tickets {
		if t.SeatLabel != nil {
			ev.SeatLabels = append(ev.SeatLabels, *t.SeatLabel)
		}
	}
	return ev
}

// NewBookingConflict builds the event for a rejected booking.
func NewBookingConflict(occ model.EventOccurrence, req model.BookingRequest, reason, message string, at time.Time) BookingConflictEvent {
	return BookingConflictEvent{
		EventDateID: occ.ID,
		EventTitle:  occ.Event.Title,
		SeatingMode: req.SeatingMode(),
		UserID:      req.Header().UserID,
		Reason:      reason,
		Message:     message,
		Requested:   requested(req),
		OccurredAt:  at.UTC().Format(time.RFC3339),
	}
}

func requested(req model.BookingRequest) int {
	switch r := req.(type) {
	case *model.GABookingRequest:
		n := 0
		for _, l := range r.Tiers {
			n += l.Quantity
		}
		return n
	case *model.SeatedBookingRequest:
		return len(r.Seats)
	}
	return 0
}
