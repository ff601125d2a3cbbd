package notify

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticketbooth/internal/booking"
	"github.com/iliyamo/ticketbooth/internal/model"
)

var (
	_ booking.EventSink = (*Publisher)(nil)
	_ booking.EventSink = Nop{}
)

func occurrence() model.EventOccurrence {
	return model.EventOccurrence{
		ID:          2,
		Event:       model.EventSummary{ID: 2, Title: "The Tempest"},
		Date:        "2026-12-04T20:00:00Z",
		Venue:       model.Venue{Name: "Globe Hall"},
		SeatingMode: model.SeatedMode,
	}
}

func TestNewBookingConfirmed(t *testing.T) {
	label := "A1"
	req := &model.SeatedBookingRequest{
		BookingHeader: model.BookingHeader{EventDateID: 2, CustomerName: "Ada", UserID: 7},
		Seats:         []model.SeatLine{{SeatID: 201, TicketTypeID: 11}},
	}
	conf := model.BookingConfirmation{OrderID: 1000, TotalAmount: 120, Tickets: []model.IssuedTicket{{ID: 1, SeatLabel: &label}}}
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	ev := NewBookingConfirmed(occurrence(), req, conf, at)
	assert.Equal(t, BookingConfirmedEvent{
		OrderID:      1000,
		EventDateID:  2,
		EventTitle:   "The Tempest",
		VenueName:    "Globe Hall",
		StartsAt:     "2026-12-04T20:00:00Z",
		SeatingMode:  model.SeatedMode,
		UserID:       7,
		CustomerName: "Ada",
		Tickets:      1,
		SeatLabels:   []string{"A1"},
		TotalAmount:  120,
		ConfirmedAt:  "2026-10-01T12:00:00Z",
	}, ev)
}

func TestNewBookingConflictCountsRequested(t *testing.T) {
	req := &model.GABookingRequest{
		BookingHeader: model.BookingHeader{EventDateID: 1, UserID: 7},
		Tiers:         []model.TierLine{{TicketTypeID: 1, Quantity: 2}, {TicketTypeID: 3, Quantity: 4}},
	}
	ev := NewBookingConflict(occurrence(), req, booking.ReasonInsufficientInventory, "sold out", time.Now())
	assert.Equal(t, 6, ev.Requested)
	assert.Equal(t, model.GeneralAdmissionMode, ev.SeatingMode)
	assert.Equal(t, booking.ReasonInsufficientInventory, ev.Reason)
}

// Requires a broker; set RABBITMQ_URL to run.
func TestPublishAndConsume(t *testing.T) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		t.Skip("RABBITMQ_URL not set")
	}
	exchange := "ticketbooth-test-" + time.Now().Format("150405.000000")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := make(chan Delivery, 1)
	go func() {
		_ = Consume(ctx, url, exchange, zerolog.Nop(), func(d Delivery) error {
			got <- d
			return nil
		})
	}()

	pub, err := NewPublisher(url, exchange, zerolog.Nop())
	require.NoError(t, err)
	defer pub.Close()

	req := &model.GABookingRequest{BookingHeader: model.BookingHeader{UserID: 7}, Tiers: []model.TierLine{{TicketTypeID: 1, Quantity: 1}}}
	// The consumer's queue may not be bound yet; publish until it is.
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		require.NoError(t, pub.BookingConflicted(ctx, occurrence(), req, booking.ReasonSeatAlreadyTaken, "taken"))
		select {
		case d := <-got:
			assert.Equal(t, KeyBookingConflict, d.RoutingKey)
			var ev BookingConflictEvent
			require.NoError(t, json.Unmarshal(d.Body, &ev))
			assert.Equal(t, "taken", ev.Message)
			return
		case <-tick.C:
		case <-ctx.Done():
			t.Fatal("no delivery")
		}
	}
}
