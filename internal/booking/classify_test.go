package booking

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/ticketbooth/internal/api"
)

func statusErr(code int, body string) error {
	return &api.StatusError{Method: http.MethodPost, Path: "/api/bookings", StatusCode: code, Body: []byte(body)}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Classification
	}{
		{
			"seat taken",
			statusErr(409, `{"error":"SEAT_ALREADY_TAKEN","message":"Seat A1 is no longer available"}`),
			Classification{Kind: InventoryConflict, Reason: ReasonSeatAlreadyTaken, Message: "Seat A1 is no longer available"},
		},
		{
			"insufficient without message",
			statusErr(409, `{"error":"INSUFFICIENT_INVENTORY"}`),
			Classification{Kind: InventoryConflict, Reason: ReasonInsufficientInventory, Message: conflictMessage(ReasonInsufficientInventory)},
		},
		{
			"409 unknown reason",
			statusErr(409, `{"error":"DUPLICATE","message":"dup"}`),
			Classification{Kind: Other, Message: "dup"},
		},
		{
			"409 without payload",
			statusErr(409, ``),
			Classification{Kind: Other, Message: defaultFailureMessage},
		},
		{
			"known reason on another status",
			statusErr(400, `{"error":"SEAT_ALREADY_TAKEN","message":"odd"}`),
			Classification{Kind: Other, Message: "odd"},
		},
		{
			"transport error",
			errors.New("dial tcp: connection refused"),
			Classification{Kind: Other, Message: "dial tcp: connection refused"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
