package booking

import (
	"errors"
	"net/http"

	"github.com/iliyamo/ticketbooth/internal/api"
)

// Conflict reasons the server sends with a 409.
const (
	ReasonInsufficientInventory = "INSUFFICIENT_INVENTORY"
	ReasonSeatAlreadyTaken      = "SEAT_ALREADY_TAKEN"
)

const defaultFailureMessage = "Failed to create booking. Please try again."

// Kind is the outcome class of a failed submission.
type Kind int

const (
	// Other failures are terminal for the attempt.
	Other Kind = iota
	// InventoryConflict is recoverable after a resync.
	InventoryConflict
)

func (k Kind) String() string {
	if k == InventoryConflict {
		return "inventory conflict"
	}
	return "other"
}

// Classification describes a failed submission.  Reason is set only for
// inventory conflicts.  Message is what the user should see.
type Classification struct {
	Kind    Kind
	Reason  string
	Message string
}

// Classify inspects a SubmitBooking error.  Only a 409 whose payload names
// a known inventory reason is a conflict; anything else, including a 409
// without the payload, is Other.
func Classify(err error) Classification {
	var se *api.StatusError
	if errors.As(err, &se) {
		body, ok := se.ErrorBody()
		if se.StatusCode == http.StatusConflict && ok &&
			(body.Error == ReasonInsufficientInventory || body.Error == ReasonSeatAlreadyTaken) {
			msg := body.Message
			if msg == "" {
				msg = conflictMessage(body.Error)
			}
			return Classification{Kind: InventoryConflict, Reason: body.Error, Message: msg}
		}
		if msg := se.Message(); msg != "" {
			return Classification{Kind: Other, Message: msg}
		}
	}
	msg := defaultFailureMessage
	if err != nil && se == nil {
		msg = err.Error()
	}
	return Classification{Kind: Other, Message: msg}
}

func conflictMessage(reason string) string {
	if reason == ReasonSeatAlreadyTaken {
		return "One or more of your seats has just been taken. Availability has been refreshed."
	}
	return "Not enough tickets remain for your selection. Availability has been refreshed."
}
