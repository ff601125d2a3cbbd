// Package booking turns a selection into a booking request, submits it,
// and recovers from inventory conflicts by resynchronising availability.
package booking

import (
	"errors"
	"fmt"

	"github.com/iliyamo/ticketbooth/internal/model"
)

var (
	// ErrSubmitInProgress is returned when Submit is called while another
	// submission is outstanding.
	ErrSubmitInProgress = errors.New("booking: submission already in progress")
	// ErrClosed is returned by a workflow after Close.
	ErrClosed = errors.New("booking: workflow closed")
	// ErrAlreadyBooked is returned once a workflow has succeeded.
	ErrAlreadyBooked = errors.New("booking: already booked")
)

// Code identifies a local validation failure.
type Code int

const (
	Unauthenticated Code = iota + 1
	MissingName
	EmptySelection
	ShapeMismatch
	UnknownInventory
)

func (c Code) String() string {
	switch c {
	case Unauthenticated:
		return "unauthenticated"
	case MissingName:
		return "missing name"
	case EmptySelection:
		return "empty selection"
	case ShapeMismatch:
		return "shape mismatch"
	case UnknownInventory:
		return "unknown inventory"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// ValidationError is a local rejection; no request was sent.  Two
// validation errors match under errors.Is when their codes are equal, so
// the Err* values below can be used as targets.
type ValidationError struct {
	Code Code
	// Mode selects the empty-selection wording.
	Mode model.SeatingMode
	// Detail names the offending id for UnknownInventory.
	Detail string
}

var (
	ErrUnauthenticated  = &ValidationError{Code: Unauthenticated}
	ErrMissingName      = &ValidationError{Code: MissingName}
	ErrEmptySelection   = &ValidationError{Code: EmptySelection}
	ErrShapeMismatch    = &ValidationError{Code: ShapeMismatch}
	ErrUnknownInventory = &ValidationError{Code: UnknownInventory}
)

func (e *ValidationError) Error() string {
	switch e.Code {
	case Unauthenticated:
		return "Please log in to book tickets"
	case MissingName:
		return "Please enter a name for the tickets"
	case EmptySelection:
		if e.Mode == model.SeatedMode {
			return "Please select at least one seat"
		}
		return "Please select at least one ticket"
	case ShapeMismatch:
		return "Invalid seating mode"
	case UnknownInventory:
		if e.Detail != "" {
			return "Your selection includes tickets that are not on sale: " + e.Detail
		}
		return "Your selection includes tickets that are not on sale"
	default:
		return "booking: " + e.Code.String()
	}
}

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

// ConflictError is returned by Submit when the server rejected the booking
// for lack of inventory.  Availability has been refreshed (best effort) by
// the time it is returned.
type ConflictError struct {
	Reason  string
	Message string
	Err     error
}

func (e *ConflictError) Error() string { return e.Message }
func (e *ConflictError) Unwrap() error { return e.Err }

// SubmitError wraps any other submission failure.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }
func (e *SubmitError) Unwrap() error { return e.Err }
