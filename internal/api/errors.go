// Package api is the HTTP client for the Ticketbooth API.  It preserves
// the server's JSON wire shapes and reports non-2xx responses as
// *StatusError so callers can classify them.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// StatusError is returned for any response outside the 2xx range.  Body
// holds the raw payload (possibly truncated) for later inspection.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: request failed with status code %d", e.Method, e.Path, e.StatusCode)
}

// ErrorBody decodes the structured {error, message} payload.  ok is false
// when the body is not JSON or carries neither field.
func (e *StatusError) ErrorBody() (model.BookingErrorBody, bool) {
	var body model.BookingErrorBody
	if len(e.Body) == 0 || json.Unmarshal(e.Body, &body) != nil {
		return model.BookingErrorBody{}, false
	}
	if body.Error == "" && body.Message == "" {
		return model.BookingErrorBody{}, false
	}
	return body, true
}

// Message is the server's human-readable message, falling back to the
// error code when no message was sent.
func (e *StatusError) Message() string {
	body, ok := e.ErrorBody()
	if !ok {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
