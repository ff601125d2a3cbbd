package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// Events lists every event with its scheduled dates.
func (c *Client) Events(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	if err := c.do(ctx, http.MethodGet, "/api/events", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchOccurrence loads one event date.
func (c *Client) FetchOccurrence(ctx context.Context, id int64) (model.EventOccurrence, error) {
	var out model.EventOccurrence
	err := c.do(ctx, http.MethodGet, "/api/event-dates/"+strconv.FormatInt(id, 10), nil, nil, &out)
	return out, err
}

// FetchAvailability loads the availability snapshot of one event date.
func (c *Client) FetchAvailability(ctx context.Context, id int64) (model.Availability, error) {
	path := "/api/event-dates/" + strconv.FormatInt(id, 10) + "/availability"
	raw, err := c.doRaw(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	avail, err := model.DecodeAvailability(raw)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return avail, nil
}

// SubmitBooking posts a booking.  A rejected booking comes back as
// *StatusError; 409 carries the structured conflict payload.
func (c *Client) SubmitBooking(ctx context.Context, req model.BookingRequest) (model.BookingConfirmation, error) {
	var out model.BookingConfirmation
	err := c.do(ctx, http.MethodPost, "/api/bookings", nil, req, &out)
	return out, err
}

// Order loads one order.
func (c *Client) Order(ctx context.Context, id int64) (model.Order, error) {
	var out model.Order
	err := c.do(ctx, http.MethodGet, "/api/orders/"+strconv.FormatInt(id, 10), nil, nil, &out)
	return out, err
}

// Orders lists the orders placed by userID.
func (c *Client) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	q := url.Values{"userId": []string{strconv.FormatInt(userID, 10)}}
	var out []model.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Login exchanges credentials for a token and user.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (model.AuthState, error) {
	var out model.AuthState
	err := c.do(ctx, http.MethodPost, "/api/login", nil, req, &out)
	return out, err
}

// SignUp creates an account and returns its token and user.
func (c *Client) SignUp(ctx context.Context, req model.SignUpRequest) (model.AuthState, error) {
	var out model.AuthState
	err := c.do(ctx, http.MethodPost, "/api/signup", nil, req, &out)
	return out, err
}
