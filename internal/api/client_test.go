package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticketbooth/internal/fakeapi"
	"github.com/iliyamo/ticketbooth/internal/model"
)

type staticTokens struct{ id *model.Identity }

func (s *staticTokens) Current() *model.Identity { return s.id }

func newTestAPI(t *testing.T) (*fakeapi.Server, *httptest.Server) {
	t.Helper()
	fake := fakeapi.New(fakeapi.Options{JWTSecret: "test-secret"})
	require.NoError(t, fake.Seed())
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

func TestNewClientRejectsNonHTTP(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)
}

type countingTransport struct{ n int }

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.n++
	return http.DefaultTransport.RoundTrip(req)
}

func TestTransportAppliesInAnyOptionOrder(t *testing.T) {
	_, srv := newTestAPI(t)
	for name, order := range map[string]func(*http.Client, http.RoundTripper) []Option{
		"transport first": func(hc *http.Client, rt http.RoundTripper) []Option {
			return []Option{WithTransport(rt), WithHTTPClient(hc), WithTimeout(time.Second)}
		},
		"client first": func(hc *http.Client, rt http.RoundTripper) []Option {
			return []Option{WithHTTPClient(hc), WithTimeout(time.Second), WithTransport(rt)}
		},
	} {
		t.Run(name, func(t *testing.T) {
			hc := &http.Client{}
			rt := &countingTransport{}
			c, err := NewClient(srv.URL, order(hc, rt)...)
			require.NoError(t, err)

			_, err = c.Events(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, rt.n)
			assert.Nil(t, hc.Transport)
			assert.Zero(t, hc.Timeout)
		})
	}
}

func TestEventsAndOccurrence(t *testing.T) {
	_, srv := newTestAPI(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	events, err := c.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Len(t, events[1].Dates, 2)

	occ, err := c.FetchOccurrence(ctx, fakeapi.SeedSeatedDateID)
	require.NoError(t, err)
	assert.Equal(t, model.SeatedMode, occ.SeatingMode)
	assert.Equal(t, "Globe Hall", occ.Venue.Name)

	_, err = c.FetchOccurrence(ctx, 404)
	assert.True(t, IsNotFound(err))
}

func TestFetchAvailabilityDecodesBothShapes(t *testing.T) {
	_, srv := newTestAPI(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	a, err := c.FetchAvailability(context.Background(), fakeapi.SeedGADateID)
	require.NoError(t, err)
	require.IsType(t, &model.GeneralAdmission{}, a)

	a, err = c.FetchAvailability(context.Background(), fakeapi.SeedSeatedDateID)
	require.NoError(t, err)
	seated, ok := a.(*model.SeatedAvailability)
	require.True(t, ok)
	seat, ok := seated.Seat(201)
	require.True(t, ok)
	require.NotNil(t, seat.TicketTypeID)
	assert.EqualValues(t, 11, *seat.TicketTypeID)
}

func TestLoginBookAndListOrders(t *testing.T) {
	fake, srv := newTestAPI(t)
	tokens := &staticTokens{}
	c, err := NewClient(srv.URL, WithTokenSource(tokens))
	require.NoError(t, err)
	ctx := context.Background()

	auth, err := c.Login(ctx, model.LoginRequest{Email: fakeapi.SeedUserEmail, Password: fakeapi.SeedUserPassword})
	require.NoError(t, err)
	tokens.id = model.IdentityOf(auth)

	conf, err := c.SubmitBooking(ctx, &model.GABookingRequest{
		BookingHeader: model.BookingHeader{EventDateID: fakeapi.SeedGADateID, CustomerName: "Demo User", UserID: auth.User.ID, PaymentSource: "test-card-4242"},
		Tiers:         []model.TierLine{{TicketTypeID: 3, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, conf.TotalAmount)
	assert.Equal(t, 1, fake.Calls(http.MethodPost, "/api/bookings"))

	order, err := c.Order(ctx, conf.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Demo User", order.CustomerName)

	orders, err := c.Orders(ctx, auth.User.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestSubmitBookingConflictIsStatusError(t *testing.T) {
	fake, srv := newTestAPI(t)
	tokens := &staticTokens{}
	c, err := NewClient(srv.URL, WithTokenSource(tokens))
	require.NoError(t, err)
	ctx := context.Background()

	auth, err := c.Login(ctx, model.LoginRequest{Email: fakeapi.SeedUserEmail, Password: fakeapi.SeedUserPassword})
	require.NoError(t, err)
	tokens.id = model.IdentityOf(auth)
	fake.TakeSeat(fakeapi.SeedSeatedDateID, 205)

	_, err = c.SubmitBooking(ctx, &model.SeatedBookingRequest{
		BookingHeader: model.BookingHeader{EventDateID: fakeapi.SeedSeatedDateID, CustomerName: "Demo User", UserID: auth.User.ID},
		Seats:         []model.SeatLine{{SeatID: 205, TicketTypeID: 12}},
	})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.StatusCode)
	body, ok := se.ErrorBody()
	require.True(t, ok)
	assert.Equal(t, fakeapi.ReasonSeatAlreadyTaken, body.Error)
	assert.Equal(t, "Seat B1 is no longer available", se.Message())
}

func TestHeadersSentOnEveryRequest(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithTokenSource(&staticTokens{id: &model.Identity{UserID: 1, Token: "abc"}}))
	require.NoError(t, err)

	ctx := WithCorrelationID(context.Background(), "fixed-id")
	_, err = c.Events(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got.Get("Authorization"))
	assert.Equal(t, "fixed-id", got.Get(CorrelationHeader))

	_, err = c.Events(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.Get(CorrelationHeader), 36)
}

func TestStatusErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.Events(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	_, ok := se.ErrorBody()
	assert.False(t, ok)
	assert.Equal(t, "GET /api/events: request failed with status code 502", se.Error())
}
