package fakeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticketbooth/internal/config"
	"github.com/iliyamo/ticketbooth/internal/model"
)

func newSeeded(t *testing.T) *Server {
	t.Helper()
	s := New(Options{JWTSecret: "test-secret"})
	require.NoError(t, s.Seed())
	return s
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server) authResp {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/login", "", model.LoginRequest{Email: SeedUserEmail, Password: SeedUserPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	var out authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newSeeded(t)
	rec := do(t, s, http.MethodPost, "/api/login", "", model.LoginRequest{Email: SeedUserEmail, Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignUpThenDuplicate(t *testing.T) {
	s := newSeeded(t)
	req := model.SignUpRequest{Email: "ada@example.com", Password: "pw", FirstName: "Ada", LastName: "Lovelace"}
	rec := do(t, s, http.MethodPost, "/api/signup", "", req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var out authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, "Ada", out.User.FirstName)

	rec = do(t, s, http.MethodPost, "/api/signup", "", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAvailabilityShapes(t *testing.T) {
	s := newSeeded(t)

	rec := do(t, s, http.MethodGet, "/api/event-dates/1/availability", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	a, err := model.DecodeAvailability(rec.Body.Bytes())
	require.NoError(t, err)
	ga := a.(*model.GeneralAdmission)
	assert.Len(t, ga.Tiers, 3)

	rec = do(t, s, http.MethodGet, "/api/event-dates/3/availability", "", nil)
	a, err = model.DecodeAvailability(rec.Body.Bytes())
	require.NoError(t, err)
	for _, seat := range a.(*model.SeatedAvailability).Seats() {
		assert.Nil(t, seat.TicketTypeID, "legacy date must not send tier ids")
	}

	rec = do(t, s, http.MethodGet, "/api/event-dates/99/availability", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingRequiresToken(t *testing.T) {
	s := newSeeded(t)
	rec := do(t, s, http.MethodPost, "/api/bookings", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGABookingAndConflict(t *testing.T) {
	s := newSeeded(t)
	auth := login(t, s)
	body := model.GABookingRequest{
		BookingHeader: model.BookingHeader{EventDateID: SeedGADateID, CustomerName: "Demo User", UserID: auth.User.ID, PaymentSource: "test-card-4242"},
		Tiers:         []model.TierLine{{TicketTypeID: 1, Quantity: 2}},
	}
	rec := do(t, s, http.MethodPost, "/api/bookings", auth.Token, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var conf model.BookingConfirmation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conf))
	assert.Len(t, conf.Tickets, 2)
	assert.Equal(t, 240.0, conf.TotalAmount)
	assert.Nil(t, conf.Tickets[0].SeatLabel)

	s.SetRemaining(SeedGADateID, 1, 1)
	rec = do(t, s, http.MethodPost, "/api/bookings", auth.Token, body)
	require.Equal(t, http.StatusConflict, rec.Code)
	var eb model.BookingErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eb))
	assert.Equal(t, ReasonInsufficientInventory, eb.Error)

	rec = do(t, s, http.MethodGet, "/api/orders/"+strconv.FormatInt(conf.OrderID, 10), auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/orders?userId="+strconv.FormatInt(auth.User.ID, 10), auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)
}

func TestSeatedBookingConflictAndTierCheck(t *testing.T) {
	s := newSeeded(t)
	auth := login(t, s)
	hdr := model.BookingHeader{EventDateID: SeedSeatedDateID, CustomerName: "Demo User", UserID: auth.User.ID, PaymentSource: "test-card-4242"}

	rec := do(t, s, http.MethodPost, "/api/bookings", auth.Token, model.SeatedBookingRequest{
		BookingHeader: hdr, Seats: []model.SeatLine{{SeatID: 201, TicketTypeID: 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "wrong tier id for this deployment")

	s.TakeSeat(SeedSeatedDateID, 201)
	rec = do(t, s, http.MethodPost, "/api/bookings", auth.Token, model.SeatedBookingRequest{
		BookingHeader: hdr, Seats: []model.SeatLine{{SeatID: 201, TicketTypeID: 11}},
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	var eb model.BookingErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eb))
	assert.Equal(t, ReasonSeatAlreadyTaken, eb.Error)
}

func TestBookingUserMismatchForbidden(t *testing.T) {
	s := newSeeded(t)
	auth := login(t, s)
	rec := do(t, s, http.MethodPost, "/api/bookings", auth.Token, model.GABookingRequest{
		BookingHeader: model.BookingHeader{EventDateID: SeedGADateID, CustomerName: "x", UserID: auth.User.ID + 1},
		Tiers:         []model.TierLine{{TicketTypeID: 1, Quantity: 1}},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFailInjectsOnceAndCounts(t *testing.T) {
	s := newSeeded(t)
	s.Fail(http.MethodGet, "/api/events", http.StatusServiceUnavailable, errBody("UNAVAILABLE", "down"))

	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/api/events", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/events", "", nil).Code)
	assert.Equal(t, 2, s.Calls(http.MethodGet, "/api/events"))
}

// Requires a reachable Redis; set REDIS_ADDR to run.
func TestBookingRateLimited(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	s := New(Options{
		JWTSecret: "test-secret",
		Redis:     rdb,
		RateLimit: config.RateLimitConfig{
			Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Minute,
			Prefix: "tbrl-test-" + strconv.FormatInt(time.Now().UnixNano(), 10),
		},
	})
	require.NoError(t, s.Seed())
	auth := login(t, s)
	body := model.GABookingRequest{
		BookingHeader: model.BookingHeader{EventDateID: SeedGADateID, CustomerName: "Demo User", UserID: auth.User.ID},
		Tiers:         []model.TierLine{{TicketTypeID: 3, Quantity: 1}},
	}
	assert.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/bookings", auth.Token, body).Code)
	assert.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/bookings", auth.Token, body).Code)
	rec := do(t, s, http.MethodPost, "/api/bookings", auth.Token, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
