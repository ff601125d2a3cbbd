package fakeapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// Conflict reasons carried in the 409 payload.
const (
	ReasonInsufficientInventory = "INSUFFICIENT_INVENTORY"
	ReasonSeatAlreadyTaken      = "SEAT_ALREADY_TAKEN"
)

// bookingBody accepts either request shape; the occurrence decides which
// half is read.
type bookingBody struct {
	model.BookingHeader
	Tiers []model.TierLine `json:"tiers"`
	Seats []model.SeatLine `json:"seats"`
}

type authResp struct {
	Token string         `json:"token"`
	User  model.AuthUser `json:"user"`
}

func errBody(code, msg string) echo.Map {
	return echo.Map{"error": code, "message": msg}
}

// Health reports liveness.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// ListEvents serves GET /api/events.
func (s *Server) ListEvents(c echo.Context) error {
	s.mu.Lock()
	out := make([]model.Event, len(s.events))
	for i, ev := range s.events {
		ev.Dates = append([]model.EventDateSummary{}, ev.Dates...)
		out[i] = ev
	}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, out)
}

// GetEventDate serves GET /api/event-dates/:id.
func (s *Server) GetEventDate(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "invalid id"))
	}
	s.mu.Lock()
	d, found := s.dates[id]
	var occ model.EventOccurrence
	if found {
		occ = d.occ
	}
	s.mu.Unlock()
	if !found {
		return c.JSON(http.StatusNotFound, errBody("NOT_FOUND", "event date not found"))
	}
	return c.JSON(http.StatusOK, occ)
}

// GetAvailability serves GET /api/event-dates/:id/availability.
func (s *Server) GetAvailability(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "invalid id"))
	}
	s.mu.Lock()
	d, found := s.dates[id]
	var snap model.Availability
	if found {
		snap = d.snapshot()
	}
	s.mu.Unlock()
	if !found {
		return c.JSON(http.StatusNotFound, errBody("NOT_FOUND", "event date not found"))
	}
	return c.JSON(http.StatusOK, snap)
}

// CreateBooking serves POST /api/bookings.  Inventory is checked and
// decremented under one lock so concurrent requests cannot oversell.
func (s *Server) CreateBooking(c echo.Context) error {
	var req bookingBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "invalid body"))
	}
	uid, _ := c.Get(userIDKey).(int64)
	if req.UserID != uid {
		return c.JSON(http.StatusForbidden, errBody("FORBIDDEN", "userId does not match token"))
	}
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "customerName is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dates[req.EventDateID]
	if !ok {
		return c.JSON(http.StatusNotFound, errBody("NOT_FOUND", "event date not found"))
	}

	var (
		tickets []model.IssuedTicket
		total   float64
	)
	switch d.occ.SeatingMode {
	case model.GeneralAdmissionMode:
		if len(req.Tiers) == 0 || len(req.Seats) > 0 {
			return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "tiers are required for general admission"))
		}
		idx := make(map[int64]int, len(d.tiers))
		for i, t := range d.tiers {
			idx[t.ID] = i
		}
		for _, line := range req.Tiers {
			i, known := idx[line.TicketTypeID]
			if !known || line.Quantity <= 0 {
				return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "invalid ticket type "+strconv.FormatInt(line.TicketTypeID, 10)))
			}
			if d.tiers[i].Remaining < line.Quantity {
				return c.JSON(http.StatusConflict, errBody(ReasonInsufficientInventory,
					"Only "+strconv.Itoa(d.tiers[i].Remaining)+" "+string(d.tiers[i].Name)+" tickets remain"))
			}
		}
		for _, line := range req.Tiers {
			t := &d.tiers[idx[line.TicketTypeID]]
			t.Remaining -= line.Quantity
			for n := 0; n < line.Quantity; n++ {
				tickets = append(tickets, s.newTicketLocked(t.Name, nil, name))
				total += t.Price
			}
		}
	case model.SeatedMode:
		if len(req.Seats) == 0 || len(req.Tiers) > 0 {
			return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "seats are required for seated events"))
		}
		seen := make(map[int64]bool, len(req.Seats))
		for _, line := range req.Seats {
			seat := d.seat(line.SeatID)
			if seat == nil || seen[line.SeatID] {
				return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "invalid seat "+strconv.FormatInt(line.SeatID, 10)))
			}
			seen[line.SeatID] = true
			if d.seatTierID(seat) != line.TicketTypeID {
				return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "invalid ticket type for seat "+seat.Label))
			}
			if !seat.Available {
				return c.JSON(http.StatusConflict, errBody(ReasonSeatAlreadyTaken, "Seat "+seat.Label+" is no longer available"))
			}
		}
		for _, line := range req.Seats {
			seat := d.seat(line.SeatID)
			seat.Available = false
			label := seat.Label
			tickets = append(tickets, s.newTicketLocked(seat.TicketType, &label, name))
			total += seat.Price
		}
	}

	orderID := s.nextOrderID
	s.nextOrderID++
	order := model.Order{
		ID:           orderID,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		CustomerName: name,
		TotalAmount:  total,
	}
	for _, t := range tickets {
		order.Tickets = append(order.Tickets, model.OrderTicket{
			ID:         t.ID,
			EventTitle: d.occ.Event.Title,
			EventDate:  d.occ.Date,
			TicketType: t.TicketType,
			SeatLabel:  t.SeatLabel,
		})
	}
	s.orders[orderID] = &orderRecord{userID: uid, order: order}
	return c.JSON(http.StatusCreated, model.BookingConfirmation{OrderID: orderID, TotalAmount: total, Tickets: tickets})
}

func (s *Server) newTicketLocked(tier model.TierName, label *string, toName string) model.IssuedTicket {
	id := s.nextTicketID
	s.nextTicketID++
	return model.IssuedTicket{ID: id, TicketType: tier, SeatLabel: label, ToName: toName}
}

func (d *eventDate) seatTierID(seat *model.Seat) int64 {
	if seat.TicketTypeID != nil {
		return *seat.TicketTypeID
	}
	return d.tierIDs[seat.TicketType]
}

// GetOrder serves GET /api/orders/:id for the order's owner.
func (s *Server) GetOrder(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "invalid id"))
	}
	uid, _ := c.Get(userIDKey).(int64)
	s.mu.Lock()
	rec, found := s.orders[id]
	s.mu.Unlock()
	if !found {
		return c.JSON(http.StatusNotFound, errBody("NOT_FOUND", "order not found"))
	}
	if rec.userID != uid {
		return c.JSON(http.StatusForbidden, errBody("FORBIDDEN", "not your order"))
	}
	return c.JSON(http.StatusOK, rec.order)
}

// ListOrders serves GET /api/orders?userId=, newest first.
func (s *Server) ListOrders(c echo.Context) error {
	uid, _ := c.Get(userIDKey).(int64)
	want, err := strconv.ParseInt(c.QueryParam("userId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "userId is required"))
	}
	if want != uid {
		return c.JSON(http.StatusForbidden, errBody("FORBIDDEN", "userId does not match token"))
	}
	s.mu.Lock()
	out := []model.Order{}
	for _, rec := range s.orders {
		if rec.userID == uid {
			out = append(out, rec.order)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return c.JSON(http.StatusOK, out)
}

// Login serves POST /api/login.
func (s *Server) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "invalid body"))
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	s.mu.Lock()
	rec, found := s.users[email]
	s.mu.Unlock()
	if !found || !verifyPassword(rec.passwordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, errBody("INVALID_CREDENTIALS", "Invalid email or password"))
	}
	token, err := issueToken(s.opts.JWTSecret, rec.user.ID, s.opts.TokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errBody("INTERNAL", "issue token failed"))
	}
	return c.JSON(http.StatusOK, authResp{Token: token, User: rec.user})
}

// SignUp serves POST /api/signup.
func (s *Server) SignUp(c echo.Context) error {
	var req model.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "invalid body"))
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || strings.TrimSpace(req.FirstName) == "" {
		return c.JSON(http.StatusBadRequest, errBody("BAD_REQUEST", "email, password and firstName are required"))
	}
	hash, err := hashPassword(req.Password, s.opts.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errBody("INTERNAL", "hash password failed"))
	}
	s.mu.Lock()
	if _, exists := s.users[email]; exists {
		s.mu.Unlock()
		return c.JSON(http.StatusConflict, errBody("EMAIL_EXISTS", "An account with this email already exists"))
	}
	u := s.addUserLocked(email, hash, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName))
	s.mu.Unlock()
	token, err := issueToken(s.opts.JWTSecret, u.ID, s.opts.TokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errBody("INTERNAL", "issue token failed"))
	}
	return c.JSON(http.StatusCreated, authResp{Token: token, User: u})
}
