// Package fakeapi is an in-memory stand-in for the Ticketbooth API.  It
// serves the same routes and wire shapes as the real service, rejects
// bookings that exceed current inventory with the 409 conflict payload,
// and lets tests inject one-shot failures and deplete inventory between
// calls.  It is a development and test double, not an inventory service.
package fakeapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ticketbooth/internal/config"
	"github.com/iliyamo/ticketbooth/internal/model"
)

// Options configures a Server.
type Options struct {
	JWTSecret  string        // HS256 signing secret
	TokenTTL   time.Duration // lifetime of issued tokens
	BcryptCost int           // bcrypt cost for stored passwords

	// RateLimit applies to POST /api/bookings when enabled and Redis is
	// set.
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
}

type eventDate struct {
	occ      model.EventOccurrence
	tiers    []model.Tier
	sections []model.SeatSection
	// tierIDs maps a tier name to the id this deployment uses for seats.
	tierIDs map[model.TierName]int64
	// omitSeatTierIDs strips ticketTypeId from served seats, like older
	// deployments did.
	omitSeatTierIDs bool
}

type userRecord struct {
	user         model.AuthUser
	passwordHash string
}

type orderRecord struct {
	userID int64
	order  model.Order
}

type fault struct {
	status int
	body   any
}

// Server holds the in-memory catalogue, users and orders.  All methods
// are safe for concurrent use.
type Server struct {
	opts Options
	echo *echo.Echo

	mu           sync.Mutex
	events       []model.Event
	dates        map[int64]*eventDate
	users        map[string]*userRecord
	orders       map[int64]*orderRecord
	nextUserID   int64
	nextOrderID  int64
	nextTicketID int64
	faults       map[string][]fault
	calls        map[string]int
}

// New returns an empty server.  Call Seed for the demo catalogue.
func New(opts Options) *Server {
	if opts.JWTSecret == "" {
		opts.JWTSecret = "dev-secret"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 4
	}
	s := &Server{
		opts:         opts,
		dates:        make(map[int64]*eventDate),
		users:        make(map[string]*userRecord),
		orders:       make(map[int64]*orderRecord),
		nextUserID:   1,
		nextOrderID:  1000,
		nextTicketID: 5000,
		faults:       make(map[string][]fault),
		calls:        make(map[string]int),
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.recordAndInject)
	RegisterRoutes(e, s)
	s.echo = e
	return s
}

// Echo exposes the configured echo instance.
func (s *Server) Echo() *echo.Echo { return s.echo }

// ServeHTTP makes Server an http.Handler for httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.echo.ServeHTTP(w, r) }

// Fail makes the next request for method and path fail with status and a
// JSON body.  Faults queue up and are consumed in order.
func (s *Server) Fail(method, path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.faults[key] = append(s.faults[key], fault{status: status, body: body})
}

// Calls reports how many requests reached method and path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

func (s *Server) recordAndInject(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Method + " " + c.Request().URL.Path
		s.mu.Lock()
		s.calls[key]++
		var f *fault
		if q := s.faults[key]; len(q) > 0 {
			f = &q[0]
			s.faults[key] = q[1:]
		}
		s.mu.Unlock()
		if f != nil {
			if f.body == nil {
				return c.NoContent(f.status)
			}
			return c.JSON(f.status, f.body)
		}
		return next(c)
	}
}

// AddEvent registers an event; dates are attached with AddGADate and
// AddSeatedDate.
func (s *Server) AddEvent(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.Dates = nil
	s.events = append(s.events, ev)
}

// AddGADate registers a general-admission occurrence of an event.
func (s *Server) AddGADate(occ model.EventOccurrence, tiers []model.Tier) {
	occ.SeatingMode = model.GeneralAdmissionMode
	s.addDate(&eventDate{occ: occ, tiers: append([]model.Tier(nil), tiers...)})
}

// AddSeatedDate registers a seated occurrence.  tierIDs is the id this
// occurrence uses for each tier name; seats without a ticketTypeId are
// sold under it.  When omitTierIDs is set, served seats never carry a
// ticketTypeId.
func (s *Server) AddSeatedDate(occ model.EventOccurrence, sections []model.SeatSection, tierIDs map[model.TierName]int64, omitTierIDs bool) {
	occ.SeatingMode = model.SeatedMode
	s.addDate(&eventDate{occ: occ, sections: cloneSections(sections), tierIDs: tierIDs, omitSeatTierIDs: omitTierIDs})
}

func (s *Server) addDate(d *eventDate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates[d.occ.ID] = d
	for i := range s.events {
		if s.events[i].ID == d.occ.Event.ID {
			s.events[i].Dates = append(s.events[i].Dates, model.EventDateSummary{
				ID:          d.occ.ID,
				Date:        d.occ.Date,
				VenueName:   d.occ.Venue.Name,
				SeatingMode: d.occ.SeatingMode,
			})
		}
	}
}

// SetRemaining overwrites a tier's remaining count, simulating sales made
// by other customers.
func (s *Server) SetRemaining(dateID, tierID int64, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.dates[dateID]; ok {
		for i := range d.tiers {
			if d.tiers[i].ID == tierID {
				d.tiers[i].Remaining = remaining
			}
		}
	}
}

// TakeSeat marks a seat unavailable, simulating another customer's booking.
func (s *Server) TakeSeat(dateID, seatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.dates[dateID]; ok {
		if seat := d.seat(seatID); seat != nil {
			seat.Available = false
		}
	}
}

// AddUser registers an account and returns its public record.
func (s *Server) AddUser(email, password, firstName, lastName string) (model.AuthUser, error) {
	hash, err := hashPassword(password, s.opts.BcryptCost)
	if err != nil {
		return model.AuthUser{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, hash, firstName, lastName), nil
}

func (s *Server) addUserLocked(email, hash, firstName, lastName string) model.AuthUser {
	now := time.Now().UTC().Format(time.RFC3339)
	u := model.AuthUser{
		ID:        s.nextUserID,
		Username:  email,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextUserID++
	s.users[email] = &userRecord{user: u, passwordHash: hash}
	return u
}

// TokenFor issues a token for an existing user id, for tests that need an
// authenticated client without a login round trip.
func (s *Server) TokenFor(userID int64) (string, error) {
	return issueToken(s.opts.JWTSecret, userID, s.opts.TokenTTL)
}

func (d *eventDate) seat(id int64) *model.Seat {
	for si := range d.sections {
		for ri := range d.sections[si].Rows {
			row := &d.sections[si].Rows[ri]
			for i := range row.Seats {
				if row.Seats[i].SeatID == id {
					return &row.Seats[i]
				}
			}
		}
	}
	return nil
}

// snapshot copies the current availability so callers never share state
// with the store.
func (d *eventDate) snapshot() model.Availability {
	if d.occ.SeatingMode == model.GeneralAdmissionMode {
		return &model.GeneralAdmission{Tiers: append([]model.Tier{}, d.tiers...)}
	}
	sections := cloneSections(d.sections)
	if d.omitSeatTierIDs {
		for si := range sections {
			for ri := range sections[si].Rows {
				for i := range sections[si].Rows[ri].Seats {
					sections[si].Rows[ri].Seats[i].TicketTypeID = nil
				}
			}
		}
	}
	return &model.SeatedAvailability{Sections: sections}
}

func cloneSections(in []model.SeatSection) []model.SeatSection {
	out := make([]model.SeatSection, len(in))
	for si, sec := range in {
		out[si] = model.SeatSection{Section: sec.Section, Rows: make([]model.SeatRow, len(sec.Rows))}
		for ri, row := range sec.Rows {
			out[si].Rows[ri] = model.SeatRow{Row: row.Row, Seats: append([]model.Seat{}, row.Seats...)}
		}
	}
	return out
}

func parseID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
