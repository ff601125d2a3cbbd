package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iliyamo/ticketbooth/internal/availability"
	"github.com/iliyamo/ticketbooth/internal/model"
	"github.com/iliyamo/ticketbooth/internal/selection"
)

// State is the submission status of a Workflow.
type State int

const (
	Idle State = iota
	Validating
	Submitting
	Succeeded
	ConflictRecovering
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case ConflictRecovering:
		return "conflict-recovering"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// API is the part of the Ticketbooth client a workflow uses.
type API interface {
	availability.Source
	SubmitBooking(ctx context.Context, req model.BookingRequest) (model.BookingConfirmation, error)
}

// Session yields the current identity and notifies on change.
type Session interface {
	Current() *model.Identity
	Subscribe(fn func(*model.Identity)) (unsubscribe func())
}

// Navigator receives the order id of a successful booking.
type Navigator interface {
	ShowOrder(orderID int64)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(orderID int64)

func (f NavigatorFunc) ShowOrder(orderID int64) { f(orderID) }

// EventSink is told about booking outcomes.  Failures are logged and
// otherwise ignored.
type EventSink interface {
	BookingConfirmed(ctx context.Context, occ model.EventOccurrence, req model.BookingRequest, conf model.BookingConfirmation) error
	BookingConflicted(ctx context.Context, occ model.EventOccurrence, req model.BookingRequest, reason, message string) error
}

// Deps are a workflow's collaborators.  API and Session are required.
type Deps struct {
	API       API
	Session   Session
	Builder   *Builder // defaults to NewBuilder(DefaultPaymentSource, LegacyTierIDs, Log)
	Navigator Navigator
	Events    EventSink
	Log       zerolog.Logger
}

// Option customises a Workflow.
type Option func(*Workflow)

// WithTransitionHook registers fn to observe every state change.  fn runs
// with the workflow locked and must not call back into it.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(w *Workflow) { w.onTransition = fn }
}

// Workflow drives one booking attempt cycle for a single occurrence.  All
// methods are safe for concurrent use; at most one submission is in
// flight at a time.
type Workflow struct {
	deps         Deps
	loader       *availability.Loader
	log          zerolog.Logger
	onTransition func(from, to State)
	unsubscribe  func()

	mu      sync.Mutex
	state   State
	occ     model.EventOccurrence
	avail   model.Availability
	sel     selection.Selection
	name    string
	message   string
	reloading bool
	closed    bool
}

// Open loads the occurrence and its availability and subscribes to
// identity changes.  A load failure is returned as *availability.FetchError.
func Open(ctx context.Context, id int64, deps Deps, opts ...Option) (*Workflow, error) {
	if deps.API == nil || deps.Session == nil {
		return nil, errors.New("booking: API and Session are required")
	}
	if deps.Builder == nil {
		deps.Builder = NewBuilder(DefaultPaymentSource, LegacyTierIDs, deps.Log)
	}
	log := deps.Log.With().Int64("event_date_id", id).Logger()
	w := &Workflow{
		deps:   deps,
		loader: availability.NewLoader(deps.API, log),
		log:    log,
	}
	for _, opt := range opts {
		opt(w)
	}

	occ, avail, err := w.loader.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	sel, err := selection.New(avail.SeatingMode())
	if err != nil {
		return nil, err
	}
	w.occ, w.avail, w.sel = occ, avail, sel
	w.name = deps.Session.Current().DisplayName()
	w.unsubscribe = deps.Session.Subscribe(w.identityChanged)
	return w, nil
}

// identityChanged resets the ticket holder name to the new identity's
// display name, or clears it on logout.
func (w *Workflow) identityChanged(id *model.Identity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.name = id.DisplayName()
}

func (w *Workflow) setState(to State) {
	from := w.state
	w.state = to
	if w.onTransition != nil {
		w.onTransition(from, to)
	}
}

// mutable reports why the selection may not change, if it may not.
func (w *Workflow) mutable() error {
	if w.state == Succeeded {
		return ErrAlreadyBooked
	}
	if w.closed {
		return ErrClosed
	}
	return nil
}

// SetTierQuantity sets a general-admission quantity, clamped to what the
// current snapshot has remaining, and returns the stored value.
func (w *Workflow) SetTierQuantity(tierID int64, quantity int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutable(); err != nil {
		return 0, err
	}
	tq, ok := w.sel.(*selection.TierQuantities)
	if !ok {
		return 0, &ValidationError{Code: ShapeMismatch}
	}
	ga, _ := w.avail.(*model.GeneralAdmission)
	return tq.Set(ga, tierID, quantity), nil
}

// ToggleSeat flips a seat's selection and reports whether it is selected.
// Seats the snapshot marks unavailable do not change.
func (w *Workflow) ToggleSeat(seatID int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutable(); err != nil {
		return false, err
	}
	ss, ok := w.sel.(*selection.SeatSet)
	if !ok {
		return false, &ValidationError{Code: ShapeMismatch}
	}
	seated, _ := w.avail.(*model.SeatedAvailability)
	return ss.Toggle(seated, seatID), nil
}

// DeselectSeat drops a seat even if it has become unavailable.
func (w *Workflow) DeselectSeat(seatID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mutable(); err != nil {
		return err
	}
	ss, ok := w.sel.(*selection.SeatSet)
	if !ok {
		return &ValidationError{Code: ShapeMismatch}
	}
	ss.Deselect(seatID)
	return nil
}

// SetCustomerName overrides the name printed on the tickets.
func (w *Workflow) SetCustomerName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.name = name
}

// CustomerName returns the current ticket holder name.
func (w *Workflow) CustomerName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.name
}

// State returns the current submission state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Occurrence returns the loaded occurrence.
func (w *Workflow) Occurrence() model.EventOccurrence {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.occ
}

// Snapshot returns the current availability.  Snapshots are replaced,
// never modified, so the value may be read without further locking.
func (w *Workflow) Snapshot() model.Availability {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.avail
}

// Selection returns a copy of the current selection.
func (w *Workflow) Selection() selection.Selection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sel.Clone()
}

// TotalPrice prices the current selection against the current snapshot.
func (w *Workflow) TotalPrice() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return selection.TotalPrice(w.sel, w.avail)
}

// Message is the last user-facing message: a validation, conflict or
// failure message.  It is cleared when a submission starts.
func (w *Workflow) Message() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.message
}

// Submit validates and sends the booking.  It returns the confirmation on
// success; otherwise one of *ValidationError, *ConflictError,
// *SubmitError, ErrSubmitInProgress, ErrAlreadyBooked or ErrClosed.
func (w *Workflow) Submit(ctx context.Context) (model.BookingConfirmation, error) {
	identity := w.deps.Session.Current()

	w.mu.Lock()
	if err := w.mutable(); err != nil {
		w.mu.Unlock()
		return model.BookingConfirmation{}, err
	}
	if w.state != Idle || w.reloading {
		w.mu.Unlock()
		return model.BookingConfirmation{}, ErrSubmitInProgress
	}
	w.message = ""
	w.setState(Validating)
	req, err := w.deps.Builder.Build(w.sel, w.avail, w.occ, identity, w.name)
	if err != nil {
		w.message = err.Error()
		w.setState(Idle)
		w.mu.Unlock()
		return model.BookingConfirmation{}, err
	}
	w.setState(Submitting)
	occ := w.occ
	w.mu.Unlock()

	conf, err := w.deps.API.SubmitBooking(ctx, req)
	if err == nil {
		return w.succeed(ctx, occ, req, conf)
	}

	c := Classify(err)
	if c.Kind != InventoryConflict {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.closed {
			return model.BookingConfirmation{}, ErrClosed
		}
		w.log.Info().Err(err).Msg("booking failed")
		w.message = c.Message
		w.setState(Failed)
		w.setState(Idle)
		return model.BookingConfirmation{}, &SubmitError{Message: c.Message, Err: err}
	}
	return model.BookingConfirmation{}, w.resync(ctx, occ, req, c, err)
}

func (w *Workflow) succeed(ctx context.Context, occ model.EventOccurrence, req model.BookingRequest, conf model.BookingConfirmation) (model.BookingConfirmation, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return model.BookingConfirmation{}, ErrClosed
	}
	w.setState(Succeeded)
	w.mu.Unlock()

	w.log.Info().Int64("order_id", conf.OrderID).Float64("total", conf.TotalAmount).Msg("booking confirmed")
	if w.deps.Events != nil {
		if err := w.deps.Events.BookingConfirmed(ctx, occ, req, conf); err != nil {
			w.log.Warn().Err(err).Msg("publish booking confirmed")
		}
	}
	w.Close()
	if w.deps.Navigator != nil {
		w.deps.Navigator.ShowOrder(conf.OrderID)
	}
	return conf, nil
}

// resync refreshes the snapshot after a conflict.  A failed refresh is
// logged and swallowed; the conflict message stands either way.
func (w *Workflow) resync(ctx context.Context, occ model.EventOccurrence, req model.BookingRequest, c Classification, cause error) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.setState(ConflictRecovering)
	w.mu.Unlock()

	w.log.Info().Str("reason", c.Reason).Msg("booking conflict; refreshing availability")
	if w.deps.Events != nil {
		if err := w.deps.Events.BookingConflicted(ctx, occ, req, c.Reason, c.Message); err != nil {
			w.log.Warn().Err(err).Msg("publish booking conflict")
		}
	}
	fresh, err := w.deps.API.FetchAvailability(ctx, occ.ID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	switch {
	case err != nil:
		w.log.Warn().Err(err).Msg("availability resync failed")
	case fresh.SeatingMode() != w.avail.SeatingMode():
		w.log.Warn().Str("seating_mode", string(fresh.SeatingMode())).Msg("availability resync changed seating mode; ignored")
	default:
		w.avail = fresh
	}
	w.message = c.Message
	w.setState(Idle)
	return &ConflictError{Reason: c.Reason, Message: c.Message, Err: cause}
}

// Reload refetches the occurrence and availability, for example after a
// failed load.  It is refused while a submission or another reload is
// outstanding, and Submit is refused until it returns.  When the seating
// mode changes the selection restarts empty.
func (w *Workflow) Reload(ctx context.Context) error {
	w.mu.Lock()
	if err := w.mutable(); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.state != Idle || w.reloading {
		w.mu.Unlock()
		return ErrSubmitInProgress
	}
	w.reloading = true
	id := w.occ.ID
	w.mu.Unlock()

	occ, avail, err := w.loader.Fetch(ctx, id)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.reloading = false
	if w.closed {
		return ErrClosed
	}
	if w.state != Idle {
		return ErrSubmitInProgress
	}
	if err != nil {
		w.message = err.Error()
		return err
	}
	if avail.SeatingMode() != w.sel.SeatingMode() {
		sel, err := selection.New(avail.SeatingMode())
		if err != nil {
			return err
		}
		w.sel = sel
	}
	w.occ, w.avail = occ, avail
	w.message = ""
	return nil
}

// Close unsubscribes from the session and makes the workflow ignore any
// response still in flight.  It is idempotent.
func (w *Workflow) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	unsub := w.unsubscribe
	w.unsubscribe = nil
	w.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
