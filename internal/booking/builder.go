package booking

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/ticketbooth/internal/model"
	"github.com/iliyamo/ticketbooth/internal/selection"
)

// DefaultPaymentSource is the placeholder sent when none is configured.
const DefaultPaymentSource = "test-card-4242"

// LegacyTierIDs is the tier-name to id table some deployments rely on when
// seats arrive without a ticketTypeId.  The ids are an assumption about
// server-side numbering, not something the API guarantees.
var LegacyTierIDs = map[model.TierName]int64{
	model.TierVIP:      1,
	model.TierFrontRow: 2,
	model.TierGA:       3,
}

// Builder produces booking requests.  Build has no side effects other
// than the warning logged when the tier fallback is used.
type Builder struct {
	paymentSource string
	fallback      map[model.TierName]int64
	log           zerolog.Logger
}

// NewBuilder returns a builder.  fallback may be nil, in which case a seat
// without an embedded tier id fails with UnknownInventory.
func NewBuilder(paymentSource string, fallback map[model.TierName]int64, log zerolog.Logger) *Builder {
	if paymentSource == "" {
		paymentSource = DefaultPaymentSource
	}
	return &Builder{paymentSource: paymentSource, fallback: fallback, log: log}
}

// Build validates the inputs in order (identity, name, selection size,
// seating-mode agreement) and returns the request for the live shape.
// The first failure wins.
func (b *Builder) Build(sel selection.Selection, avail model.Availability, occ model.EventOccurrence,
	identity *model.Identity, customerName string) (model.BookingRequest, error) {
	if identity == nil || identity.UserID == 0 {
		return nil, &ValidationError{Code: Unauthenticated}
	}
	name := strings.TrimSpace(customerName)
	if name == "" {
		return nil, &ValidationError{Code: MissingName}
	}
	if sel == nil || sel.Count() < 1 {
		mode := occ.SeatingMode
		if sel != nil {
			mode = sel.SeatingMode()
		}
		return nil, &ValidationError{Code: EmptySelection, Mode: mode}
	}
	if avail == nil || sel.SeatingMode() != avail.SeatingMode() || avail.SeatingMode() != occ.SeatingMode {
		return nil, &ValidationError{Code: ShapeMismatch}
	}

	hdr := model.BookingHeader{
		EventDateID:   occ.ID,
		CustomerName:  name,
		UserID:        identity.UserID,
		PaymentSource: b.paymentSource,
	}
	switch sel := sel.(type) {
	case *selection.TierQuantities:
		return b.buildGA(hdr, sel, avail.(*model.GeneralAdmission))
	case *selection.SeatSet:
		return b.buildSeated(hdr, sel, avail.(*model.SeatedAvailability))
	default:
		return nil, &ValidationError{Code: ShapeMismatch}
	}
}

func (b *Builder) buildGA(hdr model.BookingHeader, sel *selection.TierQuantities, avail *model.GeneralAdmission) (model.BookingRequest, error) {
	lines := sel.Lines()
	for _, line := range lines {
		if _, ok := avail.Tier(line.TicketTypeID); !ok {
			return nil, &ValidationError{Code: UnknownInventory, Detail: "tier " + strconv.FormatInt(line.TicketTypeID, 10)}
		}
	}
	return &model.GABookingRequest{BookingHeader: hdr, Tiers: lines}, nil
}

func (b *Builder) buildSeated(hdr model.BookingHeader, sel *selection.SeatSet, avail *model.SeatedAvailability) (model.BookingRequest, error) {
	var (
		lines []model.SeatLine
		found = make(map[int64]bool, sel.Count())
	)
	for _, seat := range avail.Seats() {
		if !sel.Has(seat.SeatID) {
			continue
		}
		found[seat.SeatID] = true
		tierID, ok := b.tierID(seat)
		if !ok {
			return nil, &ValidationError{Code: UnknownInventory, Detail: "tier " + string(seat.TicketType) + " for seat " + seat.Label}
		}
		lines = append(lines, model.SeatLine{SeatID: seat.SeatID, TicketTypeID: tierID})
	}
	if len(found) != sel.Count() {
		missing := make([]int64, 0, sel.Count()-len(found))
		for _, id := range sel.IDs() {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		return nil, &ValidationError{Code: UnknownInventory, Detail: "seat " + strconv.FormatInt(missing[0], 10)}
	}
	return &model.SeatedBookingRequest{BookingHeader: hdr, Seats: lines}, nil
}

// tierID prefers the id on the seat record and otherwise consults the
// fallback table, warning every time.  A zero id counts as missing.
func (b *Builder) tierID(seat model.Seat) (int64, bool) {
	if seat.TicketTypeID != nil && *seat.TicketTypeID != 0 {
		return *seat.TicketTypeID, true
	}
	id, ok := b.fallback[seat.TicketType]
	if !ok {
		b.log.Warn().
			Int64("seat_id", seat.SeatID).
			Str("tier", string(seat.TicketType)).
			Bool("fallback_enabled", b.fallback != nil).
			Msg("seat has no ticketTypeId and no fallback tier id")
		return 0, false
	}
	b.log.Warn().
		Int64("seat_id", seat.SeatID).
		Str("tier", string(seat.TicketType)).
		Int64("guessed_tier_id", id).
		Msg("seat has no ticketTypeId; using static tier id fallback")
	return id, true
}
