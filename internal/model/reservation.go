package model

// BookingRequest is the wire-ready body of POST /api/bookings.  It is a
// closed union mirroring the seating mode: *GABookingRequest or
// *SeatedBookingRequest.
type BookingRequest interface {
	SeatingMode() SeatingMode
	Header() BookingHeader
	isBookingRequest()
}

// BookingHeader holds the fields common to both request shapes.
//
// Fields:
//  EventDateID   – occurrence being booked.
//  CustomerName  – trimmed, non-empty name printed on the tickets.
//  UserID        – authenticated user placing the order.
//  PaymentSource – opaque placeholder token, passed through untouched.
type BookingHeader struct {
	EventDateID   int64  `json:"eventDateId"`
	CustomerName  string `json:"customerName"`
	UserID        int64  `json:"userId"`
	PaymentSource string `json:"paymentSource"`
}

// TierLine requests Quantity tickets of one tier.
type TierLine struct {
	TicketTypeID int64 `json:"ticketTypeId"`
	Quantity     int   `json:"quantity"`
}

// SeatLine requests one specific seat sold under a tier.
type SeatLine struct {
	SeatID       int64 `json:"seatId"`
	TicketTypeID int64 `json:"ticketTypeId"`
}

// GABookingRequest books general-admission tiers.
type GABookingRequest struct {
	BookingHeader
	Tiers []TierLine `json:"tiers"`
}

func (*GABookingRequest) SeatingMode() SeatingMode { return GeneralAdmissionMode }
func (r *GABookingRequest) Header() BookingHeader { return r.BookingHeader }
func (*GABookingRequest) isBookingRequest() {}

// SeatedBookingRequest books individual seats.
type SeatedBookingRequest struct {
	BookingHeader
	Seats []SeatLine `json:"seats"`
}

func (*SeatedBookingRequest) SeatingMode() SeatingMode { return SeatedMode }
func (r *SeatedBookingRequest) Header() BookingHeader { return r.BookingHeader }
func (*SeatedBookingRequest) isBookingRequest() {}

// IssuedTicket is a ticket returned by a successful booking.  SeatLabel is
// nil for general admission.
type IssuedTicket struct {
	ID         int64    `json:"id"`
	TicketType TierName `json:"ticketType"`
	SeatLabel  *string  `json:"seatLabel"`
	ToName     string   `json:"toName"`
}

// BookingConfirmation is the success body of POST /api/bookings.
type BookingConfirmation struct {
	OrderID     int64          `json:"orderId"`
	TotalAmount float64        `json:"totalAmount"`
	Tickets     []IssuedTicket `json:"tickets"`
}

// BookingErrorBody is the structured error payload sent with a 409.
type BookingErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// OrderTicket is a ticket as listed on an order.
type OrderTicket struct {
	ID         int64    `json:"id"`
	EventTitle string   `json:"eventTitle"`
	EventDate  string   `json:"eventDate"`
	TicketType TierName `json:"ticketType"`
	SeatLabel  *string  `json:"seatLabel"`
}

// Order is a placed order as returned by GET /api/orders/{id}.
type Order struct {
	ID           int64         `json:"id"`
	CreatedAt    string        `json:"createdAt"`
	CustomerName string        `json:"customerName"`
	TotalAmount  float64       `json:"totalAmount"`
	Tickets      []OrderTicket `json:"tickets"`
}
