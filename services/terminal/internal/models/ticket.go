package models

import "time"

// Ticket records one parking stay. CheckoutAt is nil while the stay is open.
type Ticket struct {
	ID         string     `json:"id"`
	Type       UserType   `json:"type"`
	ZoneID     string     `json:"zoneId"`
	GateID     string     `json:"gateId"`
	CheckinAt  time.Time  `json:"checkinAt"`
	CheckoutAt *time.Time `json:"checkoutAt"`
}

// CheckedOut reports whether the stay has already been closed.
func (t Ticket) CheckedOut() bool {
	return t.CheckoutAt != nil
}

// CheckinRequest is the body of POST /tickets/checkin.
type CheckinRequest struct {
	GateID         string   `json:"gateId"`
	ZoneID         string   `json:"zoneId"`
	Type           UserType `json:"type"`
	SubscriptionID string   `json:"subscriptionId,omitempty"`
}

// CheckinResponse wraps the issued ticket.
type CheckinResponse struct {
	Ticket Ticket `json:"ticket"`
}

// CheckoutRequest is the body of POST /tickets/checkout. The conversion flag is omitted
// unless the operator asked for it.
type CheckoutRequest struct {
	TicketID              string `json:"ticketId"`
	ForceConvertToVisitor bool   `json:"forceConvertToVisitor,omitempty"`
}

// RateMode tells which hourly rate a billing segment used.
type RateMode string

const (
	RateModeNormal  RateMode = "normal"
	RateModeSpecial RateMode = "special"
)

// BreakdownSegment is one contiguous interval billed at a single rate.
type BreakdownSegment struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Hours    float64   `json:"hours"`
	RateMode RateMode  `json:"rateMode"`
	Rate     float64   `json:"rate"`
	Amount   float64   `json:"amount"`
}

// CheckoutReceipt is produced entirely by the authority. Breakdown keeps the order received.
type CheckoutReceipt struct {
	TicketID      string             `json:"ticketId"`
	CheckinAt     time.Time          `json:"checkinAt"`
	CheckoutAt    time.Time          `json:"checkoutAt"`
	DurationHours float64            `json:"durationHours"`
	Breakdown     []BreakdownSegment `json:"breakdown"`
	Amount        float64            `json:"amount"`
	ZoneState     Zone               `json:"zoneState"`
}
