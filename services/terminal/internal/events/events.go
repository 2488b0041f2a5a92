package events

import (
	"context"
	"time"

	"parkgate/services/terminal/internal/models"
)

// Event type names carried in the envelope.
const (
	TypeTicketIssued      = "ticket.issued"
	TypeCheckoutCompleted = "checkout.completed"
)

// TicketIssued is emitted after the authority issues a ticket at a gate.
type TicketIssued struct {
	TerminalID     string        `json:"terminalId"`
	Ticket         models.Ticket `json:"ticket"`
	SubscriptionID string        `json:"subscriptionId,omitempty"`
}

// CheckoutCompleted is emitted after a checkpoint closes a stay.
type CheckoutCompleted struct {
	TerminalID            string                 `json:"terminalId"`
	Receipt               models.CheckoutReceipt `json:"receipt"`
	TicketType            models.UserType        `json:"ticketType"`
	ForceConvertToVisitor bool                   `json:"forceConvertToVisitor"`
}

// Envelope is the JSON body of every published message.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// Publisher fans terminal activity out to downstream consumers. Implementations are
// best-effort; callers log failures and carry on.
type Publisher interface {
	PublishTicketIssued(ctx context.Context, event TicketIssued) error
	PublishCheckoutCompleted(ctx context.Context, event CheckoutCompleted) error
	Close() error
}

// NoopPublisher discards everything.
type NoopPublisher struct{}

// PublishTicketIssued discards the event.
func (NoopPublisher) PublishTicketIssued(context.Context, TicketIssued) error { return nil }

// PublishCheckoutCompleted discards the event.
func (NoopPublisher) PublishCheckoutCompleted(context.Context, CheckoutCompleted) error {
	return nil
}

// Close does nothing.
func (NoopPublisher) Close() error { return nil }
