package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"parkgate/services/terminal/internal/apperr"
	"parkgate/services/terminal/internal/events"
	"parkgate/services/terminal/internal/models"
)

// DefaultProbeSubscriptionIDs are tried in order when looking for the owner of a subscriber
// ticket. The authority has no ticket to subscription lookup, so owners outside this list are
// never found.
var DefaultProbeSubscriptionIDs = []string{"sub_001", "sub_002", "sub_003", "sub_004", "sub_005"}

// Authority is the part of the remote authority the checkpoint talks to.
type Authority interface {
	Ticket(ctx context.Context, id string) (models.Ticket, error)
	Subscription(ctx context.Context, id string) (models.Subscription, error)
	Checkout(ctx context.Context, req models.CheckoutRequest) (models.CheckoutReceipt, error)
}

// View is a read-only copy of the checkpoint state.
type View struct {
	Ticket       *models.Ticket
	Subscription *models.Subscription
	Receipt      *models.CheckoutReceipt
	Busy         bool
	CanCheckout  bool
	LastError    error
}

// Workflow drives checkout of one vehicle at a time.
type Workflow struct {
	terminalID string
	probeIDs   []string
	authority  Authority
	publisher  events.Publisher
	logger     *zap.Logger

	mu           sync.Mutex
	ticket       *models.Ticket
	subscription *models.Subscription
	receipt      *models.CheckoutReceipt
	busy         bool
	lastErr      error
	generation   uint64
}

// NewWorkflow builds a checkpoint workflow. A nil probeIDs uses DefaultProbeSubscriptionIDs.
func NewWorkflow(terminalID string, probeIDs []string, authority Authority, publisher events.Publisher, logger *zap.Logger) *Workflow {
	if probeIDs == nil {
		probeIDs = DefaultProbeSubscriptionIDs
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		terminalID: terminalID,
		probeIDs:   probeIDs,
		authority:  authority,
		publisher:  publisher,
		logger:     logger,
	}
}

// LookupTicket loads a ticket for display. For subscriber tickets the owning subscription is
// searched among the probe ids; no match leaves the subscription empty.
func (w *Workflow) LookupTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	const op = "checkout.lookup"
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		err := apperr.Validation(op, "ticket id is required")
		w.mu.Lock()
		w.lastErr = err
		w.mu.Unlock()
		return models.Ticket{}, err
	}

	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return models.Ticket{}, apperr.Precondition(op, "another request is in progress")
	}
	w.busy = true
	w.lastErr = nil
	w.ticket = nil
	w.subscription = nil
	gen := w.generation
	w.mu.Unlock()

	ticket, sub, err := w.fetch(ctx, ticketID)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	if gen != w.generation {
		return models.Ticket{}, apperr.Precondition(op, "workflow was reset")
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			err = apperr.NotFound(op, "ticket "+ticketID+" not found", err)
		}
		w.lastErr = err
		return models.Ticket{}, err
	}
	w.ticket = &ticket
	w.subscription = sub
	if ticket.CheckedOut() {
		w.logger.Info("ticket already checked out", zap.String("ticket_id", ticket.ID))
	}
	return ticket, nil
}

func (w *Workflow) fetch(ctx context.Context, ticketID string) (models.Ticket, *models.Subscription, error) {
	ticket, err := w.authority.Ticket(ctx, ticketID)
	if err != nil {
		return models.Ticket{}, nil, err
	}
	if ticket.Type != models.UserTypeSubscriber {
		return ticket, nil, nil
	}
	return ticket, w.probeOwner(ctx, ticket.ID), nil
}

func (w *Workflow) probeOwner(ctx context.Context, ticketID string) *models.Subscription {
	for _, id := range w.probeIDs {
		if ctx.Err() != nil {
			return nil
		}
		sub, err := w.authority.Subscription(ctx, id)
		if err != nil {
			w.logger.Debug("probe subscription failed", zap.String("subscription_id", id), zap.Error(err))
			continue
		}
		if sub.HasOpenTicket(ticketID) {
			return &sub
		}
	}
	w.logger.Info("no owning subscription found for ticket", zap.String("ticket_id", ticketID), zap.Int("probed", len(w.probeIDs)))
	return nil
}

// CanCheckout reports whether a loaded ticket is still open.
func (w *Workflow) CanCheckout() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canCheckoutLocked()
}

func (w *Workflow) canCheckoutLocked() bool {
	return w.ticket != nil && !w.ticket.CheckedOut() && !w.busy
}

// Checkout closes the loaded ticket. forceConvertToVisitor bills a subscriber stay at visitor
// rates and is dropped for visitor tickets.
func (w *Workflow) Checkout(ctx context.Context, forceConvertToVisitor bool) (models.CheckoutReceipt, error) {
	const op = "checkout.submit"

	w.mu.Lock()
	switch {
	case w.busy:
		w.mu.Unlock()
		return models.CheckoutReceipt{}, apperr.Precondition(op, "another request is in progress")
	case w.ticket == nil:
		w.mu.Unlock()
		return models.CheckoutReceipt{}, apperr.Precondition(op, "no ticket loaded")
	case w.ticket.CheckedOut():
		err := apperr.Precondition(op, "ticket "+w.ticket.ID+" is already checked out")
		w.lastErr = err
		w.mu.Unlock()
		return models.CheckoutReceipt{}, err
	}
	ticket := *w.ticket
	req := models.CheckoutRequest{
		TicketID:              ticket.ID,
		ForceConvertToVisitor: forceConvertToVisitor && ticket.Type == models.UserTypeSubscriber,
	}
	w.busy = true
	w.lastErr = nil
	gen := w.generation
	w.mu.Unlock()

	receipt, err := w.authority.Checkout(ctx, req)

	w.mu.Lock()
	w.busy = false
	if gen != w.generation {
		w.mu.Unlock()
		return models.CheckoutReceipt{}, apperr.Precondition(op, "workflow was reset")
	}
	if err != nil {
		w.lastErr = err
		w.mu.Unlock()
		w.logger.Warn("checkout failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return models.CheckoutReceipt{}, err
	}
	w.ticket = nil
	w.subscription = nil
	w.receipt = &receipt
	w.mu.Unlock()

	w.logger.Info("checkout completed",
		zap.String("ticket_id", receipt.TicketID),
		zap.Float64("amount", receipt.Amount),
		zap.Bool("force_convert", req.ForceConvertToVisitor),
	)
	if perr := w.publisher.PublishCheckoutCompleted(ctx, events.CheckoutCompleted{
		TerminalID:            w.terminalID,
		Receipt:               receipt,
		TicketType:            ticket.Type,
		ForceConvertToVisitor: req.ForceConvertToVisitor,
	}); perr != nil {
		w.logger.Warn("checkout event not published", zap.String("ticket_id", receipt.TicketID), zap.Error(perr))
	}
	return receipt, nil
}

// Reset clears the ticket, subscription, receipt and error.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.generation++
	w.ticket = nil
	w.subscription = nil
	w.receipt = nil
	w.busy = false
	w.lastErr = nil
}

// Snapshot returns the current state for display.
func (w *Workflow) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := View{Busy: w.busy, CanCheckout: w.canCheckoutLocked(), LastError: w.lastErr}
	if w.ticket != nil {
		t := *w.ticket
		v.Ticket = &t
	}
	if w.subscription != nil {
		s := *w.subscription
		v.Subscription = &s
	}
	if w.receipt != nil {
		r := *w.receipt
		v.Receipt = &r
	}
	return v
}
