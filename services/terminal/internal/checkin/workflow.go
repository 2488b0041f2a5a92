package checkin

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"parkgate/services/terminal/internal/apperr"
	"parkgate/services/terminal/internal/events"
	"parkgate/services/terminal/internal/models"
	"parkgate/services/terminal/internal/zones"
)

// State of the gate check-in workflow.
type State string

const (
	StateIdle               State = "idle"
	StateVerifying          State = "verifying"
	StateVerified           State = "verified"
	StateVerificationFailed State = "verification-failed"
	StateZoneSelecting      State = "zone-selecting"
	StateZoneSelected       State = "zone-selected"
	StateSubmitting         State = "submitting"
	StateTicketIssued       State = "ticket-issued"
)

// Authority is the part of the remote authority the gate talks to.
type Authority interface {
	Subscription(ctx context.Context, id string) (models.Subscription, error)
	Checkin(ctx context.Context, req models.CheckinRequest) (models.Ticket, error)
}

// View is a read-only copy of the workflow state for rendering.
type View struct {
	State        State
	Tab          models.UserType
	GateID       string
	SelectedZone string
	Subscription *models.Subscription
	Ticket       *models.Ticket
	LastError    error
}

// Workflow drives check-in at one gate. Remote calls run without the lock held; a result
// that lands after SetTab or Reset is discarded.
type Workflow struct {
	gateID     string
	terminalID string
	store      *zones.Store
	authority  Authority
	publisher  events.Publisher
	logger     *zap.Logger

	mu           sync.Mutex
	state        State
	tab          models.UserType
	selected     string
	subscription *models.Subscription
	ticket       *models.Ticket
	lastErr      error
	generation   uint64
}

// NewWorkflow builds a workflow for gateID on the visitor tab.
func NewWorkflow(gateID, terminalID string, store *zones.Store, authority Authority, publisher events.Publisher, logger *zap.Logger) *Workflow {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		gateID:     gateID,
		terminalID: terminalID,
		store:      store,
		authority:  authority,
		publisher:  publisher,
		logger:     logger.With(zap.String("gate_id", gateID)),
		state:      StateIdle,
		tab:        models.UserTypeVisitor,
	}
}

// SetTab switches between the visitor and subscriber forms. Selection and verification are
// cleared; visitors go straight to zone selection.
func (w *Workflow) SetTab(tab models.UserType) error {
	if !tab.Valid() {
		return apperr.Validation("checkin.tab", "unknown user type "+string(tab))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	w.tab = tab
	if tab == models.UserTypeVisitor {
		w.state = StateZoneSelecting
	}
	return nil
}

// Reset abandons whatever is in progress and returns to idle on the current tab.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

func (w *Workflow) resetLocked() {
	w.generation++
	w.state = StateIdle
	w.selected = ""
	w.subscription = nil
	w.ticket = nil
	w.lastErr = nil
}

// VerifySubscription looks up and checks the subscription presented at the gate.
func (w *Workflow) VerifySubscription(ctx context.Context, subscriptionID string) (models.Subscription, error) {
	const op = "checkin.verify"
	subscriptionID = strings.TrimSpace(subscriptionID)

	w.mu.Lock()
	if w.tab != models.UserTypeSubscriber {
		w.mu.Unlock()
		return models.Subscription{}, apperr.Precondition(op, "verification only applies to subscribers")
	}
	if w.state == StateVerifying || w.state == StateSubmitting {
		w.mu.Unlock()
		return models.Subscription{}, apperr.Precondition(op, "another request is in progress")
	}
	if subscriptionID == "" {
		err := apperr.Validation(op, "subscription id is required")
		w.lastErr = err
		w.mu.Unlock()
		return models.Subscription{}, err
	}
	w.state = StateVerifying
	w.selected = ""
	w.subscription = nil
	w.lastErr = nil
	gen := w.generation
	w.mu.Unlock()

	sub, err := w.authority.Subscription(ctx, subscriptionID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation {
		return models.Subscription{}, apperr.Precondition(op, "workflow was reset")
	}
	if err != nil {
		w.logger.Info("subscription lookup failed", zap.String("subscription_id", subscriptionID), zap.Error(err))
		w.state = StateVerificationFailed
		w.lastErr = apperr.NotFound(op, "subscription not found", err)
		return models.Subscription{}, w.lastErr
	}
	if !sub.Active {
		w.state = StateIdle
		w.lastErr = apperr.InactiveSubscription(op, sub.ID)
		return models.Subscription{}, w.lastErr
	}

	w.state = StateVerified
	w.subscription = &sub
	return sub, nil
}

// SelectableZones lists the gate's zones the current vehicle may enter.
func (w *Workflow) SelectableZones() []models.Zone {
	w.mu.Lock()
	tab := w.tab
	category, ok := w.categoryLocked()
	w.mu.Unlock()
	if !ok {
		return nil
	}

	var out []models.Zone
	for _, z := range w.store.ZonesForGate(w.gateID) {
		if zones.Eligible(z, tab, category) {
			out = append(out, z)
		}
	}
	return out
}

// categoryLocked returns the subscriber category, and false when a subscriber has not been
// verified yet.
func (w *Workflow) categoryLocked() (string, bool) {
	if w.tab != models.UserTypeSubscriber {
		return "", true
	}
	if w.subscription == nil {
		return "", false
	}
	return w.subscription.Category, true
}

// SelectZone marks zoneID as the target. Ineligible or unknown zones are ignored and false
// is returned.
func (w *Workflow) SelectZone(zoneID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateZoneSelecting, StateVerified, StateZoneSelected:
	case StateIdle:
		if w.tab != models.UserTypeVisitor {
			return false
		}
	default:
		return false
	}

	category, ok := w.categoryLocked()
	if !ok {
		return false
	}
	z, found := w.store.Zone(zoneID)
	if !found || !z.ServesGate(w.gateID) || !zones.Eligible(z, w.tab, category) {
		w.logger.Debug("ignoring selection of ineligible zone", zap.String("zone_id", zoneID))
		return false
	}
	w.selected = zoneID
	w.state = StateZoneSelected
	w.lastErr = nil
	return true
}

// ClearSelection drops the selected zone and goes back to choosing.
func (w *Workflow) ClearSelection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateZoneSelected {
		return
	}
	w.selected = ""
	if w.tab == models.UserTypeSubscriber {
		w.state = StateVerified
	} else {
		w.state = StateZoneSelecting
	}
}

// Submit requests a ticket for the selected zone. Eligibility is read from the store again
// here because push updates may have changed it since selection.
func (w *Workflow) Submit(ctx context.Context) (models.Ticket, error) {
	const op = "checkin.submit"

	w.mu.Lock()
	if w.state == StateSubmitting {
		w.mu.Unlock()
		return models.Ticket{}, apperr.Precondition(op, "submission already in progress")
	}
	if err := w.submitPreconditionLocked(op); err != nil {
		w.lastErr = err
		w.mu.Unlock()
		return models.Ticket{}, err
	}

	req := models.CheckinRequest{GateID: w.gateID, ZoneID: w.selected, Type: w.tab}
	if w.tab == models.UserTypeSubscriber {
		req.SubscriptionID = w.subscription.ID
	}
	w.state = StateSubmitting
	w.lastErr = nil
	gen := w.generation
	w.mu.Unlock()

	ticket, err := w.authority.Checkin(ctx, req)

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return models.Ticket{}, apperr.Precondition(op, "workflow was reset")
	}
	if err != nil {
		w.state = StateZoneSelected
		w.lastErr = err
		w.mu.Unlock()
		w.logger.Warn("check-in failed", zap.String("zone_id", req.ZoneID), zap.Error(err))
		return models.Ticket{}, err
	}
	w.selected = ""
	w.subscription = nil
	w.ticket = &ticket
	w.state = StateTicketIssued
	w.mu.Unlock()

	w.logger.Info("ticket issued", zap.String("ticket_id", ticket.ID), zap.String("zone_id", ticket.ZoneID), zap.String("type", string(ticket.Type)))
	if perr := w.publisher.PublishTicketIssued(ctx, events.TicketIssued{
		TerminalID:     w.terminalID,
		Ticket:         ticket,
		SubscriptionID: req.SubscriptionID,
	}); perr != nil {
		w.logger.Warn("ticket event not published", zap.String("ticket_id", ticket.ID), zap.Error(perr))
	}
	return ticket, nil
}

func (w *Workflow) submitPreconditionLocked(op string) error {
	if w.selected == "" {
		return apperr.Precondition(op, "no zone selected")
	}
	category, ok := w.categoryLocked()
	if !ok {
		return apperr.Precondition(op, "subscription not verified")
	}
	z, found := w.store.Zone(w.selected)
	if !found || !z.ServesGate(w.gateID) || !zones.Eligible(z, w.tab, category) {
		return apperr.Precondition(op, "zone "+w.selected+" is no longer available")
	}
	return nil
}

// Acknowledge closes the issued ticket and returns to idle.
func (w *Workflow) Acknowledge() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateTicketIssued {
		return
	}
	w.ticket = nil
	w.state = StateIdle
}

// Snapshot returns the current state for display.
func (w *Workflow) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := View{
		State:        w.state,
		Tab:          w.tab,
		GateID:       w.gateID,
		SelectedZone: w.selected,
		LastError:    w.lastErr,
	}
	if w.subscription != nil {
		sub := *w.subscription
		v.Subscription = &sub
	}
	if w.ticket != nil {
		t := *w.ticket
		v.Ticket = &t
	}
	return v
}
