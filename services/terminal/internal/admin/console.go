package admin

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"parkgate/services/terminal/internal/apperr"
	"parkgate/services/terminal/internal/audit"
	"parkgate/services/terminal/internal/models"
	"parkgate/services/terminal/internal/ws"
)

// Client is the authenticated admin surface of the authority.
type Client interface {
	ParkingState(ctx context.Context, token string) ([]models.ParkingStateReport, error)
	UpdateCategory(ctx context.Context, token, categoryID string, rates models.CategoryRates) error
	SetZoneOpen(ctx context.Context, token, zoneID string, open bool) error
	AddRushHour(ctx context.Context, token string, rush models.RushHour) (models.RushHour, error)
	AddVacation(ctx context.Context, token string, vacation models.Vacation) (models.Vacation, error)
	Subscriptions(ctx context.Context, token string) ([]models.Subscription, error)
}

// Catalog serves the public master data.
type Catalog interface {
	Categories(ctx context.Context) ([]models.Category, error)
}

// Channel is the push channel as seen by the console.
type Channel interface {
	Connect(ctx context.Context) error
	Disconnect()
	OnAdminUpdate(fn func(models.AuditEntry)) ws.ListenerID
	Off(id ws.ListenerID)
}

// Tokens hands out the bearer token of a logged in operator.
type Tokens interface {
	RequireRole(role string) (string, error)
}

// Console backs the admin screen.
type Console struct {
	client  Client
	catalog Catalog
	channel Channel
	feed    audit.Feed
	tokens  Tokens
	logger  *zap.Logger

	mu            sync.Mutex
	report        []models.ParkingStateReport
	categories    []models.Category
	subscriptions []models.Subscription
	lastErr       error
	listener      ws.ListenerID
	live          bool
}

// NewConsole wires a console. A nil feed keeps the audit log in memory.
func NewConsole(client Client, catalog Catalog, channel Channel, feed audit.Feed, tokens Tokens, logger *zap.Logger) *Console {
	if feed == nil {
		feed = audit.NewMemoryFeed()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{client: client, catalog: catalog, channel: channel, feed: feed, tokens: tokens, logger: logger}
}

func (c *Console) token() (string, error) {
	return c.tokens.RequireRole(models.RoleAdmin)
}

func (c *Console) fail(err error) error {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	return err
}

// Load fetches the parking-state report, categories and subscriptions.
func (c *Console) Load(ctx context.Context) error {
	token, err := c.token()
	if err != nil {
		return c.fail(err)
	}
	report, err := c.client.ParkingState(ctx, token)
	if err != nil {
		return c.fail(err)
	}
	categories, err := c.catalog.Categories(ctx)
	if err != nil {
		return c.fail(err)
	}
	subs, err := c.client.Subscriptions(ctx, token)
	if err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	c.report = report
	c.categories = categories
	c.subscriptions = subs
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

// Start connects the push channel and records admin-update messages in the feed. A channel
// failure is logged; the console keeps working over REST.
func (c *Console) Start(ctx context.Context) {
	c.mu.Lock()
	if c.live {
		c.mu.Unlock()
		return
	}
	c.live = true
	c.mu.Unlock()

	id := c.channel.OnAdminUpdate(func(entry models.AuditEntry) {
		if err := c.feed.Append(context.Background(), entry); err != nil {
			c.logger.Warn("audit entry dropped", zap.String("action", entry.Action), zap.Error(err))
		}
	})
	c.mu.Lock()
	c.listener = id
	c.mu.Unlock()

	if err := c.channel.Connect(ctx); err != nil {
		c.logger.Warn("admin push channel unavailable", zap.Error(err))
	}
}

// Stop deregisters the listener and closes the channel.
func (c *Console) Stop() {
	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		return
	}
	c.live = false
	id := c.listener
	c.mu.Unlock()

	c.channel.Off(id)
	c.channel.Disconnect()
}

// ToggleZone flips a zone between open and closed, then reloads the report.
func (c *Console) ToggleZone(ctx context.Context, zoneID string) (bool, error) {
	const op = "admin.toggle_zone"
	token, err := c.token()
	if err != nil {
		return false, c.fail(err)
	}

	c.mu.Lock()
	var (
		current bool
		found   bool
	)
	for _, r := range c.report {
		if r.ZoneID == zoneID {
			current, found = r.Open, true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return false, c.fail(apperr.NotFound(op, "zone "+zoneID+" not in report", nil))
	}

	next := !current
	if err := c.client.SetZoneOpen(ctx, token, zoneID, next); err != nil {
		return current, c.fail(err)
	}
	c.logger.Info("zone toggled", zap.String("zone_id", zoneID), zap.Bool("open", next))

	report, err := c.client.ParkingState(ctx, token)
	if err != nil {
		return next, c.fail(err)
	}
	c.mu.Lock()
	c.report = report
	c.lastErr = nil
	c.mu.Unlock()
	return next, nil
}

// UpdateCategoryRates changes a category's rates, then reloads the categories.
func (c *Console) UpdateCategoryRates(ctx context.Context, categoryID string, rates models.CategoryRates) error {
	const op = "admin.update_rates"
	if strings.TrimSpace(categoryID) == "" {
		return c.fail(apperr.Validation(op, "category id is required"))
	}
	if err := checkForm(op, rates); err != nil {
		return c.fail(err)
	}
	token, err := c.token()
	if err != nil {
		return c.fail(err)
	}
	if err := c.client.UpdateCategory(ctx, token, categoryID, rates); err != nil {
		return c.fail(err)
	}

	categories, err := c.catalog.Categories(ctx)
	if err != nil {
		return c.fail(err)
	}
	c.mu.Lock()
	c.categories = categories
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

// AddRushHour creates a special-rate window.
func (c *Console) AddRushHour(ctx context.Context, rush models.RushHour) (models.RushHour, error) {
	const op = "admin.add_rush_hour"
	if err := checkRushHour(op, rush); err != nil {
		return models.RushHour{}, c.fail(err)
	}
	token, err := c.token()
	if err != nil {
		return models.RushHour{}, c.fail(err)
	}
	created, err := c.client.AddRushHour(ctx, token, rush)
	if err != nil {
		return models.RushHour{}, c.fail(err)
	}
	return created, nil
}

// AddVacation creates a holiday period.
func (c *Console) AddVacation(ctx context.Context, vacation models.Vacation) (models.Vacation, error) {
	const op = "admin.add_vacation"
	if err := checkVacation(op, vacation); err != nil {
		return models.Vacation{}, c.fail(err)
	}
	token, err := c.token()
	if err != nil {
		return models.Vacation{}, c.fail(err)
	}
	created, err := c.client.AddVacation(ctx, token, vacation)
	if err != nil {
		return models.Vacation{}, c.fail(err)
	}
	return created, nil
}

// AuditLog returns up to n recent admin updates, newest first.
func (c *Console) AuditLog(ctx context.Context, n int) ([]models.AuditEntry, error) {
	return c.feed.Recent(ctx, n)
}

// ClearAuditLog empties the feed.
func (c *Console) ClearAuditLog(ctx context.Context) error {
	return c.feed.Clear(ctx)
}

// Report returns the last loaded parking-state report.
func (c *Console) Report() []models.ParkingStateReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ParkingStateReport(nil), c.report...)
}

// Categories returns the last loaded categories.
func (c *Console) Categories() []models.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Category(nil), c.categories...)
}

// Subscriptions returns the last loaded subscriptions.
func (c *Console) Subscriptions() []models.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Subscription(nil), c.subscriptions...)
}

// LastError returns the error of the most recent failed action.
func (c *Console) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
