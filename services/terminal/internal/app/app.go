package app

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "parkgate/libs/redis"
	"parkgate/services/terminal/internal/admin"
	"parkgate/services/terminal/internal/audit"
	"parkgate/services/terminal/internal/checkin"
	"parkgate/services/terminal/internal/checkout"
	"parkgate/services/terminal/internal/clients"
	"parkgate/services/terminal/internal/config"
	"parkgate/services/terminal/internal/events"
	"parkgate/services/terminal/internal/gateview"
	httpserver "parkgate/services/terminal/internal/http"
	"parkgate/services/terminal/internal/http/handlers"
	"parkgate/services/terminal/internal/receipt"
	"parkgate/services/terminal/internal/session"
	"parkgate/services/terminal/internal/ws"
	"parkgate/services/terminal/internal/zones"
)

// App wires the terminal's shared dependencies. Screens build their own channel, store and
// workflow on top of it so each owns its lifetime.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	startedAt time.Time

	Authority *clients.AuthorityClient
	Admin     *clients.AdminClient
	Session   *session.Holder
	Publisher events.Publisher
	Feed      audit.Feed
	Renderer  receipt.Renderer

	redis *goredis.Client
}

// New builds the application graph. Redis and AMQP are optional; when configured but
// unreachable the terminal falls back to the in-memory feed and no event publishing.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	httpClient := clients.NewDefaultHTTPClient(cfg.Authority.Timeout)

	a := &App{
		cfg:       cfg,
		logger:    logger,
		startedAt: time.Now().UTC(),
		Authority: clients.NewAuthorityClient(cfg.Authority.BaseURL, httpClient, logger),
		Admin:     clients.NewAdminClient(cfg.Authority.BaseURL, httpClient, logger),
		Session:   session.NewHolder(),
		Publisher: events.NoopPublisher{},
		Feed:      audit.NewMemoryFeed(),
		Renderer:  receipt.Renderer{Currency: cfg.Display.Currency, Location: cfg.Location()},
	}

	if cfg.Redis.Addr != "" {
		client, err := libredis.NewClient(ctx, libredis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			logger.Warn("redis unavailable, audit feed kept in memory", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			a.redis = client
			a.Feed = audit.NewRedisFeed(client, cfg.Redis.AuditKey, cfg.Redis.AuditTTL, logger)
		}
	}

	if cfg.AMQP.URL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logger)
		if err != nil {
			logger.Warn("amqp unavailable, terminal events disabled", zap.Error(err))
		} else {
			a.Publisher = pub
		}
	}

	return a, nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// NewChannel returns a fresh push channel to the authority.
func (a *App) NewChannel() *ws.Manager {
	return ws.NewManager(ws.ManagerConfig{
		URL:          a.cfg.Authority.WSURL,
		BaseDelay:    a.cfg.WebSocket.ReconnectBaseDelay,
		MaxAttempts:  a.cfg.WebSocket.ReconnectMaxAttempts,
		PingInterval: a.cfg.WebSocket.PingInterval,
		WriteTimeout: a.cfg.WebSocket.WriteTimeout,
		ReadTimeout:  a.cfg.WebSocket.ReadTimeout,
	}, ws.GorillaDialer{Dialer: websocket.DefaultDialer}, a.logger)
}

// Gate bundles everything a gate screen needs.
type Gate struct {
	Channel  *ws.Manager
	Store    *zones.Store
	View     *gateview.View
	Workflow *checkin.Workflow
}

// NewGate builds the gate screen for gateID. The caller opens and closes the view.
func (a *App) NewGate(gateID string, hooks gateview.Hooks) *Gate {
	channel := a.NewChannel()
	store := zones.NewStore(a.logger)
	return &Gate{
		Channel:  channel,
		Store:    store,
		View:     gateview.New(a.Authority, channel, store, hooks, a.logger),
		Workflow: checkin.NewWorkflow(gateID, a.cfg.TerminalID, store, a.Authority, a.Publisher, a.logger),
	}
}

// NewCheckpoint builds the checkout workflow.
func (a *App) NewCheckpoint() *checkout.Workflow {
	return checkout.NewWorkflow(a.cfg.TerminalID, a.cfg.Checkout.ProbeSubscriptionIDs, a.Authority, a.Publisher, a.logger)
}

// NewAdminConsole builds the admin console with its own push channel.
func (a *App) NewAdminConsole() (*admin.Console, *ws.Manager) {
	channel := a.NewChannel()
	return admin.NewConsole(a.Admin, a.Authority, channel, a.Feed, a.Session, a.logger), channel
}

// ServeStatus runs the local status endpoint until ctx ends. It returns immediately when no
// address is configured.
func (a *App) ServeStatus(ctx context.Context, status func() handlers.Status) error {
	if a.cfg.Status.Addr == "" {
		return nil
	}
	router := httpserver.NewRouter(httpserver.Routes{
		Health: handlers.NewHealthHandler(),
		Status: handlers.NewStatusHandler(func() handlers.Status {
			s := status()
			s.StartedAt = a.startedAt
			return s
		}),
	}, a.logger)
	return httpserver.NewServer(a.cfg.Status.Addr, router, a.logger).Run(ctx)
}

// ChannelStatus fills the channel fields of a status report.
func ChannelStatus(mode string, channel *ws.Manager) handlers.Status {
	return handlers.Status{
		Mode:      mode,
		GateID:    channel.GateID(),
		Channel:   channel.State().String(),
		Connected: channel.Connected(),
		Attempts:  channel.Attempts(),
	}
}

// Close releases resources.
func (a *App) Close() {
	if err := a.Publisher.Close(); err != nil {
		a.logger.Warn("failed to close event publisher", zap.Error(err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
