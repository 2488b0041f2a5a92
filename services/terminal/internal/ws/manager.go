package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"parkgate/services/terminal/internal/apperr"
	"parkgate/services/terminal/internal/models"
)

// State of the push channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

// String returns the state name used in logs and the status endpoint.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

// Stopper cancels a scheduled callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// ManagerConfig tunes the push channel. ReadTimeout is how long the channel may stay silent,
// pongs included, before it is treated as lost; it defaults to twice PingInterval.
type ManagerConfig struct {
	URL          string
	BaseDelay    time.Duration
	MaxAttempts  int
	PingInterval time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	AfterFunc    AfterFunc
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.ReadTimeout <= 0 && c.PingInterval > 0 {
		c.ReadTimeout = 2 * c.PingInterval
	}
	if c.AfterFunc == nil {
		c.AfterFunc = realAfterFunc
	}
	return c
}

// ListenerID identifies a registered listener for Off.
type ListenerID uint64

// Manager owns one push channel to the authority. It reconnects with linear backoff and
// restores the tracked gate subscription after every successful connect.
type Manager struct {
	cfg    ManagerConfig
	dialer Dialer
	logger *zap.Logger

	// dialMu serialises dial attempts so two reconnects never overlap.
	dialMu sync.Mutex

	mu        sync.Mutex
	conn      *Connection
	state     State
	attempts  int
	gateID    string
	timer     Stopper
	closed    bool
	available bool
	nextID    ListenerID

	zoneListeners  map[ListenerID]func(models.Zone)
	adminListeners map[ListenerID]func(models.AuditEntry)
	connListeners  map[ListenerID]func(bool)
}

// NewManager builds a manager. Nothing is dialled until Connect.
func NewManager(cfg ManagerConfig, dialer Dialer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:            cfg.withDefaults(),
		dialer:         dialer,
		logger:         logger,
		zoneListeners:  make(map[ListenerID]func(models.Zone)),
		adminListeners: make(map[ListenerID]func(models.AuditEntry)),
		connListeners:  make(map[ListenerID]func(bool)),
	}
}

// Connect dials the channel and returns once it is open. Only the handshake error of this
// call is returned; it still schedules automatic reconnect attempts. An explicit Connect
// restores the full attempt budget.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.closed = false
	m.attempts = 0
	m.stopTimerLocked()
	m.mu.Unlock()

	return m.dial(ctx, false)
}

func (m *Manager) dial(ctx context.Context, reconnect bool) error {
	m.dialMu.Lock()
	defer m.dialMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return apperr.Precondition("ws.connect", "manager disconnected")
	}
	if m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	attempt := m.attempts
	m.mu.Unlock()

	m.logger.Info("connecting push channel", zap.String("url", m.cfg.URL), zap.Int("attempt", attempt))
	raw, err := m.dialer.Dial(ctx, m.cfg.URL)
	if err != nil {
		m.logger.Warn("push channel dial failed", zap.Int("attempt", attempt), zap.Error(err))
		m.mu.Lock()
		if !m.closed {
			m.state = StateDisconnected
		}
		m.mu.Unlock()
		m.scheduleReconnect()
		return apperr.Network("ws.connect", err)
	}

	conn := NewConnection(raw, m.cfg, m.logger, m.handleFrame, m.handleClose)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = raw.Close()
		return apperr.Precondition("ws.connect", "manager disconnected")
	}
	m.conn = conn
	m.state = StateConnected
	m.attempts = 0
	m.stopTimerLocked()
	gateID := m.gateID
	m.mu.Unlock()

	conn.Start()
	m.logger.Info("push channel connected", zap.String("conn_id", conn.ID()), zap.Bool("reconnect", reconnect))

	m.mu.Lock()
	if m.closed || m.conn != conn {
		closed := m.closed
		m.mu.Unlock()
		conn.Close()
		if closed {
			return apperr.Precondition("ws.connect", "manager disconnected")
		}
		return apperr.Network("ws.connect", errConnectionClosed)
	}
	listeners := m.transitionLocked(true)
	m.mu.Unlock()
	notify(listeners, true)

	if gateID != "" {
		if err := m.sendDirective(conn, TypeSubscribe, gateID); err != nil {
			m.logger.Warn("resubscribe failed", zap.String("gate_id", gateID), zap.Error(err))
		}
	}
	return nil
}

func (m *Manager) handleClose(c *Connection) {
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	closed := m.closed
	if !closed {
		m.state = StateDisconnected
	}
	m.mu.Unlock()

	m.logger.Info("push channel disconnected", zap.String("conn_id", c.ID()))
	m.setAvailable(false)
	if !closed {
		m.scheduleReconnect()
	}
}

// scheduleReconnect arms attempt N after N × BaseDelay, or gives up at the cap.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.timer != nil {
		return
	}
	if m.attempts >= m.cfg.MaxAttempts {
		m.state = StateDisconnected
		m.logger.Warn("reconnect attempts exhausted", zap.Int("attempts", m.attempts))
		return
	}
	m.attempts++
	delay := time.Duration(m.attempts) * m.cfg.BaseDelay
	m.state = StateReconnecting
	m.logger.Info("scheduling reconnect", zap.Int("attempt", m.attempts), zap.Int("max_attempts", m.cfg.MaxAttempts), zap.Duration("delay", delay))

	var timer Stopper
	timer = m.cfg.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.timer != timer {
			m.mu.Unlock()
			return
		}
		m.timer = nil
		m.mu.Unlock()
		_ = m.dial(context.Background(), true)
	})
	m.timer = timer
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) handleFrame(raw []byte) {
	msg, err := Parse(raw)
	if err != nil {
		m.logger.Warn("dropping malformed push message", zap.Error(err), zap.ByteString("raw", truncate(raw, 256)))
		return
	}

	switch msg := msg.(type) {
	case ZoneUpdate:
		for _, fn := range m.zoneSnapshot() {
			fn(msg.Zone.Clone())
		}
	case AdminUpdate:
		for _, fn := range m.adminSnapshot() {
			fn(msg.Entry)
		}
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// Subscribe tracks gateID as the active subscription and sends the directive when connected.
// A new gate supersedes the previous one without unsubscribing it on the wire.
func (m *Manager) Subscribe(gateID string) error {
	if gateID == "" {
		return apperr.Validation("ws.subscribe", "gate id is required")
	}
	m.mu.Lock()
	m.gateID = gateID
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	return m.sendDirective(conn, TypeSubscribe, gateID)
}

// Unsubscribe sends the directive when connected and stops tracking gateID if it is current.
func (m *Manager) Unsubscribe(gateID string) error {
	m.mu.Lock()
	if m.gateID == gateID {
		m.gateID = ""
	}
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	return m.sendDirective(conn, TypeUnsubscribe, gateID)
}

func (m *Manager) sendDirective(conn *Connection, msgType, gateID string) error {
	data, err := encodeGateDirective(msgType, gateID)
	if err != nil {
		return err
	}
	if err := conn.Send(data); err != nil {
		return apperr.Network("ws.send", err)
	}
	return nil
}

// Send writes a raw frame. It fails with a network error while disconnected.
func (m *Manager) Send(data []byte) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return apperr.Network("ws.send", errors.New("channel not connected"))
	}
	if err := conn.Send(data); err != nil {
		return apperr.Network("ws.send", err)
	}
	return nil
}

// Disconnect closes the channel, forgets the subscription and cancels any pending
// reconnect. Nothing reconnects until Connect is called again.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closed = true
	m.gateID = ""
	m.stopTimerLocked()
	conn := m.conn
	m.conn = nil
	m.state = StateClosed
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.setAvailable(false)
}

// OnZoneUpdate registers fn for zone-update messages. Every call adds a new listener with its
// own id, so registering the same func twice delivers each message to it twice.
func (m *Manager) OnZoneUpdate(fn func(models.Zone)) ListenerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.zoneListeners[m.nextID] = fn
	return m.nextID
}

// OnAdminUpdate registers fn for admin-update messages. Like OnZoneUpdate, each call is a
// separate registration.
func (m *Manager) OnAdminUpdate(fn func(models.AuditEntry)) ListenerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.adminListeners[m.nextID] = fn
	return m.nextID
}

// OnConnectionChange registers fn for availability transitions. Each call is a separate
// registration.
func (m *Manager) OnConnectionChange(fn func(bool)) ListenerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.connListeners[m.nextID] = fn
	return m.nextID
}

// Off removes a listener of any kind. Unknown ids are ignored.
func (m *Manager) Off(id ListenerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.zoneListeners, id)
	delete(m.adminListeners, id)
	delete(m.connListeners, id)
}

func (m *Manager) zoneSnapshot() []func(models.Zone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]func(models.Zone), 0, len(m.zoneListeners))
	for _, fn := range m.zoneListeners {
		out = append(out, fn)
	}
	return out
}

func (m *Manager) adminSnapshot() []func(models.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]func(models.AuditEntry), 0, len(m.adminListeners))
	for _, fn := range m.adminListeners {
		out = append(out, fn)
	}
	return out
}

// setAvailable notifies connection listeners on transitions only.
func (m *Manager) setAvailable(available bool) {
	m.mu.Lock()
	listeners := m.transitionLocked(available)
	m.mu.Unlock()
	notify(listeners, available)
}

// transitionLocked records the availability flag and returns the listeners to notify, or nil
// when nothing changed.
func (m *Manager) transitionLocked(available bool) []func(bool) {
	if m.available == available {
		return nil
	}
	m.available = available
	listeners := make([]func(bool), 0, len(m.connListeners))
	for _, fn := range m.connListeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func notify(listeners []func(bool), available bool) {
	for _, fn := range listeners {
		fn(available)
	}
}

// Connected reports whether the channel is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

// State returns the current channel state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns the number of reconnect attempts since the last successful connect.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// GateID returns the tracked subscription, if any.
func (m *Manager) GateID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gateID
}
