package gateview

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"parkgate/services/terminal/internal/apperr"
	"parkgate/services/terminal/internal/models"
	"parkgate/services/terminal/internal/ws"
	"parkgate/services/terminal/internal/zones"
)

// Authority serves the gate and zone snapshots.
type Authority interface {
	Gates(ctx context.Context) ([]models.Gate, error)
	Zones(ctx context.Context, gateID string) ([]models.Zone, error)
}

// Channel is the push channel as seen by a gate view. *ws.Manager implements it.
type Channel interface {
	Connect(ctx context.Context) error
	Subscribe(gateID string) error
	Unsubscribe(gateID string) error
	Disconnect()
	Connected() bool
	OnZoneUpdate(fn func(models.Zone)) ws.ListenerID
	OnConnectionChange(fn func(bool)) ws.ListenerID
	Off(id ws.ListenerID)
}

// Hooks are optional callbacks for the presentation layer. They run on the channel's read
// goroutine after the store has been updated.
type Hooks struct {
	ZoneUpdated       func(models.Zone)
	ConnectionChanged func(bool)
}

// View owns the lifetime of one gate screen: the zone snapshot, the push subscription and the
// listeners feeding the store.
type View struct {
	authority Authority
	channel   Channel
	store     *zones.Store
	hooks     Hooks
	logger    *zap.Logger

	mu        sync.Mutex
	gate      *models.Gate
	listeners []ws.ListenerID
}

// New builds a closed view.
func New(authority Authority, channel Channel, store *zones.Store, hooks Hooks, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{authority: authority, channel: channel, store: store, hooks: hooks, logger: logger}
}

// Open loads gateID and starts live updates. A channel that cannot connect is logged and
// retried in the background; the REST snapshot is still usable.
func (v *View) Open(ctx context.Context, gateID string) (models.Gate, error) {
	const op = "gateview.open"
	if gateID == "" {
		return models.Gate{}, apperr.Validation(op, "gate id is required")
	}

	v.mu.Lock()
	if v.gate != nil {
		current := v.gate.ID
		v.mu.Unlock()
		return models.Gate{}, apperr.Precondition(op, "gate "+current+" is still open")
	}
	v.mu.Unlock()

	gates, err := v.authority.Gates(ctx)
	if err != nil {
		return models.Gate{}, err
	}
	var gate *models.Gate
	for i := range gates {
		if gates[i].ID == gateID {
			gate = &gates[i]
			break
		}
	}
	if gate == nil {
		return models.Gate{}, apperr.NotFound(op, "gate "+gateID+" not found", nil)
	}

	snapshot, err := v.authority.Zones(ctx, gateID)
	if err != nil {
		return models.Gate{}, err
	}
	v.store.LoadSnapshot(snapshot)

	logger := v.logger.With(zap.String("gate_id", gateID))
	if err := v.channel.Connect(ctx); err != nil {
		logger.Warn("push channel unavailable, live updates paused", zap.Error(err))
	}

	zoneID := v.channel.OnZoneUpdate(func(z models.Zone) {
		if !v.store.ApplyUpdate(z) {
			return
		}
		if v.hooks.ZoneUpdated != nil {
			v.hooks.ZoneUpdated(z)
		}
	})
	connID := v.channel.OnConnectionChange(func(up bool) {
		logger.Info("push channel availability changed", zap.Bool("connected", up))
		if v.hooks.ConnectionChanged != nil {
			v.hooks.ConnectionChanged(up)
		}
	})
	if err := v.channel.Subscribe(gateID); err != nil {
		logger.Warn("subscribe failed, will retry on reconnect", zap.Error(err))
	}

	v.mu.Lock()
	v.gate = gate
	v.listeners = []ws.ListenerID{zoneID, connID}
	v.mu.Unlock()

	logger.Info("gate opened", zap.Int("zones", len(snapshot)), zap.Bool("live", v.channel.Connected()))
	return *gate, nil
}

// RefreshSnapshot re-fetches the zones of the open gate. A push update that lands during the
// fetch can be overwritten by the older snapshot.
func (v *View) RefreshSnapshot(ctx context.Context) error {
	v.mu.Lock()
	gate := v.gate
	v.mu.Unlock()
	if gate == nil {
		return apperr.Precondition("gateview.refresh", "no gate open")
	}

	snapshot, err := v.authority.Zones(ctx, gate.ID)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gate == nil || v.gate.ID != gate.ID {
		return nil
	}
	v.store.LoadSnapshot(snapshot)
	return nil
}

// Close removes the listeners, unsubscribes and disconnects. It must run before another gate
// is opened on the same channel.
func (v *View) Close() {
	v.mu.Lock()
	gate := v.gate
	listeners := v.listeners
	v.gate = nil
	v.listeners = nil
	v.mu.Unlock()

	if gate == nil {
		return
	}
	for _, id := range listeners {
		v.channel.Off(id)
	}
	if err := v.channel.Unsubscribe(gate.ID); err != nil {
		v.logger.Debug("unsubscribe on close failed", zap.String("gate_id", gate.ID), zap.Error(err))
	}
	v.channel.Disconnect()
	v.logger.Info("gate closed", zap.String("gate_id", gate.ID))
}

// Gate returns the open gate.
func (v *View) Gate() (models.Gate, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gate == nil {
		return models.Gate{}, false
	}
	return *v.gate, true
}

// Zones returns the open gate's zones from the store.
func (v *View) Zones() []models.Zone {
	gate, ok := v.Gate()
	if !ok {
		return nil
	}
	return v.store.ZonesForGate(gate.ID)
}

// Live reports whether push updates are flowing.
func (v *View) Live() bool {
	return v.channel.Connected()
}
