package zones

import (
	"sync"

	"go.uber.org/zap"

	"parkgate/services/terminal/internal/models"
)

// Store is the working set of zones for the active gate.
type Store struct {
	mu     sync.RWMutex
	zones  []models.Zone
	index  map[string]int
	logger *zap.Logger
}

// NewStore builds an empty store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{index: make(map[string]int), logger: logger}
}

// LoadSnapshot replaces the whole working set, keeping the given order.
func (s *Store) LoadSnapshot(snapshot []models.Zone) {
	zones := make([]models.Zone, 0, len(snapshot))
	index := make(map[string]int, len(snapshot))
	for _, z := range snapshot {
		s.check(z)
		if _, dup := index[z.ID]; dup {
			s.logger.Warn("duplicate zone in snapshot", zap.String("zone_id", z.ID))
			zones[index[z.ID]] = z.Clone()
			continue
		}
		index[z.ID] = len(zones)
		zones = append(zones, z.Clone())
	}

	s.mu.Lock()
	s.zones = zones
	s.index = index
	s.mu.Unlock()
}

// ApplyUpdate replaces the zone with the same id. Updates for zones outside the working set
// are dropped and reported as false.
func (s *Store) ApplyUpdate(zone models.Zone) bool {
	s.mu.Lock()
	i, ok := s.index[zone.ID]
	if ok {
		s.zones[i] = zone.Clone()
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Debug("dropping update for untracked zone", zap.String("zone_id", zone.ID))
		return false
	}
	s.check(zone)
	return true
}

// ZonesForGate returns the zones reachable through gateID. Closed zones are included.
func (s *Store) ZonesForGate(gateID string) []models.Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Zone
	for _, z := range s.zones {
		if z.ServesGate(gateID) {
			out = append(out, z.Clone())
		}
	}
	return out
}

// Zone returns the current entry for id.
func (s *Store) Zone(id string) (models.Zone, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Zone{}, false
	}
	return s.zones[i].Clone(), true
}

// All returns every tracked zone in snapshot order.
func (s *Store) All() []models.Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Zone, len(s.zones))
	for i, z := range s.zones {
		out[i] = z.Clone()
	}
	return out
}

// Len returns the number of tracked zones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.zones)
}

func (s *Store) check(z models.Zone) {
	if err := z.CheckInvariant(); err != nil {
		s.logger.Warn("zone capacity figures inconsistent", zap.String("zone_id", z.ID), zap.Error(err))
	}
}

// Eligible reports whether a vehicle of userType may be sent to zone. Subscribers must also
// hold a subscription in the zone's category.
func Eligible(zone models.Zone, userType models.UserType, subscriberCategory string) bool {
	if !zone.Open {
		return false
	}
	switch userType {
	case models.UserTypeVisitor:
		return zone.AvailableForVisitors > 0
	case models.UserTypeSubscriber:
		return zone.AvailableForSubscribers > 0 && zone.CategoryID == subscriberCategory
	default:
		return false
	}
}
