package zones

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"parkgate/services/terminal/internal/models"
)

func zone(id, category string, gates ...string) models.Zone {
	return models.Zone{
		ID:                      id,
		Name:                    "Zone " + id,
		CategoryID:              category,
		GateIDs:                 gates,
		TotalSlots:              10,
		Occupied:                8,
		Free:                    2,
		AvailableForVisitors:    2,
		AvailableForSubscribers: 1,
		Open:                    true,
	}
}

func seeded() *Store {
	s := NewStore(zap.NewNop())
	s.LoadSnapshot([]models.Zone{
		zone("zone_A", "cat_premium", "gate_1"),
		zone("zone_B", "cat_regular", "gate_1", "gate_2"),
		zone("zone_C", "cat_regular", "gate_2"),
		zone("zone_D", "cat_economy", "gate_3"),
	})
	return s
}

func ids(zs []models.Zone) []string {
	out := make([]string, len(zs))
	for i, z := range zs {
		out[i] = z.ID
	}
	return out
}

func TestZonesForGateFiltersWithoutGatingOnOpen(t *testing.T) {
	s := seeded()
	closed := zone("zone_B", "cat_regular", "gate_1", "gate_2")
	closed.Open = false
	require.True(t, s.ApplyUpdate(closed))

	assert.Equal(t, []string{"zone_A", "zone_B"}, ids(s.ZonesForGate("gate_1")))
	assert.Equal(t, []string{"zone_B", "zone_C"}, ids(s.ZonesForGate("gate_2")))
	assert.Empty(t, s.ZonesForGate("gate_9"))
}

func TestApplyUpdateDropsUnknownZone(t *testing.T) {
	s := seeded()
	before := s.All()

	assert.False(t, s.ApplyUpdate(zone("zone_X", "cat_regular", "gate_1")))
	assert.Equal(t, before, s.All())
	_, ok := s.Zone("zone_X")
	assert.False(t, ok)
}

func TestApplyUpdateTouchesOnlyMatchingEntry(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	gates := []string{"gate_1", "gate_2", "gate_3"}
	s := seeded()

	for i := 0; i < 200; i++ {
		current := s.All()
		target := current[rng.Intn(len(current))]

		update := target.Clone()
		update.AvailableForVisitors = rng.Intn(3)
		update.AvailableForSubscribers = rng.Intn(2)
		update.Open = rng.Intn(4) != 0
		update.Name = fmt.Sprintf("%s rev %d", target.ID, i)

		before := make(map[string][]models.Zone, len(gates))
		for _, g := range gates {
			before[g] = s.ZonesForGate(g)
		}

		require.True(t, s.ApplyUpdate(update))

		for _, g := range gates {
			after := s.ZonesForGate(g)
			if !target.ServesGate(g) {
				assert.Equal(t, before[g], after, "gate %s unaffected by %s", g, target.ID)
				continue
			}
			require.Len(t, after, len(before[g]))
			diffs := 0
			for j := range after {
				if after[j].ID == update.ID {
					assert.Equal(t, update, after[j])
				} else {
					assert.Equal(t, before[g][j], after[j])
				}
				if !assert.ObjectsAreEqual(before[g][j], after[j]) {
					diffs++
				}
			}
			assert.Equal(t, 1, diffs)
		}
	}
}

func TestUpdatesApplyInArrivalOrder(t *testing.T) {
	s := seeded()
	first := zone("zone_A", "cat_premium", "gate_1")
	first.AvailableForVisitors = 0
	second := zone("zone_A", "cat_premium", "gate_1")
	second.AvailableForVisitors = 1

	s.ApplyUpdate(first)
	s.ApplyUpdate(second)

	got, ok := s.Zone("zone_A")
	require.True(t, ok)
	assert.Equal(t, 1, got.AvailableForVisitors)
}

func TestLoadSnapshotReplacesWorkingSet(t *testing.T) {
	s := seeded()
	s.LoadSnapshot([]models.Zone{zone("zone_Z", "cat_regular", "gate_1")})

	assert.Equal(t, []string{"zone_Z"}, ids(s.All()))
	assert.False(t, s.ApplyUpdate(zone("zone_A", "cat_premium", "gate_1")))
}

func TestReturnedZonesAreCopies(t *testing.T) {
	s := seeded()
	zs := s.ZonesForGate("gate_1")
	zs[0].GateIDs[0] = "mutated"
	zs[0].Open = false

	got, _ := s.Zone("zone_A")
	assert.Equal(t, []string{"gate_1"}, got.GateIDs)
	assert.True(t, got.Open)
}

func TestInvariantViolationIsLoggedNotRepaired(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewStore(zap.New(core))
	broken := zone("zone_A", "cat_premium", "gate_1")
	broken.Free = 5

	s.LoadSnapshot([]models.Zone{broken})

	require.Equal(t, 1, logs.FilterMessage("zone capacity figures inconsistent").Len())
	got, _ := s.Zone("zone_A")
	assert.Equal(t, 5, got.Free)
}

func TestEligibleVisitor(t *testing.T) {
	z := zone("zone_A", "cat_premium", "gate_1")
	assert.True(t, Eligible(z, models.UserTypeVisitor, ""))

	noRoom := z
	noRoom.AvailableForVisitors = 0
	assert.False(t, Eligible(noRoom, models.UserTypeVisitor, ""))

	closed := z
	closed.Open = false
	assert.False(t, Eligible(closed, models.UserTypeVisitor, ""))

	assert.False(t, Eligible(z, models.UserType("staff"), ""))
}

func TestEligibleSubscriber(t *testing.T) {
	z := zone("zone_A", "cat_premium", "gate_1")
	assert.True(t, Eligible(z, models.UserTypeSubscriber, "cat_premium"))
	assert.False(t, Eligible(z, models.UserTypeSubscriber, "cat_regular"), "category mismatch")

	noRoom := z
	noRoom.AvailableForSubscribers = 0
	assert.False(t, Eligible(noRoom, models.UserTypeSubscriber, "cat_premium"))

	closed := z
	closed.Open = false
	assert.False(t, Eligible(closed, models.UserTypeSubscriber, "cat_premium"))

	visitorOnly := z
	visitorOnly.AvailableForSubscribers = 0
	assert.True(t, Eligible(visitorOnly, models.UserTypeVisitor, ""))
}
