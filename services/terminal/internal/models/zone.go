package models

import (
	"fmt"
	"slices"
)

// UserType selects the capacity counter a vehicle draws from.
type UserType string

const (
	UserTypeVisitor    UserType = "visitor"
	UserTypeSubscriber UserType = "subscriber"
)

// Valid reports whether t is a known user type.
func (t UserType) Valid() bool {
	return t == UserTypeVisitor || t == UserTypeSubscriber
}

// Zone is the authority's snapshot of one parking zone.
type Zone struct {
	ID                      string   `json:"id"`
	Name                    string   `json:"name"`
	CategoryID              string   `json:"categoryId"`
	GateIDs                 []string `json:"gateIds"`
	TotalSlots              int      `json:"totalSlots"`
	Occupied                int      `json:"occupied"`
	Free                    int      `json:"free"`
	Reserved                int      `json:"reserved"`
	AvailableForVisitors    int      `json:"availableForVisitors"`
	AvailableForSubscribers int      `json:"availableForSubscribers"`
	RateNormal              float64  `json:"rateNormal"`
	RateSpecial             float64  `json:"rateSpecial"`
	Open                    bool     `json:"open"`
}

// ServesGate reports whether the zone is reachable through gateID.
func (z Zone) ServesGate(gateID string) bool {
	return slices.Contains(z.GateIDs, gateID)
}

// Available returns the counter relevant to userType.
func (z Zone) Available(userType UserType) int {
	if userType == UserTypeSubscriber {
		return z.AvailableForSubscribers
	}
	return z.AvailableForVisitors
}

// Clone returns a copy that shares no slices with z.
func (z Zone) Clone() Zone {
	z.GateIDs = slices.Clone(z.GateIDs)
	return z
}

// CheckInvariant reports capacity figures that do not add up. The authority owns these
// numbers; a violation is something to log, not to repair.
func (z Zone) CheckInvariant() error {
	if z.Occupied+z.Free != z.TotalSlots {
		return fmt.Errorf("zone %s: occupied %d + free %d != total %d", z.ID, z.Occupied, z.Free, z.TotalSlots)
	}
	if z.AvailableForVisitors > z.Free {
		return fmt.Errorf("zone %s: visitor availability %d exceeds free %d", z.ID, z.AvailableForVisitors, z.Free)
	}
	if z.AvailableForSubscribers > z.Free {
		return fmt.Errorf("zone %s: subscriber availability %d exceeds free %d", z.ID, z.AvailableForSubscribers, z.Free)
	}
	return nil
}

// Gate is a physical entry point and the zones reachable from it.
type Gate struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location string   `json:"location"`
	ZoneIDs  []string `json:"zoneIds"`
}

// Category groups zones sharing a rate schedule.
type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	RateNormal  float64 `json:"rateNormal"`
	RateSpecial float64 `json:"rateSpecial"`
}
