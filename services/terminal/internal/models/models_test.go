package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneCheckInvariant(t *testing.T) {
	zone := Zone{ID: "zone_A", TotalSlots: 10, Occupied: 8, Free: 2, AvailableForVisitors: 2, AvailableForSubscribers: 1}
	assert.NoError(t, zone.CheckInvariant())

	broken := zone
	broken.Free = 3
	assert.ErrorContains(t, broken.CheckInvariant(), "occupied 8 + free 3 != total 10")

	tooMany := zone
	tooMany.AvailableForSubscribers = 5
	assert.ErrorContains(t, tooMany.CheckInvariant(), "subscriber availability 5 exceeds free 2")
}

func TestZoneCloneDoesNotShareGateIDs(t *testing.T) {
	zone := Zone{ID: "zone_A", GateIDs: []string{"gate_1"}}
	clone := zone.Clone()
	clone.GateIDs[0] = "gate_9"
	assert.Equal(t, "gate_1", zone.GateIDs[0])
	assert.True(t, zone.ServesGate("gate_1"))
	assert.False(t, zone.ServesGate("gate_9"))
}

func TestCheckoutRequestOmitsFlagUnlessRequested(t *testing.T) {
	plain, err := json.Marshal(CheckoutRequest{TicketID: "t_100"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ticketId":"t_100"}`, string(plain))

	forced, err := json.Marshal(CheckoutRequest{TicketID: "t_100", ForceConvertToVisitor: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ticketId":"t_100","forceConvertToVisitor":true}`, string(forced))
}

func TestTicketDecodesNullCheckout(t *testing.T) {
	var ticket Ticket
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t_1","type":"subscriber","zoneId":"zone_A","gateId":"gate_1","checkinAt":"2025-01-01T10:00:00Z","checkoutAt":null}`), &ticket))
	assert.False(t, ticket.CheckedOut())
	assert.Equal(t, UserTypeSubscriber, ticket.Type)
}

func TestSubscriptionHasOpenTicket(t *testing.T) {
	sub := Subscription{CurrentCheckins: []OpenCheckin{{TicketID: "t_1"}, {TicketID: "t_2"}}}
	assert.True(t, sub.HasOpenTicket("t_2"))
	assert.False(t, sub.HasOpenTicket("t_3"))
}
