package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseZoneUpdate(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"zone-update","payload":{"id":"zone_A","gateIds":["gate_1"],"free":2,"open":true}}`))
	require.NoError(t, err)

	update, ok := msg.(ZoneUpdate)
	require.True(t, ok)
	assert.Equal(t, "zone_A", update.Zone.ID)
	assert.Equal(t, []string{"gate_1"}, update.Zone.GateIDs)
}

func TestParseAdminUpdateKeepsDetails(t *testing.T) {
	msg, err := Parse([]byte(`{"type":"admin-update","payload":{"adminId":"a1","action":"category-rates-changed","targetType":"category","targetId":"cat_premium","details":{"rateNormal":5}}}`))
	require.NoError(t, err)

	update, ok := msg.(AdminUpdate)
	require.True(t, ok)
	assert.Equal(t, "cat_premium", update.Entry.TargetID)
	assert.JSONEq(t, `{"rateNormal":5}`, string(update.Entry.Details))
}

func TestParseRejectsBadFrames(t *testing.T) {
	cases := map[string]string{
		"not json":        `{{`,
		"unknown type":    `{"type":"mystery","payload":{}}`,
		"missing payload": `{"type":"zone-update"}`,
		"zone without id": `{"type":"zone-update","payload":{"name":"A"}}`,
		"wrong shape":     `{"type":"zone-update","payload":[1,2]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestEncodeGateDirective(t *testing.T) {
	data, err := encodeGateDirective(TypeUnsubscribe, "gate_7")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"unsubscribe","payload":{"gateId":"gate_7"}}`, string(data))
}
