package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parkgate/services/terminal/internal/apperr"
	"parkgate/services/terminal/internal/models"
)

func newTestAuthority(t *testing.T, handler http.HandlerFunc) *AuthorityClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAuthorityClient(srv.URL+"/api/v1/", NewDefaultHTTPClient(2*time.Second), zap.NewNop())
}

func TestZonesSendsGateQueryAndRequestID(t *testing.T) {
	client := newTestAuthority(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/master/zones", r.URL.Path)
		assert.Equal(t, "gate_1", r.URL.Query().Get("gateId"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`[{"id":"zone_A","gateIds":["gate_1"],"totalSlots":10,"occupied":8,"free":2,"availableForVisitors":2,"open":true}]`))
	})

	zones, err := client.Zones(context.Background(), "gate_1")
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, "zone_A", zones[0].ID)
	assert.Equal(t, 2, zones[0].AvailableForVisitors)
}

func TestCheckinPostsPayloadAndUnwrapsTicket(t *testing.T) {
	client := newTestAuthority(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"gateId":"gate_1","zoneId":"zone_A","type":"visitor"}`, string(body))
		_, _ = w.Write([]byte(`{"ticket":{"id":"t_1","type":"visitor","zoneId":"zone_A","gateId":"gate_1","checkinAt":"2025-01-01T10:00:00Z","checkoutAt":null}}`))
	})

	ticket, err := client.Checkin(context.Background(), models.CheckinRequest{GateID: "gate_1", ZoneID: "zone_A", Type: models.UserTypeVisitor})
	require.NoError(t, err)
	assert.Equal(t, "t_1", ticket.ID)
	assert.False(t, ticket.CheckedOut())
}

func TestStructuredErrorBecomesRemoteError(t *testing.T) {
	client := newTestAuthority(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Zone is full","errors":{"zoneId":"full"}}`))
	})

	_, err := client.Checkin(context.Background(), models.CheckinRequest{GateID: "gate_1", ZoneID: "zone_A", Type: models.UserTypeVisitor})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrRemote)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "Zone is full", appErr.Message)
	assert.Equal(t, "full", appErr.Fields["zoneId"])
}

func TestBareStatusBecomesNetworkErrorAndNotFound(t *testing.T) {
	client := newTestAuthority(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Ticket(context.Background(), "t_404")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "HTTP 404")
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	client := NewAuthorityClient("http://authority.invalid", failingDoer{}, nil)

	_, err := client.Gates(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.Equal(t, "master.gates: network error occurred", err.Error())
}

func TestAdminCallsCarryBearerToken(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	t.Cleanup(srv.Close)

	client := NewAdminClient(srv.URL, srv.Client(), zap.NewNop())
	require.NoError(t, client.SetZoneOpen(context.Background(), "tok", "zone_A", false))

	assert.Equal(t, "/admin/zones/zone_A/open", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.JSONEq(t, `{"open":false}`, gotBody)
}
