package admin

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parkgate/services/terminal/internal/apperr"
	"parkgate/services/terminal/internal/audit"
	"parkgate/services/terminal/internal/models"
	"parkgate/services/terminal/internal/ws"
)

type fakeClient struct {
	report     []models.ParkingStateReport
	subs       []models.Subscription
	toggled    map[string]bool
	rates      map[string]models.CategoryRates
	rushHours  []models.RushHour
	vacations  []models.Vacation
	tokens     []string
	stateCalls int
	toggleErr  error
}

func (f *fakeClient) ParkingState(_ context.Context, token string) ([]models.ParkingStateReport, error) {
	f.tokens = append(f.tokens, token)
	f.stateCalls++
	return append([]models.ParkingStateReport(nil), f.report...), nil
}

func (f *fakeClient) UpdateCategory(_ context.Context, _ string, id string, rates models.CategoryRates) error {
	if f.rates == nil {
		f.rates = map[string]models.CategoryRates{}
	}
	f.rates[id] = rates
	return nil
}

func (f *fakeClient) SetZoneOpen(_ context.Context, _ string, zoneID string, open bool) error {
	if f.toggleErr != nil {
		return f.toggleErr
	}
	if f.toggled == nil {
		f.toggled = map[string]bool{}
	}
	f.toggled[zoneID] = open
	for i := range f.report {
		if f.report[i].ZoneID == zoneID {
			f.report[i].Open = open
		}
	}
	return nil
}

func (f *fakeClient) AddRushHour(_ context.Context, _ string, rush models.RushHour) (models.RushHour, error) {
	rush.ID = "rush_1"
	f.rushHours = append(f.rushHours, rush)
	return rush, nil
}

func (f *fakeClient) AddVacation(_ context.Context, _ string, v models.Vacation) (models.Vacation, error) {
	v.ID = "vac_1"
	f.vacations = append(f.vacations, v)
	return v, nil
}

func (f *fakeClient) Subscriptions(context.Context, string) ([]models.Subscription, error) {
	return f.subs, nil
}

type fakeCatalog struct {
	categories []models.Category
	calls      int
}

func (f *fakeCatalog) Categories(context.Context) ([]models.Category, error) {
	f.calls++
	return f.categories, nil
}

type fakeChannel struct {
	connected bool
	fns       map[ws.ListenerID]func(models.AuditEntry)
	next      ws.ListenerID
}

func (f *fakeChannel) Connect(context.Context) error {
	f.connected = true
	return nil
}

func (f *fakeChannel) Disconnect() { f.connected = false }

func (f *fakeChannel) OnAdminUpdate(fn func(models.AuditEntry)) ws.ListenerID {
	if f.fns == nil {
		f.fns = map[ws.ListenerID]func(models.AuditEntry){}
	}
	f.next++
	f.fns[f.next] = fn
	return f.next
}

func (f *fakeChannel) Off(id ws.ListenerID) { delete(f.fns, id) }

type fakeTokens struct {
	role  string
	token string
}

func (f fakeTokens) RequireRole(role string) (string, error) {
	if f.role != role {
		return "", apperr.Precondition("session", "role "+role+" required")
	}
	return f.token, nil
}

func newConsole(role string) (*Console, *fakeClient, *fakeCatalog, *fakeChannel) {
	client := &fakeClient{
		report: []models.ParkingStateReport{
			{ZoneID: "zone_A", Name: "Premium A", TotalSlots: 10, Occupied: 8, Free: 2, Open: true},
			{ZoneID: "zone_B", Name: "Regular B", TotalSlots: 20, Occupied: 3, Free: 17, Open: false},
		},
		subs: []models.Subscription{{ID: "sub_001", Active: true}},
	}
	catalog := &fakeCatalog{categories: []models.Category{{ID: "cat_premium", RateNormal: 5, RateSpecial: 8}}}
	channel := &fakeChannel{}
	c := NewConsole(client, catalog, channel, audit.NewMemoryFeed(), fakeTokens{role: role, token: "admin-token"}, zap.NewNop())
	return c, client, catalog, channel
}

func TestLoadRequiresAdmin(t *testing.T) {
	c, client, _, _ := newConsole(models.RoleEmployee)

	err := c.Load(context.Background())

	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)
	assert.Zero(t, client.stateCalls)
	assert.ErrorIs(t, c.LastError(), apperr.ErrPreconditionFailed)
}

func TestLoadFetchesEverything(t *testing.T) {
	c, client, _, _ := newConsole(models.RoleAdmin)

	require.NoError(t, c.Load(context.Background()))

	assert.Len(t, c.Report(), 2)
	assert.Len(t, c.Categories(), 1)
	assert.Len(t, c.Subscriptions(), 1)
	assert.Equal(t, []string{"admin-token"}, client.tokens)
}

func TestToggleZoneFlipsAndRefreshes(t *testing.T) {
	c, client, _, _ := newConsole(models.RoleAdmin)
	require.NoError(t, c.Load(context.Background()))

	open, err := c.ToggleZone(context.Background(), "zone_A")
	require.NoError(t, err)
	assert.False(t, open)
	assert.Equal(t, false, client.toggled["zone_A"])
	assert.Equal(t, 2, client.stateCalls)
	assert.False(t, c.Report()[0].Open)

	_, err = c.ToggleZone(context.Background(), "zone_Z")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	client.toggleErr = apperr.Remote("PUT /admin/zones/zone_B/open", 403, "Forbidden", nil)
	_, err = c.ToggleZone(context.Background(), "zone_B")
	assert.ErrorIs(t, err, apperr.ErrRemote)
	assert.False(t, c.Report()[1].Open, "report unchanged after a failed toggle")
}

func TestUpdateCategoryRates(t *testing.T) {
	c, client, catalog, _ := newConsole(models.RoleAdmin)

	err := c.UpdateCategoryRates(context.Background(), "cat_premium", models.CategoryRates{RateNormal: -1, RateSpecial: 8})
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "RateNormal")
	assert.Empty(t, client.rates)

	require.NoError(t, c.UpdateCategoryRates(context.Background(), "cat_premium", models.CategoryRates{RateNormal: 6, RateSpecial: 9}))
	assert.Equal(t, 6.0, client.rates["cat_premium"].RateNormal)
	assert.Equal(t, 1, catalog.calls)

	assert.ErrorIs(t, c.UpdateCategoryRates(context.Background(), " ", models.CategoryRates{}), apperr.ErrValidation)
}

func TestAddRushHourValidation(t *testing.T) {
	c, client, _, _ := newConsole(models.RoleAdmin)
	ctx := context.Background()

	bad := []models.RushHour{
		{WeekDay: 7, From: "07:00", To: "09:00"},
		{WeekDay: 1, From: "7am", To: "09:00"},
		{WeekDay: 1, From: "", To: "09:00"},
		{WeekDay: 1, From: "10:00", To: "09:00"},
	}
	for _, rush := range bad {
		_, err := c.AddRushHour(ctx, rush)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%+v", rush)
	}
	assert.Empty(t, client.rushHours)

	created, err := c.AddRushHour(ctx, models.RushHour{WeekDay: 0, From: "07:00", To: "09:30"})
	require.NoError(t, err)
	assert.Equal(t, "rush_1", created.ID)
}

func TestAddVacationValidation(t *testing.T) {
	c, client, _, _ := newConsole(models.RoleAdmin)
	ctx := context.Background()

	_, err := c.AddVacation(ctx, models.Vacation{Name: "", From: "2025-04-01", To: "2025-04-03"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = c.AddVacation(ctx, models.Vacation{Name: "Eid", From: "2025-04-03", To: "2025-04-01"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = c.AddVacation(ctx, models.Vacation{Name: "Eid", From: "04/01/2025", To: "2025-04-03"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, client.vacations)

	created, err := c.AddVacation(ctx, models.Vacation{Name: "Eid", From: "2025-04-01", To: "2025-04-01"})
	require.NoError(t, err)
	assert.Equal(t, "vac_1", created.ID)
}

func TestAdminUpdatesFeedTheAuditLog(t *testing.T) {
	c, _, _, channel := newConsole(models.RoleAdmin)
	ctx := context.Background()

	c.Start(ctx)
	c.Start(ctx)
	require.True(t, channel.connected)
	require.Len(t, channel.fns, 1)

	for _, fn := range channel.fns {
		fn(models.AuditEntry{AdminID: "admin_1", Action: "zone-closed", TargetID: "zone_A", Timestamp: time.Now()})
		fn(models.AuditEntry{AdminID: "admin_1", Action: "category-rates-changed", TargetID: "cat_premium", Details: json.RawMessage(`{"rateNormal":6}`)})
	}

	log, err := c.AuditLog(ctx, 10)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "category-rates-changed", log[0].Action)

	c.Stop()
	assert.False(t, channel.connected)
	assert.Empty(t, channel.fns)

	require.NoError(t, c.ClearAuditLog(ctx))
	log, err = c.AuditLog(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, log)
}
