package clients

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"parkgate/services/terminal/internal/models"
)

// AdminClient proxies the bearer-authenticated admin endpoints.
type AdminClient struct {
	base *BaseClient
}

// NewAdminClient returns client.
func NewAdminClient(baseURL string, httpClient HTTPDoer, logger *zap.Logger) *AdminClient {
	return &AdminClient{base: NewBaseClient(baseURL, httpClient, logger)}
}

// ParkingState fetches the occupancy report.
func (c *AdminClient) ParkingState(ctx context.Context, token string) ([]models.ParkingStateReport, error) {
	var report []models.ParkingStateReport
	err := c.base.doJSON(ctx, call{op: "admin.parkingState", method: http.MethodGet, path: "/admin/reports/parking-state", token: token, out: &report})
	return report, err
}

// UpdateCategory replaces a category's rates.
func (c *AdminClient) UpdateCategory(ctx context.Context, token, categoryID string, rates models.CategoryRates) error {
	return c.base.doJSON(ctx, call{op: "admin.updateCategory", method: http.MethodPut, path: "/admin/categories/" + url.PathEscape(categoryID), token: token, in: rates})
}

// SetZoneOpen opens or closes a zone.
func (c *AdminClient) SetZoneOpen(ctx context.Context, token, zoneID string, open bool) error {
	body := struct {
		Open bool `json:"open"`
	}{Open: open}
	return c.base.doJSON(ctx, call{op: "admin.zoneOpen", method: http.MethodPut, path: "/admin/zones/" + url.PathEscape(zoneID) + "/open", token: token, in: body})
}

// AddRushHour creates a weekly special-rate window.
func (c *AdminClient) AddRushHour(ctx context.Context, token string, rush models.RushHour) (models.RushHour, error) {
	var created models.RushHour
	err := c.base.doJSON(ctx, call{op: "admin.addRushHour", method: http.MethodPost, path: "/admin/rush-hours", token: token, in: rush, out: &created})
	return created, err
}

// AddVacation creates a dated special-rate range.
func (c *AdminClient) AddVacation(ctx context.Context, token string, vacation models.Vacation) (models.Vacation, error) {
	var created models.Vacation
	err := c.base.doJSON(ctx, call{op: "admin.addVacation", method: http.MethodPost, path: "/admin/vacations", token: token, in: vacation, out: &created})
	return created, err
}

// Subscriptions lists every subscription.
func (c *AdminClient) Subscriptions(ctx context.Context, token string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := c.base.doJSON(ctx, call{op: "admin.subscriptions", method: http.MethodGet, path: "/admin/subscriptions", token: token, out: &subs})
	return subs, err
}
