package clients

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"parkgate/services/terminal/internal/models"
)

// AuthorityClient covers the public master-data, subscription and ticket endpoints.
type AuthorityClient struct {
	base *BaseClient
}

// NewAuthorityClient returns client.
func NewAuthorityClient(baseURL string, httpClient HTTPDoer, logger *zap.Logger) *AuthorityClient {
	return &AuthorityClient{base: NewBaseClient(baseURL, httpClient, logger)}
}

// Login exchanges credentials for a bearer token.
func (c *AuthorityClient) Login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.base.doJSON(ctx, call{
		op: "auth.login", method: http.MethodPost, path: "/auth/login",
		in: models.LoginRequest{Username: username, Password: password}, out: &resp,
	})
	return resp, err
}

// Gates lists every gate.
func (c *AuthorityClient) Gates(ctx context.Context) ([]models.Gate, error) {
	var gates []models.Gate
	err := c.base.doJSON(ctx, call{op: "master.gates", method: http.MethodGet, path: "/master/gates", out: &gates})
	return gates, err
}

// Zones lists the zones reachable from gateID, or all zones when gateID is empty.
func (c *AuthorityClient) Zones(ctx context.Context, gateID string) ([]models.Zone, error) {
	path := "/master/zones"
	if gateID != "" {
		path += "?gateId=" + url.QueryEscape(gateID)
	}
	var zones []models.Zone
	err := c.base.doJSON(ctx, call{op: "master.zones", method: http.MethodGet, path: path, out: &zones})
	return zones, err
}

// Categories lists zone categories with their rates.
func (c *AuthorityClient) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := c.base.doJSON(ctx, call{op: "master.categories", method: http.MethodGet, path: "/master/categories", out: &categories})
	return categories, err
}

// Subscription fetches one subscription record.
func (c *AuthorityClient) Subscription(ctx context.Context, id string) (models.Subscription, error) {
	var sub models.Subscription
	err := c.base.doJSON(ctx, call{op: "subscriptions.get", method: http.MethodGet, path: "/subscriptions/" + url.PathEscape(id), out: &sub})
	return sub, err
}

// Ticket fetches one ticket.
func (c *AuthorityClient) Ticket(ctx context.Context, id string) (models.Ticket, error) {
	var ticket models.Ticket
	err := c.base.doJSON(ctx, call{op: "tickets.get", method: http.MethodGet, path: "/tickets/" + url.PathEscape(id), out: &ticket})
	return ticket, err
}

// Checkin asks the authority to open a ticket.
func (c *AuthorityClient) Checkin(ctx context.Context, req models.CheckinRequest) (models.Ticket, error) {
	var resp models.CheckinResponse
	err := c.base.doJSON(ctx, call{op: "tickets.checkin", method: http.MethodPost, path: "/tickets/checkin", in: req, out: &resp})
	return resp.Ticket, err
}

// Checkout closes a ticket and returns the authority's fee breakdown.
func (c *AuthorityClient) Checkout(ctx context.Context, req models.CheckoutRequest) (models.CheckoutReceipt, error) {
	var receipt models.CheckoutReceipt
	err := c.base.doJSON(ctx, call{op: "tickets.checkout", method: http.MethodPost, path: "/tickets/checkout", in: req, out: &receipt})
	return receipt, err
}
