package session

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"parkgate/services/terminal/internal/apperr"
	"parkgate/services/terminal/internal/models"
)

// Claims is what the terminal reads from the authority's token. The signature is not checked
// here; the authority verifies it on every request.
type Claims struct {
	UserID string `json:"userId,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Holder keeps the operator's bearer token in memory for the life of the process.
type Holder struct {
	mu        sync.RWMutex
	user      *models.User
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewHolder returns an empty holder.
func NewHolder() *Holder {
	return &Holder{now: time.Now}
}

// Set stores a login response. Tokens that are not JWTs are kept as opaque credentials
// without an expiry.
func (h *Holder) Set(resp models.LoginResponse) {
	user := resp.User
	var expires time.Time
	if claims, ok := parseClaims(resp.Token); ok {
		if claims.ExpiresAt != nil {
			expires = claims.ExpiresAt.Time
		}
		if user.Role == "" {
			user.Role = claims.Role
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.user = &user
	h.token = resp.Token
	h.expiresAt = expires
}

func parseClaims(token string) (*Claims, bool) {
	if strings.Count(token, ".") != 2 {
		return nil, false
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// Token returns the bearer token, or "" when logged out or expired.
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.validLocked() {
		return ""
	}
	return h.token
}

// User returns the logged in operator.
func (h *Holder) User() (models.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.validLocked() {
		return models.User{}, false
	}
	return *h.user, true
}

// ExpiresAt returns the token expiry; zero when the token carries none.
func (h *Holder) ExpiresAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.expiresAt
}

func (h *Holder) validLocked() bool {
	if h.user == nil || h.token == "" {
		return false
	}
	return h.expiresAt.IsZero() || h.now().Before(h.expiresAt)
}

// Clear logs the operator out.
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.user = nil
	h.token = ""
	h.expiresAt = time.Time{}
}

// RequireRole returns the token when the operator is logged in with role.
func (h *Holder) RequireRole(role string) (string, error) {
	const op = "session.require_role"
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.validLocked() {
		return "", apperr.Precondition(op, "login required")
	}
	if h.user.Role != role {
		return "", apperr.Precondition(op, "role "+role+" required, signed in as "+h.user.Role)
	}
	return h.token, nil
}
