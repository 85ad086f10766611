package hrmAuth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	internalflows "github.com/MrEthical07/hrmAuth/internal/flows"
	"github.com/MrEthical07/hrmAuth/jwt"
	"github.com/MrEthical07/hrmAuth/permission"
	"github.com/MrEthical07/hrmAuth/session"
)

// Client holds one user's session against the HRM backend. It is safe for concurrent use.
type Client struct {
	config    Config
	logger    *slog.Logger
	http      *http.Client
	baseURL   string
	store     *session.Store
	table     *permission.Table
	routes    *permission.RouteMap
	navigator Navigator
	audit     *auditDispatcher
	metrics   *Metrics
	now       func() time.Time
	validate  *validator.Validate
	decode    func(string) (*jwt.Claims, error)
	flows     internalflows.Service

	refreshGroup singleflight.Group

	mu        sync.RWMutex
	state     session.Snapshot
	expiresAt time.Time
	profile   *Profile

	closeOnce sync.Once
	closed    bool
	closers   []func() error
}

// Close stops the audit dispatcher and releases backends the Client opened itself.
// Session state is left in storage.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		if c.audit != nil {
			c.audit.Close()
		}
		for _, fn := range c.closers {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// AuditDropped returns how many audit events were dropped because the buffer was full.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot copies the client's counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() Config {
	return c.config
}

// Routes returns the configured login and unauthorized routes.
func (c *Client) Routes() RoutesConfig {
	return c.config.Routes
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

/*
====================================
READ SIDE
====================================
*/

// CurrentUser returns a copy of the logged-in user, or nil.
func (c *Client) CurrentUser() *session.User {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.User == nil {
		return nil
	}
	u := *c.state.User
	return &u
}

// Snapshot returns a copy of the session with IsAuthenticated evaluated now.
func (c *Client) Snapshot() session.Snapshot {
	if c == nil {
		return session.Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := *c.state.Clone()
	out.IsAuthenticated = c.authenticatedLocked()
	return out
}

// IsAuthenticated reports whether a user and an unexpired access token are present. A
// session found expired is logged out, as [Client.CheckSession] does.
func (c *Client) IsAuthenticated() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	live := c.authenticatedLocked()
	access := c.state.AccessToken
	c.mu.RUnlock()

	if !live && access != "" {
		c.expireSession(context.Background(), access)
	}
	return live
}

// AccessToken returns the current access token, or "".
func (c *Client) AccessToken() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.AccessToken
}

func (c *Client) authenticatedLocked() bool {
	return c.state.User != nil && c.state.AccessToken != "" && c.expiresAt.After(c.now())
}

func (c *Client) refreshTokenValue() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.RefreshToken
}

func (c *Client) role() (permission.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.authenticatedLocked() {
		return "", false
	}
	return permission.Role(c.state.User.Role), true
}

/*
====================================
PERMISSIONS
====================================
*/

// HasPermission looks up capability for the current role. Anonymous sessions, unknown
// roles, and unknown capabilities are denied.
func (c *Client) HasPermission(capability permission.Capability) bool {
	if c == nil {
		return false
	}
	role, ok := c.role()
	if !ok {
		return false
	}
	return c.table.Has(role, capability)
}

// CanAccess reports whether the current session may open routePath. Routes without a
// requirement admit any authenticated session.
func (c *Client) CanAccess(routePath string) bool {
	if c == nil || !c.IsAuthenticated() {
		return false
	}
	required, ok := c.routes.Required(routePath)
	if !ok {
		return true
	}
	return c.HasPermission(required)
}

// RecordGuard counts one route guard outcome.
func (c *Client) RecordGuard(outcome GuardOutcome) {
	switch outcome {
	case GuardAdmit:
		c.metricInc(MetricGuardAdmit)
	case GuardLogin:
		c.metricInc(MetricGuardLogin)
	case GuardUnauthorized:
		c.metricInc(MetricGuardUnauthorized)
	}
}

/*
====================================
FLOW WIRING
====================================
*/

func (c *Client) buildFlows() internalflows.Service {
	return internalflows.New(internalflows.Deps{
		Login: internalflows.LoginDeps{
			Path:   c.config.API.LoginPath,
			Post:   c.postAuth,
			Decode: c.decode,
			Now:    c.now,
		},
		Refresh: internalflows.RefreshDeps{
			Path:   c.config.API.RefreshPath,
			Post:   c.postAuth,
			Decode: c.decode,
		},
		Initialize: internalflows.InitializeDeps{
			Store:  c.store,
			Decode: c.decode,
			Now:    c.now,
		},
		Request: internalflows.RequestDeps{
			HTTP:        c.http,
			AccessToken: c.AccessToken,
			Refresh:     c.refresh,
		},
		Logout: internalflows.LogoutDeps{
			Store: c.store,
		},
	})
}

func (c *Client) ready() error {
	if c == nil || !c.flows.Initialized() {
		return ErrClientNotReady
	}
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClientNotReady
	}
	return nil
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Client) persist(ctx context.Context, snap *session.Snapshot, mirror bool) {
	ctx = context.WithoutCancel(ctx)
	if err := c.store.Save(ctx, snap); err != nil {
		c.warn("hrmAuth: persist session failed", "error", err)
	}
	if !mirror {
		return
	}
	if err := c.store.MirrorTokens(ctx, snap.AccessToken, snap.RefreshToken); err != nil {
		c.warn("hrmAuth: mirror tokens failed", "error", err)
	}
}
