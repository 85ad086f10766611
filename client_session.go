package hrmAuth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	internalflows "github.com/MrEthical07/hrmAuth/internal/flows"
	"github.com/MrEthical07/hrmAuth/session"
)

const refreshFlightKey = "refresh"

// Login exchanges creds for a token pair and adopts the resulting session. A rejection
// is returned as *AuthError with the backend's reason; the previous session, if any, is
// kept in that case.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	if err := c.ready(); err != nil {
		return err
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if err := c.validate.StructCtx(ctx, creds); err != nil {
		c.metricInc(MetricLoginFailure)
		return &AuthError{
			Message: validationMessage(err),
			Err:     fmt.Errorf("%w: %w", ErrInvalidCredentialsInput, err),
		}
	}

	res := c.flows.Login(ctx, creds.Username, creds.Password)
	if res.Failure != internalflows.LoginFailureNone {
		c.metricInc(MetricLoginFailure)
		authErr := loginFailureToError(res)
		c.emitAudit(ctx, auditEventLoginFailed, false, &session.User{Username: creds.Username}, authErr, map[string]string{
			"status": fmt.Sprint(res.Status),
		})
		return authErr
	}

	c.refreshGroup.Forget(refreshFlightKey)
	c.mu.Lock()
	c.state = *res.Snapshot
	c.expiresAt = res.Claims.ExpiresAtTime()
	c.profile = nil
	snap := c.state.Clone()
	c.mu.Unlock()

	c.persist(ctx, snap, true)
	c.metricInc(MetricLoginSuccess)
	c.emitAudit(ctx, auditEventLogin, true, snap.User, nil, nil)
	return nil
}

func loginFailureToError(res internalflows.LoginResult) *AuthError {
	switch res.Failure {
	case internalflows.LoginFailureRejected:
		return &AuthError{Status: res.Status, Message: res.Message, Body: res.Body}
	case internalflows.LoginFailureMalformed:
		return &AuthError{Status: res.Status, Message: "malformed token response", Err: res.Err}
	case internalflows.LoginFailureDecode:
		return &AuthError{Status: res.Status, Message: "access token could not be decoded", Err: res.Err}
	default:
		return &AuthError{Message: "authentication service unreachable", Err: res.Err}
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid input"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return field + " must be one of " + fe.Param()
	default:
		return field + " is invalid"
	}
}

// Register creates an account through the request pipeline. Backend rejections come back
// as *AuthError; a forced logout comes back as ErrSessionEnded.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (json.RawMessage, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if err := c.validate.StructCtx(ctx, req); err != nil {
		c.metricInc(MetricRegisterFailure)
		return nil, &AuthError{
			Message: validationMessage(err),
			Err:     fmt.Errorf("%w: %w", ErrInvalidCredentialsInput, err),
		}
	}

	raw, err := c.Post(ctx, c.config.API.RegisterPath, req)
	if err != nil {
		c.metricInc(MetricRegisterFailure)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status > 0 {
			return nil, &AuthError{
				Status:  apiErr.Status,
				Message: internalflows.RejectionMessage(apiErr.Body, "registration rejected"),
				Body:    apiErr.Body,
				Err:     apiErr,
			}
		}
		return nil, err
	}
	c.metricInc(MetricRegisterSuccess)
	return raw, nil
}

// RefreshAccessToken trades the stored refresh token for a new access token. Concurrent
// callers share one in-flight refresh. On failure the session is logged out and a
// *RefreshError is returned.
func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	return c.refresh(ctx, "")
}

// refresh coalesces on one flight. stale is the access token the caller saw rejected; if
// the session has already moved past it the current token is returned without a call.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	ch := c.refreshGroup.DoChan(refreshFlightKey, func() (any, error) {
		if stale != "" {
			if cur := c.AccessToken(); cur != "" && cur != stale {
				return cur, nil
			}
		}
		return c.runRefresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.metricInc(MetricRefreshCoalesced)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) runRefresh(ctx context.Context) (string, error) {
	c.mu.RLock()
	access, token := c.state.AccessToken, c.state.RefreshToken
	user := c.state.User
	c.mu.RUnlock()
	unchanged := func(s *session.Snapshot) bool {
		return s.AccessToken == access && s.RefreshToken == token
	}

	res := c.flows.Refresh(ctx, token)
	if res.Failure != internalflows.RefreshFailureNone {
		c.metricInc(MetricRefreshFailure)
		refreshErr := &RefreshError{Status: res.Status, Err: res.Err}
		reason := "rejected"
		switch res.Failure {
		case internalflows.RefreshFailureNoToken:
			refreshErr.Err = ErrNoRefreshToken
			reason = "no_refresh_token"
		case internalflows.RefreshFailureTransport:
			reason = "transport"
		case internalflows.RefreshFailureMalformed:
			reason = "malformed_response"
		}
		c.emitAudit(ctx, auditEventRefreshFailed, false, user, refreshErr, map[string]string{"reason": reason})
		if cleared, _ := c.logoutIf(ctx, unchanged); !cleared {
			// A login replaced the session the failed refresh belonged to.
			return "", &RefreshError{Status: res.Status, Err: ErrNotAuthenticated}
		}
		return "", refreshErr
	}

	c.mu.Lock()
	if !unchanged(&c.state) {
		c.mu.Unlock()
		return "", &RefreshError{Err: ErrNotAuthenticated}
	}
	c.state.AccessToken = res.AccessToken
	if res.Claims != nil {
		c.expiresAt = res.Claims.ExpiresAtTime()
		if c.state.User != nil && res.Claims.Role != c.state.User.Role {
			c.logger.Info("hrmAuth: refreshed token role differs from session role",
				"user_id", c.state.User.ID,
				"session_role", c.state.User.Role,
				"token_role", res.Claims.Role,
			)
		}
	} else {
		c.warn("hrmAuth: refreshed access token does not decode; keeping previous claims")
	}
	c.state.IsAuthenticated = c.authenticatedLocked()
	snap := c.state.Clone()
	c.mu.Unlock()

	c.persist(ctx, snap, true)
	c.metricInc(MetricRefreshSuccess)
	c.emitAudit(ctx, auditEventRefresh, true, snap.User, nil, nil)
	return res.AccessToken, nil
}

// Logout clears the session in memory and in storage. It is idempotent; the returned
// error only reports a storage failure, the in-memory session is cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	if c == nil {
		return nil
	}
	_, err := c.logoutIf(ctx, func(*session.Snapshot) bool { return true })
	return err
}

// logoutIf clears the session when match accepts it. match runs under the write lock, so
// a session adopted after the caller looked is never cleared by mistake. A storage failure
// is logged here and returned.
func (c *Client) logoutIf(ctx context.Context, match func(*session.Snapshot) bool) (bool, error) {
	c.mu.Lock()
	if !match(&c.state) {
		c.mu.Unlock()
		return false, nil
	}
	had := !c.state.Empty()
	user := c.state.User
	c.state = session.Snapshot{}
	c.expiresAt = time.Time{}
	c.profile = nil
	c.mu.Unlock()

	err := c.flows.Logout(ctx)
	if had {
		c.metricInc(MetricLogout)
		c.emitAudit(ctx, auditEventLogout, err == nil, user, err, nil)
	}
	if err != nil {
		c.warn("hrmAuth: clear persisted session failed", "error", err)
		return true, fmt.Errorf("logout: %w", err)
	}
	return true, nil
}

// InitializeAuth restores the session from storage without a network call. A live token
// restores the session; an expired, missing, or unreadable one logs out. Only a storage
// outage is returned as an error, in which case storage is left untouched.
func (c *Client) InitializeAuth(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	res := c.flows.Initialize(ctx)
	switch res.Outcome {
	case internalflows.InitializeRestored:
		c.mu.Lock()
		c.state = *res.Snapshot
		c.expiresAt = res.Claims.ExpiresAtTime()
		snap := c.state.Clone()
		c.mu.Unlock()
		if res.FromFlatKeys {
			c.persist(ctx, snap, false)
		}
		c.metricInc(MetricSessionRestored)
		c.emitAudit(ctx, auditEventSessionRestored, true, snap.User, nil, map[string]string{
			"source": restoreSource(res.FromFlatKeys),
		})
		return nil
	case internalflows.InitializeExpired:
		c.metricInc(MetricSessionExpired)
		user := internalflows.UserFromClaims(res.Claims, "")
		c.emitAudit(ctx, auditEventSessionExpired, false, user, nil, nil)
		return c.Logout(ctx)
	case internalflows.InitializeUndecodable:
		if res.Err != nil {
			c.warn("hrmAuth: discarding unreadable session", "error", res.Err)
		}
		return c.Logout(ctx)
	case internalflows.InitializeUnavailable:
		return fmt.Errorf("initialize session: %w", res.Err)
	default:
		c.mu.Lock()
		c.state = session.Snapshot{}
		c.expiresAt = time.Time{}
		c.mu.Unlock()
		return nil
	}
}

func restoreSource(flat bool) string {
	if flat {
		return "flat_keys"
	}
	return "snapshot"
}

// CheckSession answers "is there a usable session right now". An expired access token
// ends the session: storage is cleared and false is returned. No refresh is attempted.
func (c *Client) CheckSession(ctx context.Context) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	live := c.authenticatedLocked()
	access := c.state.AccessToken
	c.mu.RUnlock()

	if !live && access != "" {
		c.expireSession(ctx, access)
	}
	return live
}

// expireSession logs out the session holding access unless a login replaced it first.
func (c *Client) expireSession(ctx context.Context, access string) {
	var user *session.User
	cleared, _ := c.logoutIf(ctx, func(s *session.Snapshot) bool {
		if s.AccessToken != access {
			return false
		}
		user = s.User
		return true
	})
	if !cleared {
		return
	}
	c.metricInc(MetricSessionExpired)
	c.emitAudit(ctx, auditEventSessionExpired, false, user, nil, nil)
}
