package hrmAuth

import (
	"context"
	"encoding/json"
	"fmt"
)

// RefreshProfile fetches the current user's profile from the backend and keeps it for
// [Client.Profile]. A role in the profile that differs from the token's role is logged as
// drift; the session keeps the token's role until the next login.
func (c *Client) RefreshProfile(ctx context.Context) (*Profile, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	raw, err := c.Get(ctx, c.config.API.ProfilePath)
	if err != nil {
		c.metricInc(MetricProfileRefreshFailure)
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		c.metricInc(MetricProfileRefreshFailure)
		return nil, fmt.Errorf("%w: profile: %v", ErrInvalidResponse, err)
	}
	p.Raw = raw

	c.mu.Lock()
	if c.state.User != nil && p.Role != "" && p.Role != c.state.User.Role {
		c.logger.Info("hrmAuth: profile role differs from token role",
			"user_id", c.state.User.ID,
			"token_role", c.state.User.Role,
			"profile_role", p.Role,
		)
	}
	if c.state.User != nil {
		c.profile = &p
	}
	c.mu.Unlock()

	return &p, nil
}

// Profile returns the last profile fetched by RefreshProfile for this session, or nil.
func (c *Client) Profile() *Profile {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return nil
	}
	p := *c.profile
	return &p
}
