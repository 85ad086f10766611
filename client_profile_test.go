package hrmAuth

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/hrmAuth/jwt"
)

func TestRefreshProfile(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newTestClient(t, api, testClientOptions{})
	loginAlice(t, c)
	require.Nil(t, c.Profile())

	p, err := c.RefreshProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jwt.UserID("7"), p.ID)
	assert.Equal(t, "People", p.Department)
	assert.Equal(t, "Alice", p.FirstName)
	assert.NotEmpty(t, p.Raw)

	cached := c.Profile()
	require.NotNil(t, cached)
	assert.Equal(t, "alice@example.com", cached.Email)

	require.NoError(t, c.Logout(context.Background()))
	assert.Nil(t, c.Profile())
}

func TestRefreshProfileRoleDriftKeepsTokenRole(t *testing.T) {
	var logs bytes.Buffer
	api := newFakeAPI(t)
	c, _ := newTestClient(t, api, testClientOptions{mutate: func(cfg *Config) {
		cfg.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}})
	loginAlice(t, c)
	api.setRole("Manager")

	p, err := c.RefreshProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Manager", p.Role)
	assert.Equal(t, "HR", c.CurrentUser().Role)
	assert.Contains(t, logs.String(), "profile role differs")
}

func TestRefreshProfileRequiresSession(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newTestClient(t, api, testClientOptions{})

	_, err := c.RefreshProfile(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRefreshProfileFailureCounts(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newTestClient(t, api, testClientOptions{})
	loginAlice(t, c)
	api.setRejectAll(true)

	_, err := c.RefreshProfile(context.Background())
	require.ErrorIs(t, err, ErrSessionEnded)
	assert.Equal(t, uint64(1), c.MetricsSnapshot().Counters[MetricProfileRefreshFailure])
}
