package hrmAuth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/hrmAuth/session"
)

// Config defines the client's API endpoints, routes, storage, audit, and metrics setup.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Routes  RoutesConfig  `yaml:"routes"`
	Storage StorageConfig `yaml:"storage"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`

	// Logger receives best-effort failures. Nil means a Warn-level text handler on stderr.
	Logger *slog.Logger `yaml:"-"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the HRM REST backend.
type APIConfig struct {
	BaseURL               string        `yaml:"base_url"`
	Timeout               time.Duration `yaml:"timeout"`
	LoginPath             string        `yaml:"login_path"`
	RefreshPath           string        `yaml:"refresh_path"`
	ProfilePath           string        `yaml:"profile_path"`
	RegisterPath          string        `yaml:"register_path"`
	ProfileRefreshTimeout time.Duration `yaml:"profile_refresh_timeout"`
	MaxResponseBytes      int64         `yaml:"max_response_bytes"`
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig names the views the guard and pipeline redirect to.
type RoutesConfig struct {
	Login        string `yaml:"login"`
	Unauthorized string `yaml:"unauthorized"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects where session snapshots are persisted.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
)

// StorageConfig selects and configures the session backend. It is ignored when a backend
// is injected with [Builder.WithBackend].
type StorageConfig struct {
	Backend         StorageBackend `yaml:"backend"`
	File            string         `yaml:"file"`
	RedisAddr       string         `yaml:"redis_addr"`
	RedisPrefix     string         `yaml:"redis_prefix"`
	RedisTTL        time.Duration  `yaml:"redis_ttl"`
	SnapshotKey     string         `yaml:"snapshot_key"`
	AccessTokenKey  string         `yaml:"access_token_key"`
	RefreshTokenKey string         `yaml:"refresh_token_key"`
}

func (s StorageConfig) keys() session.Keys {
	return session.Keys{
		Snapshot:     s.SnapshotKey,
		AccessToken:  s.AccessTokenKey,
		RefreshToken: s.RefreshTokenKey,
	}
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters and the request latency histogram.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the portal defaults: a local backend, in-memory storage, metrics
// on, audit off.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:               "http://localhost:8000/api",
			Timeout:               15 * time.Second,
			LoginPath:             "/auth/token",
			RefreshPath:           "/auth/token/refresh",
			ProfilePath:           "/auth/me",
			RegisterPath:          "/auth/register",
			ProfileRefreshTimeout: 5 * time.Second,
			MaxResponseBytes:      4 << 20,
		},
		Routes: RoutesConfig{
			Login:        "/login",
			Unauthorized: "/unauthorized",
		},
		Storage: StorageConfig{
			Backend:         StorageMemory,
			RedisPrefix:     "hrm",
			SnapshotKey:     session.DefaultSnapshotKey,
			AccessTokenKey:  session.DefaultAccessTokenKey,
			RefreshTokenKey: session.DefaultRefreshTokenKey,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the client cannot run with.
func (c *Config) Validate() error {
	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("API BaseURL must be an absolute http(s) URL")
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}
	for name, p := range map[string]string{
		"LoginPath":    c.API.LoginPath,
		"RefreshPath":  c.API.RefreshPath,
		"ProfilePath":  c.API.ProfilePath,
		"RegisterPath": c.API.RegisterPath,
	} {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("API %s must not be empty", name)
		}
	}
	if normalizeEndpoint(c.API.LoginPath) == normalizeEndpoint(c.API.RefreshPath) {
		return errors.New("API LoginPath and RefreshPath must differ")
	}
	if c.API.ProfileRefreshTimeout <= 0 {
		return errors.New("API ProfileRefreshTimeout must be > 0")
	}
	if c.API.MaxResponseBytes <= 0 {
		return errors.New("API MaxResponseBytes must be > 0")
	}

	// Routes
	if !strings.HasPrefix(c.Routes.Login, "/") {
		return errors.New("Routes Login must be an absolute path")
	}
	if !strings.HasPrefix(c.Routes.Unauthorized, "/") {
		return errors.New("Routes Unauthorized must be an absolute path")
	}
	if c.Routes.Login == c.Routes.Unauthorized {
		return errors.New("Routes Login and Unauthorized must differ")
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if strings.TrimSpace(c.Storage.File) == "" {
			return errors.New("Storage File is required for the file backend")
		}
	case StorageRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return errors.New("Storage RedisAddr is required for the redis backend")
		}
		if c.Storage.RedisTTL < 0 {
			return errors.New("Storage RedisTTL must be >= 0")
		}
	default:
		return fmt.Errorf("Storage Backend %q is not supported", c.Storage.Backend)
	}
	keys := c.Storage.keys()
	if keys.Snapshot != "" && (keys.Snapshot == keys.AccessToken || keys.Snapshot == keys.RefreshToken) {
		return errors.New("Storage snapshot key must differ from the token keys")
	}
	if keys.AccessToken != "" && keys.AccessToken == keys.RefreshToken {
		return errors.New("Storage token keys must differ")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a non-fatal configuration smell.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// Lint reports settings that are valid but probably unintended.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if u, err := url.Parse(c.API.BaseURL); err == nil && u.Scheme == "http" && !isLoopbackHost(u.Hostname()) {
		add("base_url_insecure", "bearer tokens will travel over plain http")
	}
	if c.API.Timeout > time.Minute {
		add("timeout_long", "API Timeout above 1m keeps the UI waiting on a dead backend")
	}
	if c.API.ProfileRefreshTimeout > c.API.Timeout {
		add("profile_timeout_exceeds_api", "ProfileRefreshTimeout is longer than the transport timeout")
	}
	if c.Storage.Backend == StorageMemory {
		add("storage_memory", "sessions will not survive a restart")
	}
	if c.Storage.Backend == StorageRedis && c.Storage.RedisTTL == 0 {
		add("redis_no_ttl", "stale snapshots stay in redis until logout")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", "session transitions are not audited")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_blocking", "a slow audit sink will block session transitions")
	}
	if !c.Metrics.Enabled {
		add("metrics_disabled", "no counters will be recorded")
	}

	return ws
}

func isLoopbackHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
