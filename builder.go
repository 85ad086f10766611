package hrmAuth

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/hrmAuth/jwt"
	"github.com/MrEthical07/hrmAuth/permission"
	"github.com/MrEthical07/hrmAuth/session"
)

// Builder assembles a [Client]. A Builder is single-use.
type Builder struct {
	config     Config
	backend    session.Backend
	httpClient *http.Client
	navigator  Navigator
	auditSink  AuditSink
	table      *permission.Table
	routes     *permission.RouteMap
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBackend injects the session backend, overriding Config.Storage.
func (b *Builder) WithBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

// WithHTTPClient injects the transport. Its Timeout is left as given.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithNavigator sets the redirect target for forced logouts.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithAuditSink sets the audit sink; audit must also be enabled in Config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithPermissionTable overrides [permission.DefaultTable].
func (b *Builder) WithPermissionTable(t *permission.Table) *Builder {
	b.table = t
	return b
}

// WithRouteMap overrides [permission.DefaultRouteMap].
func (b *Builder) WithRouteMap(m *permission.RouteMap) *Builder {
	b.routes = m
	return b
}

// WithClock replaces time.Now for expiry checks. Tests use it to move time.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a ready Client. Build performs no I/O;
// a Redis backend opened from Config connects lazily.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:    cfg,
		logger:    cfg.Logger,
		baseURL:   cfg.API.BaseURL,
		table:     b.table,
		routes:    b.routes,
		navigator: b.navigator,
		now:       b.now,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		metrics:   NewMetrics(cfg.Metrics),
	}
	if c.table == nil {
		c.table = permission.DefaultTable()
	}
	if c.routes == nil {
		c.routes = permission.DefaultRouteMap()
	}
	if c.navigator == nil {
		c.navigator = noopNavigator{}
	}
	if c.now == nil {
		c.now = time.Now
	}

	c.http = b.httpClient
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.API.Timeout}
	}

	// -------- SESSION STORE --------
	backend := b.backend
	if backend == nil {
		switch cfg.Storage.Backend {
		case StorageFile:
			backend = session.NewFileBackend(cfg.Storage.File)
		case StorageRedis:
			rdb := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
			c.closers = append(c.closers, rdb.Close)
			backend = session.NewRedisBackend(rdb, cfg.Storage.RedisPrefix, cfg.Storage.RedisTTL)
		default:
			backend = session.NewMemoryBackend()
		}
	}
	c.store = session.NewStore(backend, cfg.Storage.keys())

	c.audit = newAuditDispatcher(cfg.Audit, b.auditSink, c.logger, c.now)
	c.decode = jwt.Decode
	c.flows = c.buildFlows()

	b.built = true
	return c, nil
}
