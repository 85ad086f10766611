package stubapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/hrmAuth/internal/rate"
	"github.com/MrEthical07/hrmAuth/jwt"
	"github.com/MrEthical07/hrmAuth/permission"
)

// Config configures a stub [Server].
type Config struct {
	Issuer    string
	Secret    []byte
	AccessTTL time.Duration
	// Redis enables the failed-login and refresh throttles. Nil disables both.
	Redis             redis.UniversalClient
	MaxLoginAttempts  int
	LoginCooldown     time.Duration
	MaxRefreshPerMin  int
	RequestsPerMinute int
	// BcryptCost defaults to bcrypt.MinCost so tests stay fast.
	BcryptCost int
	Logger     *slog.Logger
}

// User is a stub account.
type User struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Department string `json:"department,omitempty"`

	passwordHash []byte
}

// Server is the stub HRM backend.
type Server struct {
	cfg      Config
	tokens   *jwt.Manager
	limiter  *rate.Limiter
	validate *validator.Validate
	logger   *slog.Logger

	mu      sync.RWMutex
	users   map[string]*User
	nextID  int
	refresh map[string]string // refresh token hash -> username
	access  map[string]bool   // live access token ids

	loginCalls   atomic.Int64
	refreshCalls atomic.Int64
	failRefresh  atomic.Bool
}

// New validates cfg and returns an empty Server.
func New(cfg Config) (*Server, error) {
	if cfg.Issuer == "" {
		cfg.Issuer = "hrm-stub"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 5 * time.Minute
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("stubapi: secret is required")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = 5
	}
	if cfg.LoginCooldown <= 0 {
		cfg.LoginCooldown = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.AccessTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.Secret,
		Issuer:        cfg.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("stubapi: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   cfg.Logger,
		users:    map[string]*User{},
		refresh:  map[string]string{},
		access:   map[string]bool{},
	}
	if cfg.Redis != nil {
		s.limiter = rate.New(cfg.Redis, rate.Config{
			Prefix:                  "hrm-stub",
			EnableIPThrottle:        true,
			MaxLoginAttempts:        cfg.MaxLoginAttempts,
			LoginCooldownDuration:   cfg.LoginCooldown,
			EnableRefreshThrottle:   cfg.MaxRefreshPerMin > 0,
			MaxRefreshAttempts:      cfg.MaxRefreshPerMin,
			RefreshCooldownDuration: time.Minute,
		})
	}
	return s, nil
}

// AddUser creates an account. role must be one of the portal roles.
func (s *Server) AddUser(u User, password string) (*User, error) {
	if !permission.Role(u.Role).Valid() {
		return nil, fmt.Errorf("stubapi: unknown role %q", u.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("stubapi: hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.Username]; exists {
		return nil, errUsernameTaken
	}
	s.nextID++
	u.ID = s.nextID
	u.passwordHash = hash
	stored := u
	s.users[u.Username] = &stored
	out := stored
	return &out, nil
}

// Seed adds one account per role: ceo, hr, manager, employee, all with password.
func (s *Server) Seed(password string) error {
	for _, u := range []User{
		{Username: "ceo", Email: "ceo@example.com", Role: string(permission.RoleCEO), Department: "Executive"},
		{Username: "hr", Email: "hr@example.com", Role: string(permission.RoleHR), Department: "People"},
		{Username: "manager", Email: "manager@example.com", Role: string(permission.RoleManager), Department: "Engineering"},
		{Username: "employee", Email: "employee@example.com", Role: string(permission.RoleEmployee), Department: "Engineering"},
	} {
		if _, err := s.AddUser(u, password); err != nil {
			return err
		}
	}
	return nil
}

// RevokeAccessTokens makes every issued access token answer 401, as if they had expired
// server-side. Refresh tokens stay valid.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	s.access = map[string]bool{}
	s.mu.Unlock()
}

// RevokeRefreshTokens invalidates every refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refresh = map[string]string{}
	s.mu.Unlock()
}

// FailRefresh makes the refresh endpoint reject every request while set.
func (s *Server) FailRefresh(v bool) {
	s.failRefresh.Store(v)
}

// LoginCalls returns how many token requests the server has answered.
func (s *Server) LoginCalls() int64 {
	return s.loginCalls.Load()
}

// RefreshCalls returns how many refresh requests the server has answered.
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// Handler returns the API mounted under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.cfg.RequestsPerMinute > 0 {
		r.Use(httprate.Limit(s.cfg.RequestsPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/token", s.handleToken)
		r.Post("/auth/token/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccess)
			r.Get("/auth/me", s.handleMe)
			r.With(s.requireCapability(permission.CanRegisterUsers)).Post("/auth/register", s.handleRegister)
			r.With(s.requireCapability(permission.CanManageEmployees)).Get("/employees", s.handleEmployees)
			r.With(s.requireCapability(permission.CanManageDepartments)).Post("/departments", s.handleDepartments)
			r.Get("/dashboard", s.handleDashboard)
		})
	})
	return r
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
