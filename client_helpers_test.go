package hrmAuth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/hrmAuth/jwt"
	"github.com/MrEthical07/hrmAuth/session"
)

const testPassword = "correct-password-123"

// fakeAPI is a minimal HRM backend: token issue and refresh, a profile, and a few
// resources that require a bearer.
type fakeAPI struct {
	t   testing.TB
	mgr *jwt.Manager
	srv *httptest.Server

	mu           sync.Mutex
	valid        map[string]bool
	refreshToken string
	role         string
	refreshFail  bool
	rejectAll    bool
	refreshDelay time.Duration

	// offset shifts the clock used for newly issued tokens.
	offset atomic.Int64

	refreshCalls atomic.Int32
	thingsCalls  atomic.Int32
	lastBearer   atomic.Value
	lastBody     atomic.Value

	// sent records every bearer-guarded call in arrival order.
	sent []sentRequest
}

type sentRequest struct {
	Bearer      string
	ContentType string
	Body        []byte
}

func newFakeAPI(t testing.TB) *fakeAPI {
	t.Helper()
	mgr, err := jwt.NewManager(jwt.Config{
		AccessTTL:     time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("fake-api-secret-fake-api-secret"),
		Issuer:        "hrm-test",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	f := &fakeAPI{
		t:            t,
		mgr:          mgr,
		valid:        map[string]bool{},
		refreshToken: "R1",
		role:         "HR",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/token", f.handleLogin)
	mux.HandleFunc("POST /api/auth/token/refresh", f.handleRefresh)
	mux.HandleFunc("GET /api/auth/me", f.requireBearer(f.handleMe))
	mux.HandleFunc("POST /api/auth/register", f.requireBearer(f.handleRegister))
	mux.HandleFunc("/api/things", f.requireBearer(func(w http.ResponseWriter, r *http.Request) {
		f.thingsCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"items": []int{1, 2}})
	}))
	mux.HandleFunc("GET /api/bad", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Invalid department"})
	})
	mux.HandleFunc("GET /api/html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>oops</html>"))
	})
	mux.HandleFunc("DELETE /api/empty", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) now() time.Time {
	return time.Now().Add(time.Duration(f.offset.Load()))
}

func (f *fakeAPI) baseURL() string {
	return f.srv.URL + "/api"
}

// mint issues an access token for alice with the given expiry.
func (f *fakeAPI) mint(exp time.Time) string {
	f.t.Helper()
	f.mu.Lock()
	role := f.role
	f.mu.Unlock()
	token, err := f.mgr.CreateAccess(jwt.Claims{
		UserID:   "7",
		Username: "alice",
		Email:    "alice@example.com",
		Role:     role,
		RegisteredClaims: gjwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: gjwt.NewNumericDate(exp),
		},
	})
	if err != nil {
		f.t.Fatalf("mint: %v", err)
	}
	f.mu.Lock()
	f.valid[token] = true
	f.mu.Unlock()
	return token
}

// revokeAll makes every access token issued so far answer 401.
func (f *fakeAPI) revokeAll() {
	f.mu.Lock()
	f.valid = map[string]bool{}
	f.mu.Unlock()
}

func (f *fakeAPI) setRole(role string) {
	f.mu.Lock()
	f.role = role
	f.mu.Unlock()
}

func (f *fakeAPI) setRefreshFail(v bool) {
	f.mu.Lock()
	f.refreshFail = v
	f.mu.Unlock()
}

func (f *fakeAPI) setRefreshDelay(d time.Duration) {
	f.mu.Lock()
	f.refreshDelay = d
	f.mu.Unlock()
}

func (f *fakeAPI) setRejectAll(v bool) {
	f.mu.Lock()
	f.rejectAll = v
	f.mu.Unlock()
}

func (f *fakeAPI) sentRequests() []sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentRequest(nil), f.sent...)
}

func (f *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Username != "alice" || body.Password != testPassword {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  f.mint(f.now().Add(time.Hour)),
		"refresh": f.refreshToken,
	})
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	f.mu.Lock()
	delay, fail := f.refreshDelay, f.refreshFail
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if fail || body.Refresh != f.refreshToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"access": f.mint(f.now().Add(time.Hour))})
}

func (f *fakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	role := f.role
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         7,
		"username":   "alice",
		"email":      "alice@example.com",
		"role":       role,
		"first_name": "Alice",
		"department": "People",
	})
}

func (f *fakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body["username"] == "taken" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"username": []string{"A user with that username already exists."}})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": 9, "username": body["username"]})
}

func (f *fakeAPI) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.lastBearer.Store(token)
		var data []byte
		if r.Body != nil {
			data, _ = io.ReadAll(r.Body)
			f.lastBody.Store(string(data))
			r.Body = io.NopCloser(bytes.NewReader(data))
		}
		f.mu.Lock()
		f.sent = append(f.sent, sentRequest{Bearer: token, ContentType: r.Header.Get("Content-Type"), Body: data})
		ok := f.valid[token] && !f.rejectAll
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Given token not valid for any token type"})
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// recordingNavigator remembers every redirect target.
type recordingNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *recordingNavigator) Redirect(_ context.Context, target string) {
	n.mu.Lock()
	n.targets = append(n.targets, target)
	n.mu.Unlock()
}

func (n *recordingNavigator) Targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

type testClientOptions struct {
	backend session.Backend
	now     func() time.Time
	sink    AuditSink
	mutate  func(*Config)
}

func newTestClient(t testing.TB, api *fakeAPI, opts testClientOptions) (*Client, *recordingNavigator) {
	t.Helper()
	cfg := DefaultConfig()
	if api != nil {
		cfg.API.BaseURL = api.baseURL()
	}
	if opts.sink != nil {
		cfg.Audit.Enabled = true
		cfg.Audit.DropIfFull = false
	}
	if opts.mutate != nil {
		opts.mutate(&cfg)
	}

	nav := &recordingNavigator{}
	b := New().WithConfig(cfg).WithNavigator(nav)
	if opts.backend != nil {
		b = b.WithBackend(opts.backend)
	}
	if opts.now != nil {
		b = b.WithClock(opts.now)
	}
	if opts.sink != nil {
		b = b.WithAuditSink(opts.sink)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, nav
}

func loginAlice(t testing.TB, c *Client) {
	t.Helper()
	if err := c.Login(context.Background(), Credentials{Username: "alice", Password: testPassword}); err != nil {
		t.Fatalf("login: %v", err)
	}
}

// newHeaderCapture serves 200 {} and stores the X-Request-ID of the last call in got.
func newHeaderCapture(t *testing.T, got *string) string {
	t.Helper()
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*got = r.Header.Get("X-Request-ID")
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTextLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
