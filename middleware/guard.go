package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	hrmAuth "github.com/MrEthical07/hrmAuth"
	"github.com/MrEthical07/hrmAuth/permission"
	"github.com/MrEthical07/hrmAuth/session"
)

// Source is the session view a guard evaluates against. *hrmAuth.Client satisfies it.
type Source interface {
	CheckSession(ctx context.Context) bool
	HasPermission(capability permission.Capability) bool
	CanAccess(routePath string) bool
	RefreshProfile(ctx context.Context) (*hrmAuth.Profile, error)
}

// outcomeRecorder is implemented by sources that count guard outcomes.
type outcomeRecorder interface {
	RecordGuard(outcome hrmAuth.GuardOutcome)
}

// userSource is implemented by sources that can expose the session user to handlers.
type userSource interface {
	CurrentUser() *session.User
}

const defaultProfileTimeout = 5 * time.Second

// GuardOptions configure one guarded subtree.
type GuardOptions struct {
	LoginPath        string
	UnauthorizedPath string
	// Required is checked before the route map; empty means no extra requirement.
	Required permission.Capability
	// ProfileTimeout bounds the background profile refresh. Zero means 5s.
	ProfileTimeout time.Duration
	Logger         *slog.Logger
}

// OptionsFor returns options carrying c's configured routes, profile timeout, and logger.
func OptionsFor(c *hrmAuth.Client) GuardOptions {
	cfg := c.Config()
	return GuardOptions{
		LoginPath:        cfg.Routes.Login,
		UnauthorizedPath: cfg.Routes.Unauthorized,
		ProfileTimeout:   cfg.API.ProfileRefreshTimeout,
		Logger:           c.Logger(),
	}
}

// Decision is the result of [Evaluate]. RedirectURL is empty for GuardAdmit.
type Decision struct {
	Outcome     hrmAuth.GuardOutcome
	RedirectURL string
}

// Admitted reports whether the guarded view may render.
func (d Decision) Admitted() bool {
	return d.Outcome == hrmAuth.GuardAdmit
}

type userContextKey struct{}

// UserFromContext returns the session user injected by [Guard] for admitted requests.
func UserFromContext(ctx context.Context) (*session.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*session.User)
	return u, ok && u != nil
}

// Evaluate runs the guard for one navigation to location (a path, optionally with a
// query). The order is fixed: session, then the explicit requirement, then the route map.
//
// Every evaluation also starts a background profile refresh on src. It is detached from
// ctx, bounded by opts.ProfileTimeout, and its outcome never changes the decision.
func Evaluate(ctx context.Context, src Source, location string, opts GuardOptions) Decision {
	d := evaluate(ctx, src, location, opts)
	if rec, ok := src.(outcomeRecorder); ok {
		rec.RecordGuard(d.Outcome)
	}
	refreshProfile(ctx, src, opts)
	return d
}

func evaluate(ctx context.Context, src Source, location string, opts GuardOptions) Decision {
	if src == nil || !src.CheckSession(ctx) {
		return Decision{Outcome: hrmAuth.GuardLogin, RedirectURL: LoginURL(opts.LoginPath, location)}
	}
	if opts.Required != "" && !src.HasPermission(opts.Required) {
		return Decision{Outcome: hrmAuth.GuardUnauthorized, RedirectURL: opts.UnauthorizedPath}
	}
	if !src.CanAccess(pathOf(location)) {
		return Decision{Outcome: hrmAuth.GuardUnauthorized, RedirectURL: opts.UnauthorizedPath}
	}
	return Decision{Outcome: hrmAuth.GuardAdmit}
}

// LoginURL is the login redirect for an unauthenticated navigation to from. The clear
// flag tells the login view to drop any stale session remnants.
func LoginURL(loginPath, from string) string {
	if loginPath == "" {
		loginPath = "/login"
	}
	return loginPath + "?from=" + url.QueryEscape(from) + "&clear=1"
}

func pathOf(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Path == "" {
		return location
	}
	return u.Path
}

func refreshProfile(ctx context.Context, src Source, opts GuardOptions) {
	if src == nil {
		return
	}
	timeout := opts.ProfileTimeout
	if timeout <= 0 {
		timeout = defaultProfileTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, timeout)
		defer cancel()
		if _, err := src.RefreshProfile(ctx); err != nil && !errors.Is(err, hrmAuth.ErrNotAuthenticated) {
			logger.Warn("hrmAuth: background profile refresh failed", "error", err)
		}
	}()
}

// Guard returns middleware that evaluates every request before the wrapped handler runs.
// Denied requests get a 303 redirect to the login or unauthorized route.
func Guard(src Source, opts GuardOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Evaluate(r.Context(), src, r.URL.RequestURI(), opts)
			if !d.Admitted() {
				http.Redirect(w, r, d.RedirectURL, http.StatusSeeOther)
				return
			}

			ctx := r.Context()
			if us, ok := src.(userSource); ok {
				if u := us.CurrentUser(); u != nil {
					ctx = context.WithValue(ctx, userContextKey{}, u)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
