package hrmAuth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/hrmAuth/jwt"
)

// Credentials is the login form.
type Credentials struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a portal account. The caller's session must hold
// canRegisterUsers on the backend.
type RegisterRequest struct {
	Username   string `json:"username" validate:"required,max=150"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Role       string `json:"role" validate:"required,oneof=CEO HR Manager Employee"`
	Department string `json:"department,omitempty"`
}

// Options shape one pipeline call.
//
// Body is JSON-encoded unless Raw is set, in which case it must be a []byte, string, or
// io.Reader and Content-Type is left to Headers (for example a multipart boundary).
type Options struct {
	Method  string
	Body    any
	Raw     bool
	Headers http.Header
}

// Profile is the backend's view of the current user, from GET /auth/me.
type Profile struct {
	ID         jwt.UserID      `json:"id"`
	Username   string          `json:"username"`
	Email      string          `json:"email"`
	Role       string          `json:"role"`
	FirstName  string          `json:"first_name,omitempty"`
	LastName   string          `json:"last_name,omitempty"`
	Department string          `json:"department,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// Navigator performs the full client-side redirect when the pipeline ends a session.
type Navigator interface {
	Redirect(ctx context.Context, target string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(ctx context.Context, target string)

func (f NavigatorFunc) Redirect(ctx context.Context, target string) {
	f(ctx, target)
}

type noopNavigator struct{}

func (noopNavigator) Redirect(context.Context, string) {}

// GuardOutcome is the result of one route guard evaluation.
type GuardOutcome int

const (
	// GuardAdmit renders the guarded view.
	GuardAdmit GuardOutcome = iota
	// GuardLogin redirects to the login route.
	GuardLogin
	// GuardUnauthorized redirects to the unauthorized route.
	GuardUnauthorized
)

func (o GuardOutcome) String() string {
	switch o {
	case GuardAdmit:
		return "admit"
	case GuardLogin:
		return "login"
	case GuardUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}
