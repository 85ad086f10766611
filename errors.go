package hrmAuth

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionEnded is returned by the request pipeline after it forced a logout and
	// redirected to the login route. Callers get no value in this branch.
	ErrSessionEnded = errors.New("session ended")
	// ErrNotAuthenticated is returned by operations that require a logged-in session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoRefreshToken is the cause of a RefreshError when no refresh token is stored.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrClientNotReady is returned by methods called on a nil or closed Client.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrInvalidCredentialsInput is returned when login or register input fails validation
	// before any network call.
	ErrInvalidCredentialsInput = errors.New("invalid credentials input")
	// ErrInvalidResponse marks a 2xx response whose body is not JSON.
	ErrInvalidResponse = errors.New("invalid response body")
)

// AuthError is a login or register rejection. Message carries the backend's reason.
type AuthError struct {
	Status  int
	Message string
	Body    map[string]any
	Err     error
}

func (e *AuthError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("auth rejected (%d): %s", e.Status, e.Message)
	}
	return "auth failed: " + e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RefreshError reports a failed token refresh. The session has already been logged out
// when it is returned, unless Err is ErrNotAuthenticated: a login replaced the session
// while the refresh was in flight, and the new session was kept.
type RefreshError struct {
	Status int
	Err    error
}

func (e *RefreshError) Error() string {
	switch {
	case e.Status > 0:
		return fmt.Sprintf("token refresh rejected (%d)", e.Status)
	case e.Err != nil:
		return "token refresh failed: " + e.Err.Error()
	default:
		return "token refresh failed"
	}
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// APIError is any non-2xx response other than an unrecoverable 401, or a transport
// failure (Status 0). Body is the parsed JSON object, or empty when the response had none.
type APIError struct {
	Status int
	Body   map[string]any
	URL    string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("request %s failed: %v", e.URL, e.Err)
		}
		return fmt.Sprintf("request %s failed", e.URL)
	}
	if d := e.Detail(); d != "" {
		return fmt.Sprintf("request %s: status %d: %s", e.URL, e.Status, d)
	}
	return fmt.Sprintf("request %s: status %d", e.URL, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Detail returns the backend's "detail" string, or "" when absent.
func (e *APIError) Detail() string {
	if e == nil || e.Body == nil {
		return ""
	}
	d, _ := e.Body["detail"].(string)
	return d
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
