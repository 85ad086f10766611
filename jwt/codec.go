package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is matched by every [DecodeError].
var ErrMalformedToken = errors.New("malformed token")

// DecodeError reports a token that could not be turned into [Claims]. Callers treat it as
// "no usable session", never as a crash.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	if e == nil || e.Err == nil {
		return ErrMalformedToken.Error()
	}
	return "malformed token: " + e.Err.Error()
}

// Unwrap exposes both ErrMalformedToken and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	if e == nil || e.Err == nil {
		return []error{ErrMalformedToken}
	}
	return []error{ErrMalformedToken, e.Err}
}

// UserID is the user_id claim. Backends emit it as a JSON number or string; it is kept
// in its textual form.
type UserID string

// UnmarshalJSON accepts numbers and strings.
func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("user_id must be a string or number")
	}
	*id = UserID(n.String())
	return nil
}

// MarshalJSON emits integer ids as numbers and everything else as strings.
func (id UserID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id UserID) String() string {
	return string(id)
}

// Claims is the payload the HRM backend puts in its access tokens.
type Claims struct {
	UserID   UserID `json:"user_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ExpiresAtTime returns the exp claim, or the zero time when it is absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Expired reports whether exp is absent or not strictly after now.
func (c *Claims) Expired(now time.Time) bool {
	exp := c.ExpiresAtTime()
	if exp.IsZero() {
		return true
	}
	return !exp.After(now)
}

var unverifiedParser = jwt.NewParser()

// Decode extracts claims from token without verifying its signature.
//
// Trust boundary: the result is a display and UI-gating hint only. A client cannot check
// the issuer's signature, so decoded roles must never stand in for server-side
// authorization.
func Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &DecodeError{Err: errors.New("empty token")}
	}
	if strings.Count(token, ".") != 2 {
		return nil, &DecodeError{Err: errors.New("token must have three segments")}
	}

	claims := &Claims{}
	if _, _, err := unverifiedParser.ParseUnverified(token, claims); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return claims, nil
}
