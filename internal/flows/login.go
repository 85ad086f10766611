package flows

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/hrmAuth/jwt"
	"github.com/MrEthical07/hrmAuth/session"
)

// PostFunc sends one JSON POST to a backend path without a bearer token.
type PostFunc func(ctx context.Context, path string, payload any) (Exchange, error)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureTransport
	LoginFailureRejected
	LoginFailureMalformed
	LoginFailureDecode
)

// LoginResult carries either the new session or failure metadata.
type LoginResult struct {
	Failure  LoginFailureKind
	Err      error
	Status   int
	Body     map[string]any
	Message  string
	Snapshot *session.Snapshot
	Claims   *jwt.Claims
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Path   string
	Post   PostFunc
	Decode func(string) (*jwt.Claims, error)
	Now    func() time.Time
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RunLogin exchanges credentials for a token pair and builds the session snapshot from
// the access token's claims.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) LoginResult {
	ex, err := deps.Post(ctx, deps.Path, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return LoginResult{Failure: LoginFailureTransport, Err: err}
	}

	if ex.Status < 200 || ex.Status > 299 {
		body := ParseObject(ex.Body)
		return LoginResult{
			Failure: LoginFailureRejected,
			Status:  ex.Status,
			Body:    body,
			Message: RejectionMessage(body, "invalid credentials"),
		}
	}

	var pair tokenPair
	if err := json.Unmarshal(ex.Body, &pair); err != nil || pair.Access == "" {
		if err == nil {
			err = errors.New("token response has no access token")
		}
		return LoginResult{Failure: LoginFailureMalformed, Status: ex.Status, Err: err}
	}

	claims, err := deps.Decode(pair.Access)
	if err != nil {
		return LoginResult{Failure: LoginFailureDecode, Status: ex.Status, Err: err}
	}

	return LoginResult{
		Failure: LoginFailureNone,
		Status:  ex.Status,
		Claims:  claims,
		Snapshot: &session.Snapshot{
			User:            UserFromClaims(claims, username),
			AccessToken:     pair.Access,
			RefreshToken:    pair.Refresh,
			IsAuthenticated: !claims.Expired(deps.Now()),
		},
	}
}

// UserFromClaims builds the session user. fallbackUsername fills a missing username claim.
func UserFromClaims(claims *jwt.Claims, fallbackUsername string) *session.User {
	username := claims.Username
	if username == "" {
		username = fallbackUsername
	}
	return &session.User{
		ID:       claims.UserID.String(),
		Username: username,
		Email:    claims.Email,
		Role:     claims.Role,
	}
}

// ParseObject decodes a JSON object body. Anything else, including an empty or non-JSON
// body, yields an empty map.
func ParseObject(data []byte) map[string]any {
	out := map[string]any{}
	if len(data) == 0 {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// RejectionMessage picks the backend's human-readable reason from an error body:
// "detail", "message", "error", "non_field_errors", then the first field error by name.
func RejectionMessage(body map[string]any, fallback string) string {
	for _, key := range []string{"detail", "message", "error", "non_field_errors"} {
		if msg := firstString(body[key]); msg != "" {
			return msg
		}
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if msg := firstString(body[k]); msg != "" {
			return k + ": " + msg
		}
	}
	return fallback
}

func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if s := firstString(item); s != "" {
				return s
			}
		}
	}
	return ""
}
