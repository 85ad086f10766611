package flows

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MrEthical07/hrmAuth/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoToken
	RefreshFailureTransport
	RefreshFailureRejected
	RefreshFailureMalformed
)

// RefreshResult carries either the new access token or failure metadata. Claims is nil
// when the new token does not decode; the token is still usable as a bearer.
type RefreshResult struct {
	Failure     RefreshFailureKind
	Err         error
	Status      int
	AccessToken string
	Claims      *jwt.Claims
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Path   string
	Post   PostFunc
	Decode func(string) (*jwt.Claims, error)
}

var errNoAccessInRefresh = errors.New("refresh response has no access token")

// RunRefresh trades the refresh token for a new access token.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureNoToken}
	}

	ex, err := deps.Post(ctx, deps.Path, map[string]string{"refresh": refreshToken})
	if err != nil {
		return RefreshResult{Failure: RefreshFailureTransport, Err: err}
	}
	if ex.Status < 200 || ex.Status > 299 {
		body := ParseObject(ex.Body)
		return RefreshResult{
			Failure: RefreshFailureRejected,
			Status:  ex.Status,
			Err:     errors.New(RejectionMessage(body, "refresh rejected")),
		}
	}

	var resp struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(ex.Body, &resp); err != nil {
		return RefreshResult{Failure: RefreshFailureMalformed, Status: ex.Status, Err: err}
	}
	if resp.Access == "" {
		return RefreshResult{Failure: RefreshFailureMalformed, Status: ex.Status, Err: errNoAccessInRefresh}
	}

	out := RefreshResult{Failure: RefreshFailureNone, Status: ex.Status, AccessToken: resp.Access}
	if claims, err := deps.Decode(resp.Access); err == nil {
		out.Claims = claims
	}
	return out
}
