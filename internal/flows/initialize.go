package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/hrmAuth/jwt"
	"github.com/MrEthical07/hrmAuth/session"
)

// InitializeOutcome says what RunInitialize found in storage.
type InitializeOutcome int

const (
	// InitializeEmpty: nothing persisted.
	InitializeEmpty InitializeOutcome = iota
	// InitializeRestored: a live access token; Snapshot is ready to adopt.
	InitializeRestored
	// InitializeExpired: the access token's exp has passed.
	InitializeExpired
	// InitializeUndecodable: the snapshot or token could not be read.
	InitializeUndecodable
	// InitializeUnavailable: the backend failed; storage is left untouched.
	InitializeUnavailable
)

func (o InitializeOutcome) String() string {
	switch o {
	case InitializeEmpty:
		return "empty"
	case InitializeRestored:
		return "restored"
	case InitializeExpired:
		return "expired"
	case InitializeUndecodable:
		return "undecodable"
	case InitializeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// InitializeResult is the outcome of RunInitialize.
type InitializeResult struct {
	Outcome  InitializeOutcome
	Snapshot *session.Snapshot
	Claims   *jwt.Claims
	// FromFlatKeys is set when no snapshot existed and the flat accessToken key was used.
	FromFlatKeys bool
	Err          error
}

type InitializeStore interface {
	Load(ctx context.Context) (*session.Snapshot, bool, error)
	RawAccessToken(ctx context.Context) (string, bool, error)
	RawRefreshToken(ctx context.Context) (string, bool, error)
}

// InitializeDeps captures initialize flow dependencies.
type InitializeDeps struct {
	Store  InitializeStore
	Decode func(string) (*jwt.Claims, error)
	Now    func() time.Time
}

// RunInitialize reconciles persisted state with the clock. It makes no network call.
func RunInitialize(ctx context.Context, deps InitializeDeps) InitializeResult {
	snap, ok, err := deps.Store.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrBackendUnavailable) {
			return InitializeResult{Outcome: InitializeUnavailable, Err: err}
		}
		return InitializeResult{Outcome: InitializeUndecodable, Err: err}
	}

	fromFlat := false
	if !ok || snap.AccessToken == "" {
		access, found, err := deps.Store.RawAccessToken(ctx)
		if err != nil {
			return InitializeResult{Outcome: InitializeUnavailable, Err: err}
		}
		if !found || access == "" {
			if ok && !snap.Empty() {
				// A snapshot without an access token is a stale remnant.
				return InitializeResult{Outcome: InitializeUndecodable}
			}
			return InitializeResult{Outcome: InitializeEmpty}
		}
		refresh, _, err := deps.Store.RawRefreshToken(ctx)
		if err != nil {
			return InitializeResult{Outcome: InitializeUnavailable, Err: err}
		}
		snap = &session.Snapshot{AccessToken: access, RefreshToken: refresh}
		fromFlat = true
	}

	claims, err := deps.Decode(snap.AccessToken)
	if err != nil {
		return InitializeResult{Outcome: InitializeUndecodable, FromFlatKeys: fromFlat, Err: err}
	}
	if claims.Expired(deps.Now()) {
		return InitializeResult{Outcome: InitializeExpired, Claims: claims, FromFlatKeys: fromFlat}
	}

	var fallback string
	if snap.User != nil {
		fallback = snap.User.Username
	}
	restored := &session.Snapshot{
		User:            UserFromClaims(claims, fallback),
		AccessToken:     snap.AccessToken,
		RefreshToken:    snap.RefreshToken,
		IsAuthenticated: true,
	}
	return InitializeResult{
		Outcome:      InitializeRestored,
		Snapshot:     restored,
		Claims:       claims,
		FromFlatKeys: fromFlat,
	}
}
