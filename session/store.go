package session

import (
	"context"
	"fmt"
)

// Default storage keys.
const (
	DefaultSnapshotKey     = "auth-storage"
	DefaultAccessTokenKey  = "accessToken"
	DefaultRefreshTokenKey = "refreshToken"
)

// Keys names the snapshot key and the two flat token keys.
type Keys struct {
	Snapshot     string
	AccessToken  string
	RefreshToken string
}

// DefaultKeys returns the portal's storage keys.
func DefaultKeys() Keys {
	return Keys{
		Snapshot:     DefaultSnapshotKey,
		AccessToken:  DefaultAccessTokenKey,
		RefreshToken: DefaultRefreshTokenKey,
	}
}

func (k Keys) withDefaults() Keys {
	d := DefaultKeys()
	if k.Snapshot == "" {
		k.Snapshot = d.Snapshot
	}
	if k.AccessToken == "" {
		k.AccessToken = d.AccessToken
	}
	if k.RefreshToken == "" {
		k.RefreshToken = d.RefreshToken
	}
	return k
}

// Store persists session snapshots and the flat token mirror through a [Backend].
// It holds no session state itself.
type Store struct {
	backend Backend
	keys    Keys
}

// NewStore creates a [Store]. A nil backend falls back to a fresh [MemoryBackend]; empty
// key names fall back to [DefaultKeys].
func NewStore(backend Backend, keys Keys) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Store{backend: backend, keys: keys.withDefaults()}
}

// Keys returns the resolved storage keys.
func (s *Store) Keys() Keys {
	return s.keys
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Load reads the snapshot. ok is false when nothing is stored.
func (s *Store) Load(ctx context.Context) (*Snapshot, bool, error) {
	raw, ok, err := s.backend.Get(ctx, s.keys.Snapshot)
	if err != nil || !ok {
		return nil, false, err
	}
	snap, err := Decode([]byte(raw))
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", s.keys.Snapshot, err)
	}
	return snap, true, nil
}

// Save writes snap under the snapshot key.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, s.keys.Snapshot, string(data))
}

// MirrorTokens writes the flat token keys. An empty value deletes its key so a reader
// never sees a token left over from an earlier session.
func (s *Store) MirrorTokens(ctx context.Context, access, refresh string) error {
	if err := s.mirror(ctx, s.keys.AccessToken, access); err != nil {
		return err
	}
	return s.mirror(ctx, s.keys.RefreshToken, refresh)
}

func (s *Store) mirror(ctx context.Context, key, value string) error {
	if value == "" {
		return s.backend.Delete(ctx, key)
	}
	return s.backend.Set(ctx, key, value)
}

// RawAccessToken reads the flat access token key.
func (s *Store) RawAccessToken(ctx context.Context) (string, bool, error) {
	return s.backend.Get(ctx, s.keys.AccessToken)
}

// RawRefreshToken reads the flat refresh token key.
func (s *Store) RawRefreshToken(ctx context.Context) (string, bool, error) {
	return s.backend.Get(ctx, s.keys.RefreshToken)
}

// Clear deletes the snapshot and both flat keys. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	return s.backend.Delete(ctx, s.keys.Snapshot, s.keys.AccessToken, s.keys.RefreshToken)
}
