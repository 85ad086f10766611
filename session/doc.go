// Package session provides the durable side of an HRM client session: the [User] and
// [Snapshot] model, a versioned snapshot encoder, and a [Store] that writes snapshots and
// raw token keys through a pluggable key-value [Backend].
//
// # Storage layout
//
// One structured key (default "auth-storage") holds the encoded snapshot
// {user, accessToken, refreshToken, isAuthenticated}. Two flat keys (default
// "accessToken" and "refreshToken") mirror the raw token strings for consumers that read
// them directly.
//
// # Backends
//
//   - [MemoryBackend]: process-local, used by tests and short-lived tools.
//   - [FileBackend]: one JSON object on disk, survives restarts.
//   - [RedisBackend]: shared across processes; last write wins.
//
// # What this package must NOT do
//
//   - Decode or verify tokens (callers hand in a ready [Snapshot]).
//   - Decide authentication state; it only persists what it is given.
//   - Import hrmAuth, jwt, or permission.
package session
