// Package hrmAuth is the client side of the HRM portal's session and authorization model.
//
// A [Client] owns one user's session: it logs in against the HRM REST backend, keeps the
// access and refresh tokens, persists them through a session.Backend, and answers
// permission questions from the static role table in package permission. Every backend
// call goes through [Client.Do], which attaches the bearer token and performs at most one
// refresh-and-retry on a 401.
//
// Clients are safe for concurrent use after [Builder.Build]. Concurrent 401s share a
// single in-flight refresh.
//
// # Trust boundary
//
// Tokens are decoded without signature verification (see package jwt). The role read
// from them gates UI only; the backend remains the authority on every request.
//
// # Failure model
//
// Nothing here panics on bad input. The worst case is a forced logout: the session is
// cleared, the configured [Navigator] is sent to the login route, and the call returns
// [ErrSessionEnded].
//
// # What this package must NOT do
//
//   - Log or audit token strings.
//   - Hold package-level session state; every Client is isolated.
//   - Import package middleware (it imports this package).
package hrmAuth
