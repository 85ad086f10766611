// Package stubapi is an in-process HRM backend: token issue and refresh, the current-user
// profile, registration, and two sample resources. Tests, the example portal, and the
// refresh-storm tool run against it.
//
// It signs real HS256 tokens with jwt.Manager, keeps bcrypt password hashes, and stores
// only hashes of refresh tokens. A Redis client enables the failed-login and refresh
// throttles from internal/rate.
//
// # What this package must NOT do
//
//   - Stand in for the real backend in production.
//   - Be imported outside the hrmAuth module.
package stubapi
