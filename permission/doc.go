// Package permission holds the HRM portal's static authorization model: the fixed role
// set, the capability flags, a frozen role -> capability table backed by bitmasks, and the
// route -> capability map used by route guards.
//
// # Mask layout
//
// [Registry] assigns each capability a bit in a [Mask64] in the order of [Capabilities].
// [RoleMasks] composes one mask per role. Both are frozen by [NewTable].
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import hrmAuth, jwt, or session.
//   - Cache per-session answers; callers look the role up on every check.
package permission
