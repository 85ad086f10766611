// Package internal holds helpers private to hrmAuth: refresh token generation and
// hashing for the stub backend.
//
// # Sub-packages
//
//   - flows: pure-function orchestration for login, refresh, restore, logout, and the
//     two-phase request pipeline
//   - rate: Redis-backed failed-login and refresh throttles
//   - stubapi: in-process HRM backend used by tests, the example portal, and the
//     refresh-storm tool
//
// # What this package must NOT do
//
//   - Export types that appear in the public hrmAuth API.
//   - Be imported by any package outside the hrmAuth module.
package internal
