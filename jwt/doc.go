// Package jwt decodes HRM access tokens on the client side and, for components that play
// the backend role, issues and verifies them.
//
// # Trust boundary
//
// [Decode] does not verify signatures. Claims it returns (role, identity, expiry) are
// advisory hints for UI gating and session bookkeeping. Enforcement belongs to the backend.
//
// # What this package must NOT do
//
//   - Perform I/O or hold session state.
//   - Import hrmAuth, session, or permission.
package jwt
