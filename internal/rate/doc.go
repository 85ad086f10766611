// Package rate provides the Redis-backed fixed-window counters the stub HRM backend uses
// to throttle failed logins and refresh storms.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key suffixes after the
// configured prefix:
//   - al:  login per-username
//   - ali: login per-IP
//   - ar:  refresh per-token
//
// # What this package must NOT do
//
//   - Decide what a throttled caller sees (the stub API maps ErrRateLimited to 429).
//   - Be imported outside the hrmAuth module.
package rate
