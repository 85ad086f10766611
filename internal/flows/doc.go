// Package flows contains the orchestration behind every Client session operation.
//
// Each flow function (RunLogin, RunRefresh, RunInitialize, RunRequest, RunLogout) takes a
// typed dependency struct and returns a result struct describing what happened. The root
// package maps results onto its own errors, metrics, audit events, and session state.
//
// # Architecture boundaries
//
// Flows talk to the backend through a [Doer] and to storage through narrow interfaces.
// They never touch the Client's in-memory session; ownership stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import hrmAuth (to avoid import cycles).
//   - Retry more than once per request; RunRequest is the only place a retry happens.
package flows
