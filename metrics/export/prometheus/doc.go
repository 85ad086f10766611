// Package prometheus renders the client's counters and request latency histogram in
// Prometheus text exposition format.
//
// Counter names are hrm_*_total; the histogram is hrm_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate client state.
package prometheus
