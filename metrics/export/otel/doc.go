// Package otel publishes the client's metrics through an OpenTelemetry meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket. A single callback reads
// [hrmAuth.Client.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
