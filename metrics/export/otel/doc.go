// Package otel publishes goRisk engine metrics through OpenTelemetry.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine counter
// and, per latency histogram, a bucket gauge keyed by an le attribute plus a
// count gauge. One callback reads [goRisk.Engine.MetricsSnapshot] on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
