// Package prometheus exposes goRisk engine metrics to Prometheus.
//
// [NewPrometheusExporter] renders every counter and histogram in text
// exposition format behind an [http.Handler]. [NewCollector] adapts the same
// snapshot to a client_golang registry for services that already run one.
// Counter names are prefixed gorisk_*_total; histograms end in _seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
