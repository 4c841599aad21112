// Package metrics records repository sync metrics.
//
// Components take a Recorder and default to NoopRecorder, so callers never
// nil-check. The CLI swaps in a PrometheusRecorder when metrics are
// configured and either writes a node exporter textfile after one-shot
// commands or serves /metrics while watching.
package metrics
