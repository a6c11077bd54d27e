// Package metrics records lifecycle observations and serves them to Prometheus.
package metrics
