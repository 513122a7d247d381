// Package http exposes the run's health and Prometheus metrics over HTTP.
//
// The server is optional and only started when a metrics address is
// configured. It serves two routes:
//
//	GET /health   current pipeline phase, run id and version
//	GET /metrics  Prometheus exposition of the run metrics
package http
