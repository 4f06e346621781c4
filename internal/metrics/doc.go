// Package metrics holds the Prometheus collectors for tvstream and a small
// HTTP server exposing them together with liveness and readiness probes.
//
// Collectors are package-level and usable before Register is called, so
// tests and library code can increment them freely; only the process
// registers them with a registry.
package metrics
