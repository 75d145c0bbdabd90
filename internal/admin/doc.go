// Package admin exposes a running cluster over HTTP (JSON API and
// Prometheus metrics) and gRPC (standard health service with reflection).
package admin
