// Package api exposes a small HTTP control-plane for the probe agent.
//
// Separation of Concerns
//
// The api package defines public JSON types (decoupled from core), maps
// core snapshots and probe results to JSON, and hosts an HTTP server with
// minimal middleware. The core package remains unaware of HTTP or JSON.
//
// Versioning
//
// All routes are versioned under /v1. Non-breaking additions extend types,
// while breaking changes require a new prefix (/v2).
//
// Server
//
// NewServer wires handlers onto a ServeMux and configures timeouts. Serve
// listens and blocks until its context is cancelled, then shuts down
// gracefully, moving core.State through starting, active, stopping and
// inactive. Middleware sets JSON content type and logs method/path/duration
// through zap.
//
// Error Model
//
// APIError uses a string message and a timestamp in RFC3339. Probe outcomes,
// unreachable included, are data and return 200; only configuration errors
// return 400.
//
// Current Endpoints
//
// - GET  /v1/healthz: basic liveness/readiness
// - GET  /v1/status:  agent state, totals and the last probe
// - POST /v1/probe:   run one probe over the configured defaults
package api
