// Command agent runs the local control-plane HTTP server for proxy probes.
//
// Usage:
//
//   agent -config probe.yaml -listen 127.0.0.1:8787 -shutdown-secs 5
//
// Flags:
//   -config          YAML config file; PROXYPROBE_* variables and .env override it
//   -listen          HTTP bind address (default 127.0.0.1:8787)
//   -shutdown-secs   graceful shutdown timeout in seconds (default 5)
//
// Behavior:
//
// Loads configuration, initializes core state and serves the API until
// SIGINT/SIGTERM, then shuts down gracefully. The proxy and probe sections
// become the defaults that POST /v1/probe overlays. The binary intentionally
// avoids daemonizing itself; run it under a service manager for persistence.
package main
