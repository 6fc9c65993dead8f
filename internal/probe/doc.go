// Package probe contains the proxy reachability probe.
//
// # Overview
//
// A probe is one bounded GET through a forward proxy, followed by a
// case-insensitive marker search of the response body. Probes accept a
// context and enforce a single deadline, record per-step latencies, and
// return a classified result without retries or background goroutines.
//
// # Inputs & Configuration
//
//   - ProxyDescriptor.Endpoints: target scheme ("http", "https", "all") to
//     proxy URL. Credentials and session parameters live in the userinfo;
//     BuildEndpoint renders them from parts.
//   - RequestSpec.URL:          http or https target (DefaultTargetURL if empty).
//   - RequestSpec.Headers:      request headers, unique case-insensitively.
//   - RequestSpec.Timeout:      hard deadline for the whole probe.
//   - RequestSpec.Marker:       body fragment expected on the legitimate page.
//   - RequestSpec.MaxRedirects: redirect cap; negative disables following.
//
// # Outputs & Semantics
//
// Runner.Run returns a core.ProbeResult tagged with one of:
//   - reachable:             response received, marker found
//   - reachable_but_suspect: response received, marker absent (block page,
//     redirect, captcha)
//   - unreachable:           timeout, DNS, refused, TLS, proxy rejection or
//     other connection fault, described by core.Failure
//
// LatenciesMs carries "proxy_connect", "tls_handshake", "first_byte" and
// "total" when observed.
//
// # Error Model
//
// Transport faults are data, never errors. Run returns a non-nil error only
// for a *ConfigError (malformed endpoint, bad target URL, invalid header,
// negative timeout, target scheme without an endpoint), and in that case no
// network call is made.
//
// # Implementation Notes
//
// Each call builds its own transport with keep-alives disabled, so calls
// share nothing and may run in parallel.
package probe
