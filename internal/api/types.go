package api

import "time"

// Public JSON types returned by the API. These are intentionally decoupled
// from the internal core types to preserve API stability and allow internal
// refactors without breaking clients.

// StatusResponse is the top-level payload for GET /v1/status.
type StatusResponse struct {
	State       string     `json:"state"`
	StartedAt   string     `json:"started_at"`
	UptimeSec   int64      `json:"uptime_sec"`
	Warnings    []string   `json:"warnings"`
	Totals      TotalsView `json:"totals"`
	LastProbe   *ProbeView `json:"last_probe"`
	GeneratedAt string     `json:"generated_at"`
}

// TotalsView counts recorded probes per outcome.
type TotalsView struct {
	Reachable   int64 `json:"reachable"`
	Suspect     int64 `json:"reachable_but_suspect"`
	Unreachable int64 `json:"unreachable"`
}

// ProbeView is the JSON form of one probe result.
type ProbeView struct {
	ID             string           `json:"id"`
	Outcome        string           `json:"outcome"`
	Verdict        string           `json:"verdict"`
	StatusCode     int              `json:"status_code,omitempty"`
	ContentMatched bool             `json:"content_matched"`
	Failure        *FailureView     `json:"failure,omitempty"`
	Target         string           `json:"target"`
	Proxy          string           `json:"proxy"`
	FinalURL       string           `json:"final_url,omitempty"`
	Redirects      int              `json:"redirects"`
	BodyBytes      int64            `json:"body_bytes"`
	LatenciesMs    map[string]int64 `json:"latencies_ms"`
	Warnings       []string         `json:"warnings"`
	LastChecked    string           `json:"last_checked"`
}

// FailureView describes why a probe was unreachable.
type FailureView struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// ProbeRequest is the body of POST /v1/probe. Every field is optional and
// overlays the agent's configured defaults.
type ProbeRequest struct {
	Endpoints    map[string]string `json:"endpoints,omitempty"`
	TargetURL    string            `json:"target_url,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	TimeoutMS    int64             `json:"timeout_ms,omitempty"`
	Marker       string            `json:"marker,omitempty"`
	MaxRedirects *int              `json:"max_redirects,omitempty"`
}

// APIError is a standard error payload.
type APIError struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"` // RFC3339
}

// TimeNow abstracts time for tests; overridden in tests.
var TimeNow = func() time.Time { return time.Now() }
