package core

import (
	"fmt"
	"time"
)

// Outcome tags a ProbeResult with one of the three verdicts.
type Outcome string

const (
	// OutcomeReachable: the proxy worked and the marker was found in the body.
	OutcomeReachable Outcome = "reachable"
	// OutcomeSuspect: a response came back but the marker was missing
	// (block page, redirect, captcha or interstitial).
	OutcomeSuspect Outcome = "reachable_but_suspect"
	// OutcomeUnreachable: no usable response; see ProbeResult.Failure.
	OutcomeUnreachable Outcome = "unreachable"
)

// FailureKind classifies why a probe was Unreachable.
type FailureKind string

const (
	FailureTimeout       FailureKind = "timeout"
	FailureDNS           FailureKind = "dns"
	FailureConnRefused   FailureKind = "connection_refused"
	FailureTLS           FailureKind = "tls"
	FailureProxyRejected FailureKind = "proxy_rejected" // CONNECT answered with a non-200 status
	FailureConnection    FailureKind = "connection"     // resets, broken pipes, EOF mid-exchange
	FailureOther         FailureKind = "other"
)

// Failure describes the transport-level fault behind an Unreachable result.
type Failure struct {
	Kind   FailureKind
	Detail string
}

func (f Failure) String() string {
	if f.Detail == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// ProbeResult is the outcome of exactly one probe invocation.
// Outcome selects which of the remaining fields are meaningful:
// StatusCode is set for Reachable and Suspect, ContentMatched only for
// Reachable, Failure only for Unreachable.
type ProbeResult struct {
	ID             string
	Outcome        Outcome
	StatusCode     int
	ContentMatched bool
	Failure        *Failure

	Target      string           // requested URL
	Proxy       string           // endpoint used, password redacted
	FinalURL    string           // URL of the response that was classified
	Redirects   int              // redirects followed
	BodyBytes   int64            // decoded body bytes inspected
	LatenciesMs map[string]int64 // "proxy_connect", "tls_handshake", "first_byte", "total"
	Warnings    []string
	LastChecked time.Time
}

// Reachable builds a Reachable(status, contentMatched=true) result.
func Reachable(status int) ProbeResult {
	return ProbeResult{Outcome: OutcomeReachable, StatusCode: status, ContentMatched: true}
}

// Suspect builds a ReachableButSuspect(status) result.
func Suspect(status int) ProbeResult {
	return ProbeResult{Outcome: OutcomeSuspect, StatusCode: status}
}

// Unreachable builds an Unreachable(failure) result.
func Unreachable(kind FailureKind, detail string) ProbeResult {
	return ProbeResult{Outcome: OutcomeUnreachable, Failure: &Failure{Kind: kind, Detail: detail}}
}

// Verdict returns the human-readable verdict for the outcome.
func (r ProbeResult) Verdict() string {
	switch r.Outcome {
	case OutcomeReachable:
		return "proxy works and target content is visible"
	case OutcomeSuspect:
		return "proxy connected but content looks blocked or redirected"
	case OutcomeUnreachable:
		if r.Failure != nil {
			return "proxy connection failed: " + r.Failure.String()
		}
		return "proxy connection failed"
	default:
		return "unknown outcome"
	}
}

// Clone returns a deep copy of r.
func (r ProbeResult) Clone() ProbeResult {
	out := r
	if r.Failure != nil {
		f := *r.Failure
		out.Failure = &f
	}
	if r.LatenciesMs != nil {
		out.LatenciesMs = make(map[string]int64, len(r.LatenciesMs))
		for k, v := range r.LatenciesMs {
			out.LatenciesMs[k] = v
		}
	}
	out.Warnings = append([]string(nil), r.Warnings...)
	return out
}
