package api

import (
	"time"

	"github.com/sanverite/proxy-probe/internal/core"
)

// FromCoreSnapshot converts core.Snapshot to the public StatusResponse.
// It computes uptime based on StartedAt and current wall-clock time.
func FromCoreSnapshot(s core.Snapshot) StatusResponse {
	var started string
	var uptime int64
	if !s.StartedAt.IsZero() {
		started = s.StartedAt.UTC().Format(time.RFC3339)
		uptime = int64(TimeNow().Sub(s.StartedAt).Seconds())
	}

	resp := StatusResponse{
		State:     string(s.AgentState),
		StartedAt: started,
		UptimeSec: uptime,
		Warnings:  append([]string(nil), s.Warnings...),
		Totals: TotalsView{
			Reachable:   s.Totals.Reachable,
			Suspect:     s.Totals.Suspect,
			Unreachable: s.Totals.Unreachable,
		},
		GeneratedAt: TimeNow().UTC().Format(time.RFC3339),
	}
	if s.LastProbe != nil {
		v := FromProbeResult(*s.LastProbe)
		resp.LastProbe = &v
	}
	return resp
}

// FromProbeResult converts core.ProbeResult to the public ProbeView.
// Keeps slice/map fields immutable by cloning.
func FromProbeResult(p core.ProbeResult) ProbeView {
	var lastChecked string
	if !p.LastChecked.IsZero() {
		lastChecked = p.LastChecked.UTC().Format(time.RFC3339)
	}
	v := ProbeView{
		ID:             p.ID,
		Outcome:        string(p.Outcome),
		Verdict:        p.Verdict(),
		StatusCode:     p.StatusCode,
		ContentMatched: p.ContentMatched,
		Target:         p.Target,
		Proxy:          p.Proxy,
		FinalURL:       p.FinalURL,
		Redirects:      p.Redirects,
		BodyBytes:      p.BodyBytes,
		LatenciesMs:    cloneLatencies(p.LatenciesMs),
		Warnings:       append([]string(nil), p.Warnings...),
		LastChecked:    lastChecked,
	}
	if p.Failure != nil {
		v.Failure = &FailureView{Kind: string(p.Failure.Kind), Detail: p.Failure.Detail}
	}
	return v
}

func cloneLatencies(in map[string]int64) map[string]int64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
