package api

import (
	"testing"
	"time"

	"github.com/sanverite/proxy-probe/internal/core"
)

func TestFromCoreSnapshot(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	orig := TimeNow
	TimeNow = func() time.Time { return now }
	defer func() { TimeNow = orig }()

	last := core.Unreachable(core.FailureDNS, "lookup proxy.example: no such host")
	last.LatenciesMs = map[string]int64{"total": 12}
	snap := core.Snapshot{
		AgentState: core.StateActive,
		StartedAt:  now.Add(-90 * time.Second),
		Warnings:   []string{"w1"},
		Totals:     core.Totals{Reachable: 2, Unreachable: 1},
		LastProbe:  &last,
	}

	got := FromCoreSnapshot(snap)
	if got.State != "active" || got.UptimeSec != 90 || got.StartedAt != "2024-05-01T11:58:30Z" {
		t.Errorf("status = %+v", got)
	}
	if got.Totals.Reachable != 2 || got.Totals.Unreachable != 1 {
		t.Errorf("totals = %+v", got.Totals)
	}
	if got.LastProbe == nil || got.LastProbe.Failure == nil || got.LastProbe.Failure.Kind != "dns" {
		t.Fatalf("last probe = %+v", got.LastProbe)
	}

	got.LastProbe.LatenciesMs["total"] = 99
	got.Warnings[0] = "changed"
	if last.LatenciesMs["total"] != 12 || snap.Warnings[0] != "w1" {
		t.Error("view aliases snapshot data")
	}
}

func TestFromProbeResultReachable(t *testing.T) {
	res := core.Reachable(200)
	res.FinalURL = "https://www.reddit.com/"
	v := FromProbeResult(res)
	if v.Failure != nil || !v.ContentMatched || v.LastChecked != "" {
		t.Errorf("view = %+v", v)
	}
	if v.Verdict != res.Verdict() {
		t.Errorf("verdict = %q", v.Verdict)
	}
}
