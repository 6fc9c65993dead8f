package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/sanverite/proxy-probe/internal/core"
)

// Exit codes, one per outcome.
const (
	exitReachable   = 0
	exitSuspect     = 1
	exitUnreachable = 2
	exitConfig      = 3
)

func exitCode(o core.Outcome) int {
	switch o {
	case core.OutcomeReachable:
		return exitReachable
	case core.OutcomeSuspect:
		return exitSuspect
	default:
		return exitUnreachable
	}
}

// verdictLine renders the single line printed per probe, e.g.
//
//	status=200 verdict=reachable: proxy works and target content is visible
func verdictLine(res core.ProbeResult) string {
	status := "-"
	if res.Outcome != core.OutcomeUnreachable {
		status = strconv.Itoa(res.StatusCode)
	}
	return fmt.Sprintf("status=%s verdict=%s: %s", status, res.Outcome, res.Verdict())
}

func printVerdict(w io.Writer, res core.ProbeResult) {
	c := color.New(color.FgRed)
	switch res.Outcome {
	case core.OutcomeReachable:
		c = color.New(color.FgGreen)
	case core.OutcomeSuspect:
		c = color.New(color.FgYellow)
	}
	_, _ = c.Fprintln(w, verdictLine(res))
}

// headerFlags collects repeated -H "Key: Value" flags.
type headerFlags map[string]string

func (h headerFlags) String() string {
	parts := make([]string, 0, len(h))
	for k, v := range h {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, ", ")
}

func (h headerFlags) Set(s string) error {
	k, v, ok := strings.Cut(s, ":")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return fmt.Errorf("header %q: want \"Key: Value\"", s)
	}
	h[k] = strings.TrimSpace(v)
	return nil
}
