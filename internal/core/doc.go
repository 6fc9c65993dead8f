// Package core owns the probe result model and the agent's internal state.
//
// Results
//
// ProbeResult is a tagged union over three outcomes:
//   - reachable:              response received and the marker was found
//   - reachable_but_suspect:  response received, marker absent
//   - unreachable:            transport fault, described by Failure
//
// Reachable, Suspect and Unreachable construct each variant. Results are
// plain values; Clone returns a deep copy.
//
// Concurrency & Safety
//
// State is safe for concurrent use. Read access is via GetSnapshot(), which
// returns a deep copy. Mutation goes through RecordProbe, AppendWarning,
// SetAgentState and Reset, each holding the internal lock briefly.
//
// Lifecycle
//
//   inactive -> starting
//   starting -> active | error | inactive
//   active   -> stopping | error
//   stopping -> inactive | error
//   error    -> inactive | starting
//
// SetAgentState enforces these transitions. Entering Active sets startedAt;
// entering Inactive clears it. Uptime derives from startedAt.
package core
