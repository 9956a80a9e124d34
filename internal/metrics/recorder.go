package metrics

import "time"

// ReplanCause labels why the agent rebuilt its timer plan.
type ReplanCause string

const (
	CauseStartup       ReplanCause = "startup"
	CauseStateChanged  ReplanCause = "state_changed"
	CauseConfigChanged ReplanCause = "config_changed"
	CauseNewNight      ReplanCause = "new_night"
)

// WarningOutcome labels what a fired warning job did.
type WarningOutcome string

const (
	WarningPresented WarningOutcome = "presented"
	WarningStale     WarningOutcome = "stale"
	WarningDuplicate WarningOutcome = "duplicate"
	WarningError     WarningOutcome = "error"
)

// Recorder defines observability hooks for the agent and the override gate.
// The NoopRecorder is used when metrics are not configured.
type Recorder interface {
	IncReplan(cause ReplanCause)
	ObservePlanSize(jobs int)
	IncWarning(outcome WarningOutcome)
	IncShutdown(stale bool)
	IncCASConflict(record string)
	IncOverrideDecision(code string)
	ObservePollDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncReplan(ReplanCause)             {}
func (NoopRecorder) ObservePlanSize(int)               {}
func (NoopRecorder) IncWarning(WarningOutcome)         {}
func (NoopRecorder) IncShutdown(bool)                  {}
func (NoopRecorder) IncCASConflict(string)             {}
func (NoopRecorder) IncOverrideDecision(string)        {}
func (NoopRecorder) ObservePollDuration(time.Duration) {}
