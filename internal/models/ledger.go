package models

import "time"

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusPassed  RunStatus = "passed"
	RunStatusFailed  RunStatus = "failed"
	RunStatusAborted RunStatus = "aborted"
)

// Run groups the observations of one harness invocation.
type Run struct {
	ID         string
	Name       string
	Backend    string
	BuildURL   string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Observation is one awaited task as seen by the harness.
type Observation struct {
	ID          int64
	RunID       string
	TaskID      string
	DisplayName string
	State       string
	StartedAt   time.Time
	FinishedAt  time.Time
	DurationMs  int64
	Error       string
	CaseID      int
}

func (o Observation) Passed() bool {
	return o.State == string(TaskStateSucceeded) && o.Error == ""
}

// TaskStats aggregates observations of one task name.
type TaskStats struct {
	DisplayName   string
	Count         int
	Failed        int
	AvgDurationMs float64
	MaxDurationMs int64
}
