package entities

import (
	"fmt"
	"time"
)

// AnalysisStatus enumerates analysis run lifecycle states.
type AnalysisStatus string

const (
	// AnalysisPending marks a freshly created run.
	AnalysisPending AnalysisStatus = "PENDING"
	// AnalysisRunning marks a run handed to the queue.
	AnalysisRunning AnalysisStatus = "RUNNING"
	// AnalysisCompleted marks a run whose findings are recorded.
	AnalysisCompleted AnalysisStatus = "COMPLETED"
	// AnalysisFailed marks a run that could not complete.
	AnalysisFailed AnalysisStatus = "FAILED"
)

// forward lists the single legal successor set of every state.
var forward = map[AnalysisStatus][]AnalysisStatus{
	AnalysisPending:   {AnalysisRunning},
	AnalysisRunning:   {AnalysisCompleted, AnalysisFailed},
	AnalysisCompleted: {},
	AnalysisFailed:    {},
}

// CanTransition reports whether from→to is a legal forward step.
func CanTransition(from, to AnalysisStatus) bool {
	for _, s := range forward[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status AnalysisStatus) bool {
	return status == AnalysisCompleted || status == AnalysisFailed
}

// AnalysisRun is one analysis attempt for an event.
type AnalysisRun struct {
	ID           string
	EventID      string
	Status       AnalysisStatus
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage *string
	CreatedAt    time.Time
}

// TriggeredRun is the result of the creating transaction at ingestion time.
type TriggeredRun struct {
	AnalysisRunID  string
	EventID        string
	RepositoryID   string
	RepositoryName string
}

// RunContext is what the worker loads before analysing a run.
type RunContext struct {
	Run          AnalysisRun
	Event        Event
	RepositoryID string
	FullName     string
}

// AnalysisRunReport is a run together with the findings it produced.
type AnalysisRunReport struct {
	Run      AnalysisRun
	Findings []Finding
}

// TransitionError describes a guarded transition that affected no row.
type TransitionError struct {
	RunID string
	From  AnalysisStatus
	To    AnalysisStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid lifecycle transition: run %s expected %s to move to %s", e.RunID, e.From, e.To)
}

// Unwrap lets errors.Is match ErrInvalidLifecycleTransition.
func (e *TransitionError) Unwrap() error { return ErrInvalidLifecycleTransition }
