package store

import (
	"context"

	"github.com/dscc-qa/backup-harness/internal/models"
	"github.com/dscc-qa/backup-harness/pkg/operation"
)

const unknownState = "UNKNOWN"

// Recorder writes awaited operation outcomes into the ledger under one run.
type Recorder struct {
	observations *ObservationStore
	runID        string
	caseID       int
}

func NewRecorder(s *Store, runID string) *Recorder {
	return &Recorder{observations: s.Observations(), runID: runID}
}

// WithCaseID returns a recorder tagging its observations with a TestRail case.
func (r *Recorder) WithCaseID(id int) *Recorder {
	c := *r
	c.caseID = id
	return &c
}

func (r *Recorder) Record(ctx context.Context, o operation.Outcome) error {
	obs := NewObservation(r.runID, o)
	obs.CaseID = r.caseID
	_, err := r.observations.Record(ctx, obs)
	return err
}

// NewObservation converts an outcome to a ledger row.
func NewObservation(runID string, o operation.Outcome) models.Observation {
	obs := models.Observation{
		RunID:       runID,
		TaskID:      o.TaskID,
		DisplayName: o.TaskID,
		State:       unknownState,
		StartedAt:   o.Started.UTC(),
		FinishedAt:  o.Finished.UTC(),
		DurationMs:  o.Duration().Milliseconds(),
	}
	if o.Task != nil {
		obs.State = string(o.Task.State)
		if o.Task.DisplayName != "" {
			obs.DisplayName = o.Task.DisplayName
		}
	}
	if o.Err != nil {
		obs.Error = o.Err.Error()
	}
	return obs
}
