package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dscc-qa/backup-harness/internal/models"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

type RunStore struct {
	db QueryInterceptor
}

func NewRunStore(db QueryInterceptor) *RunStore {
	return &RunStore{db: db}
}

// Start inserts the run in status running. An empty ID gets a new uuid.
func (s *RunStore) Start(ctx context.Context, run models.Run) (*models.Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = models.RunStatusRunning
	run.FinishedAt = nil

	_, err := s.db.ExecContext(ctx, queryInsertRun, run.ID, run.Name, run.Backend, run.BuildURL, string(run.Status), run.StartedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *RunStore) Finish(ctx context.Context, id string, status models.RunStatus) error {
	res, err := s.db.ExecContext(ctx, queryFinishRun, string(status), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return srvErrors.NewResourceNotFoundError("run", id)
	}
	return nil
}

func (s *RunStore) Get(ctx context.Context, id string) (*models.Run, error) {
	return s.scan(s.db.QueryRowContext(ctx, queryGetRun, id), id)
}

// Latest returns the most recently started run.
func (s *RunStore) Latest(ctx context.Context) (*models.Run, error) {
	return s.scan(s.db.QueryRowContext(ctx, queryLatestRun), "latest")
}

func (s *RunStore) scan(row *sql.Row, id string) (*models.Run, error) {
	var (
		run      models.Run
		status   string
		finished sql.NullTime
	)
	err := row.Scan(&run.ID, &run.Name, &run.Backend, &run.BuildURL, &status, &run.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewResourceNotFoundError("run", id)
	}
	if err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
