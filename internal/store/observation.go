package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/dscc-qa/backup-harness/internal/models"
)

type ObservationStore struct {
	db QueryInterceptor
}

func NewObservationStore(db QueryInterceptor) *ObservationStore {
	return &ObservationStore{db: db}
}

// Record inserts the observation and returns it with its id set.
func (s *ObservationStore) Record(ctx context.Context, o models.Observation) (*models.Observation, error) {
	if o.DurationMs == 0 && !o.FinishedAt.IsZero() {
		o.DurationMs = o.FinishedAt.Sub(o.StartedAt).Milliseconds()
	}
	err := s.db.QueryRowContext(ctx, queryInsertObservation,
		o.RunID, o.TaskID, o.DisplayName, o.State, o.StartedAt, o.FinishedAt, o.DurationMs, o.Error, o.CaseID,
	).Scan(&o.ID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *ObservationStore) List(ctx context.Context, opts ...ListOption) ([]models.Observation, error) {
	builder := sq.Select(
		"id", "run_id", "task_id", "display_name", "state",
		"started_at", "finished_at", "duration_ms", "error", "case_id",
	).From("observations")

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Observation
	for rows.Next() {
		var o models.Observation
		err := rows.Scan(
			&o.ID,
			&o.RunID,
			&o.TaskID,
			&o.DisplayName,
			&o.State,
			&o.StartedAt,
			&o.FinishedAt,
			&o.DurationMs,
			&o.Error,
			&o.CaseID,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *ObservationStore) Count(ctx context.Context, opts ...ListOption) (int, error) {
	builder := sq.Select("COUNT(*)").From("observations")

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// Stats aggregates durations per display name, slowest first. Filters apply;
// pagination and sort options do not.
func (s *ObservationStore) Stats(ctx context.Context, opts ...ListOption) ([]models.TaskStats, error) {
	filtered := sq.Select("*").From("observations")
	for _, opt := range opts {
		filtered = opt(filtered)
	}
	filtered = filtered.RemoveLimit().RemoveOffset()

	builder := sq.Select(
		"display_name",
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE state <> 'SUCCEEDED' OR error <> '')",
		"AVG(duration_ms)",
		"MAX(duration_ms)",
	).FromSelect(filtered, "o").
		GroupBy("display_name").
		OrderBy("AVG(duration_ms) DESC", "display_name")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TaskStats
	for rows.Next() {
		var st models.TaskStats
		if err := rows.Scan(&st.DisplayName, &st.Count, &st.Failed, &st.AvgDurationMs, &st.MaxDurationMs); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type ListOption func(sq.SelectBuilder) sq.SelectBuilder

func ByRun(runID string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if runID == "" {
			return b
		}
		return b.Where(sq.Eq{"run_id": runID})
	}
}

func ByStates(states ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(states) == 0 {
			return b
		}
		return b.Where(sq.Eq{"state": states})
	}
}

// ByDisplayName matches a case-insensitive substring of the task display name.
func ByDisplayName(substr string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if substr == "" {
			return b
		}
		return b.Where(sq.ILike{"display_name": "%" + substr + "%"})
	}
}

func Since(t time.Time) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.GtOrEq{"started_at": t})
	}
}

func Failed() ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Or{sq.NotEq{"state": string(models.TaskStateSucceeded)}, sq.NotEq{"error": ""}})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(limit)
	}
}

func WithOffset(offset uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Offset(offset)
	}
}

type SortParam struct {
	Field string
	Desc  bool
}

var sortFieldToColumn = map[string]string{
	"startedAt":   "started_at",
	"duration":    "duration_ms",
	"displayName": "display_name",
	"state":       "state",
}

func WithDefaultSort() ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.OrderBy("started_at", "id")
	}
}

// WithSort orders by the known fields, ignoring unknown ones, with id as tie-breaker.
func WithSort(sorts []SortParam) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		var orderClauses []string
		for _, s := range sorts {
			col, ok := sortFieldToColumn[s.Field]
			if !ok {
				continue
			}
			if s.Desc {
				orderClauses = append(orderClauses, col+" DESC")
			} else {
				orderClauses = append(orderClauses, col+" ASC")
			}
		}
		orderClauses = append(orderClauses, "id")
		return b.OrderBy(orderClauses...)
	}
}
