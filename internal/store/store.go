package store

import (
	"context"
	"database/sql"

	"github.com/dscc-qa/backup-harness/internal/store/migrations"
)

// Store provides access to all ledger repositories.
type Store struct {
	db           *sql.DB
	runs         *RunStore
	observations *ObservationStore
}

func NewStore(db *sql.DB) *Store {
	qi := NewQueryInterceptor(db)
	return &Store{
		db:           db,
		runs:         NewRunStore(qi),
		observations: NewObservationStore(qi),
	}
}

// Open opens the ledger at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := NewDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewStore(db), nil
}

func (s *Store) Runs() *RunStore {
	return s.runs
}

func (s *Store) Observations() *ObservationStore {
	return s.observations
}

func (s *Store) Close() error {
	return s.db.Close()
}
