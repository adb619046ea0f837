// Package store implements the run ledger of the harness.
//
// Every task awaited through pkg/operation is recorded as an observation
// under a run, so a CI job can report pass/fail counts, the slowest tasks and
// failures, export them to Excel or publish them to TestRail.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         Store (facade)                          │
//	├────────────────────────────────┬────────────────────────────────┤
//	│           RunStore             │       ObservationStore         │
//	│              ▼                 │              ▼                 │
//	│            runs                │         observations           │
//	└────────────────────────────────┴────────────────────────────────┘
//	                 ▲                                ▲
//	                 │ Start / Finish                 │ Record
//	           cmd/harness, test/e2e           Recorder (operation.Recorder)
//
// The database is DuckDB, opened through duckdb-go. Path ":memory:" gives an
// in-memory ledger used by the tests.
//
// # Tables
//
//	┌────────────────────┬─────────────────────────────────────────────┐
//	│  Table             │  Purpose                                    │
//	├────────────────────┼─────────────────────────────────────────────┤
//	│  runs              │  one row per harness run and its status     │
//	│  observations      │  one row per awaited task                   │
//	│  schema_migrations │  applied migration versions                 │
//	└────────────────────┴─────────────────────────────────────────────┘
//
// Migrations live in migrations/sql and are embedded; Open applies the
// pending ones.
//
// # Queries
//
// Reads are built with squirrel. ObservationStore.List, Count and Stats take
// ListOption filters:
//
//	ByRun(id)  ByStates(...)  ByDisplayName(substr)  Since(t)  Failed()
//	WithLimit(n)  WithOffset(n)  WithSort([]SortParam)  WithDefaultSort()
//
// Stats groups observations by display name and returns count, failures,
// average and maximum duration, slowest first.
//
// # Query Logging
//
// All queries go through a QueryInterceptor that logs the statement, its
// arguments and duration at debug level on the "store" logger.
package store
