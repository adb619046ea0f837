package store

// Run queries
const (
	queryInsertRun = `
		INSERT INTO runs (id, name, backend, build_url, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryFinishRun = `
		UPDATE runs SET status = ?, finished_at = ?
		WHERE id = ?`

	queryGetRun = `
		SELECT id, name, backend, build_url, status, started_at, finished_at
		FROM runs WHERE id = ?`

	queryLatestRun = `
		SELECT id, name, backend, build_url, status, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT 1`
)

// Observation queries
const (
	queryInsertObservation = `
		INSERT INTO observations (run_id, task_id, display_name, state, started_at, finished_at, duration_ms, error, case_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
)
