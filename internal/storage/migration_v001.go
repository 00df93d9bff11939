package storage

import "database/sql"

// migrateV001 creates the raw event cache: the events table keyed by
// bucket and tracker id, and the fetch log. Every statement uses IF NOT
// EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS events (
			bucket     TEXT NOT NULL,
			id         TEXT NOT NULL,
			kind       TEXT NOT NULL CHECK (kind IN ('afk', 'window', 'task')),
			ts         TEXT NOT NULL,
			end_ts     TEXT NOT NULL,
			duration   REAL NOT NULL DEFAULT 0,
			payload    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (bucket, id)
		)`,

		`CREATE TABLE IF NOT EXISTS fetch_log (
			id          TEXT PRIMARY KEY,
			bucket      TEXT NOT NULL,
			since       TEXT NOT NULL,
			until       TEXT NOT NULL,
			event_count INTEGER NOT NULL DEFAULT 0,
			fetched_at  TEXT NOT NULL
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_events_ts          ON events(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_bucket_ts   ON events(bucket, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind        ON events(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_log_bucket   ON fetch_log(bucket, fetched_at)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
