package storage

import "database/sql"

// migrateV002 stores the sanitized identity hash of window and task events
// next to the payload. EventQuery.Hash filters on it.
func migrateV002(tx *sql.Tx) error {
	stmts := []string{
		`ALTER TABLE events ADD COLUMN sdbm_id INTEGER NOT NULL DEFAULT 0`,
		`CREATE INDEX IF NOT EXISTS idx_events_sdbm_id ON events(sdbm_id)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
