package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/awcal/internal/activity"
)

// Store defines the interface for event cache operations.
type Store interface {
	SaveEvents(ctx context.Context, bucket string, events []activity.Event) (int, error)
	LoadEvents(ctx context.Context, q EventQuery) ([]activity.Event, error)
	GetEvent(ctx context.Context, bucket, id string) (*activity.Event, error)
	CountExpired(ctx context.Context, olderThan time.Time) (int64, error)
	PruneExpired(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	RecordFetch(ctx context.Context, rec *FetchRecord) error
	LastFetch(ctx context.Context, bucket string) (*FetchRecord, error)
	Close() error
}

// tsLayout is fixed width so stored timestamps order lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	rules activity.TitleRules

	// Prepared statements
	upsertEvent *sql.Stmt
	getEvent    *sql.Stmt
	insertFetch *sql.Stmt
	lastFetch   *sql.Stmt
}

// OpenDB opens (creating if needed) the SQLite file at path and applies
// pending migrations.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := NewMigrationRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, rules: activity.DefaultTitleRules()}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

// SetTitleRules replaces the sanitizer used to hash events on save. Rows
// saved earlier keep their hash until they are saved again.
func (s *SQLiteStore) SetTitleRules(rules activity.TitleRules) {
	s.rules = rules
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.upsertEvent, err = s.db.Prepare(`
		INSERT INTO events (bucket, id, kind, ts, end_ts, duration, payload, sdbm_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (bucket, id) DO UPDATE SET
			kind = excluded.kind,
			ts = excluded.ts,
			end_ts = excluded.end_ts,
			duration = excluded.duration,
			payload = excluded.payload,
			sdbm_id = excluded.sdbm_id,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}

	s.getEvent, err = s.db.Prepare(`
		SELECT kind, payload FROM events WHERE bucket = ? AND id = ?
	`)
	if err != nil {
		return err
	}

	s.insertFetch, err = s.db.Prepare(`
		INSERT INTO fetch_log (id, bucket, since, until, event_count, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.lastFetch, err = s.db.Prepare(`
		SELECT id, bucket, since, until, event_count, fetched_at
		FROM fetch_log WHERE bucket = ?
		ORDER BY fetched_at DESC LIMIT 1
	`)
	if err != nil {
		return err
	}

	return nil
}

// eventKey returns the cache key of e. Events without a tracker id are
// keyed by their start instant.
func eventKey(e activity.Event) string {
	if e.ID != "" {
		return e.ID
	}
	return "ts:" + formatTS(e.Timestamp)
}

// SaveEvents upserts events into bucket in a single transaction and returns
// the number written. Re-saving an event replaces the cached copy. The
// payload keeps the raw title; the stored identity hash is that of the
// sanitized title, matching the hash the pipeline assigns.
func (s *SQLiteStore) SaveEvents(ctx context.Context, bucket string, events []activity.Event) (int, error) {
	if bucket == "" {
		return 0, fmt.Errorf("save events: bucket is required")
	}
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.upsertEvent)
	for _, e := range events {
		switch e.Kind {
		case activity.KindAFK, activity.KindWindow, activity.KindTask:
		default:
			return 0, fmt.Errorf("save event %s: unsupported kind %s", e.ID, e.Kind)
		}
		var hash uint32
		if e.Kind != activity.KindAFK {
			hash = s.rules.SanitizeTitle(e).Hash
		}
		payload, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("encode event %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			bucket, eventKey(e), e.Kind.String(), formatTS(e.Timestamp), formatTS(e.End()),
			e.Duration.Seconds(), string(payload), int64(hash),
		); err != nil {
			return 0, fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit events: %w", err)
	}
	return len(events), nil
}

// GetEvent retrieves a single cached event.
func (s *SQLiteStore) GetEvent(ctx context.Context, bucket, id string) (*activity.Event, error) {
	var kind, payload string
	err := s.getEvent.QueryRowContext(ctx, bucket, id).Scan(&kind, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s/%s: %w", bucket, id, ErrNotFound)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	e, err := decodeRow(kind, payload)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// LoadEvents returns cached events matching q, oldest first.
func (s *SQLiteStore) LoadEvents(ctx context.Context, q EventQuery) ([]activity.Event, error) {
	var clauses []string
	var args []interface{}

	if q.Bucket != "" {
		clauses = append(clauses, "bucket = ?")
		args = append(args, q.Bucket)
	}
	if q.Kind != activity.KindUnknown {
		clauses = append(clauses, "kind = ?")
		args = append(args, q.Kind.String())
	}
	if q.Hash != 0 {
		clauses = append(clauses, "sdbm_id = ?")
		args = append(args, int64(q.Hash))
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "end_ts > ?")
		args = append(args, formatTS(q.Since))
	}
	if !q.Until.IsZero() {
		clauses = append(clauses, "ts < ?")
		args = append(args, formatTS(q.Until))
	}

	query := "SELECT kind, payload FROM events"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY ts ASC, id ASC"

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []activity.Event{}
	for rows.Next() {
		var kind, payload string
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e, err := decodeRow(kind, payload)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func decodeRow(kind, payload string) (activity.Event, error) {
	k, err := activity.ParseKind(kind)
	if err != nil {
		return activity.Event{}, fmt.Errorf("decode cached event: %w", err)
	}
	return activity.DecodeEvent(k, []byte(payload))
}

// CountExpired reports how many events end before olderThan.
func (s *SQLiteStore) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE end_ts < ?", formatTS(olderThan),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired: %w", err)
	}
	return n, nil
}

// PruneExpired deletes events that end before olderThan, along with fetch
// log entries whose window closed before it.
func (s *SQLiteStore) PruneExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	ts := formatTS(olderThan)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, "DELETE FROM events WHERE end_ts < ?", ts)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM fetch_log WHERE until < ?", ts); err != nil {
		return 0, fmt.Errorf("prune fetch log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// PurgeAll deletes all cached events and fetch history.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM fetch_log",
		"DELETE FROM events",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// GetStats returns aggregate statistics about the cache.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&stats.TotalEvents)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fetch_log").Scan(&stats.TotalFetches)
	if err != nil {
		return nil, fmt.Errorf("count fetches: %w", err)
	}

	// Oldest and newest (handle empty DB)
	if stats.TotalEvents > 0 {
		var oldestStr, newestStr string
		err = s.db.QueryRowContext(ctx, "SELECT MIN(ts), MAX(end_ts) FROM events").Scan(&oldestStr, &newestStr)
		if err != nil {
			return nil, fmt.Errorf("event time range: %w", err)
		}
		stats.OldestEvent, _ = time.Parse(tsLayout, oldestStr)
		stats.NewestEvent, _ = time.Parse(tsLayout, newestStr)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("page size: %w", err)
	}
	stats.DatabaseSizeBytes = pageCount * pageSize

	err = s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&stats.SchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("schema version: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT bucket, kind, COUNT(*) AS cnt FROM events GROUP BY bucket, kind ORDER BY cnt DESC, bucket ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("bucket counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bc BucketCount
		var kind string
		if err := rows.Scan(&bc.Bucket, &kind, &bc.Count); err != nil {
			return nil, err
		}
		bc.Kind, _ = activity.ParseKind(kind)
		stats.Buckets = append(stats.Buckets, bc)
	}

	return stats, rows.Err()
}

// RecordFetch appends rec to the fetch log, filling in ID and FetchedAt
// when they are zero.
func (s *SQLiteStore) RecordFetch(ctx context.Context, rec *FetchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = time.Now()
	}
	_, err := s.insertFetch.ExecContext(ctx,
		rec.ID, rec.Bucket, formatTS(rec.Since), formatTS(rec.Until), rec.EventCount, formatTS(rec.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("record fetch: %w", err)
	}
	return nil
}

// LastFetch returns the most recent fetch of bucket.
func (s *SQLiteStore) LastFetch(ctx context.Context, bucket string) (*FetchRecord, error) {
	var rec FetchRecord
	var since, until, fetchedAt string
	err := s.lastFetch.QueryRowContext(ctx, bucket).Scan(
		&rec.ID, &rec.Bucket, &since, &until, &rec.EventCount, &fetchedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fetch log for %s: %w", bucket, ErrNotFound)
		}
		return nil, fmt.Errorf("last fetch: %w", err)
	}
	rec.Since, _ = time.Parse(tsLayout, since)
	rec.Until, _ = time.Parse(tsLayout, until)
	rec.FetchedAt, _ = time.Parse(tsLayout, fetchedAt)
	return &rec, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.upsertEvent, s.getEvent, s.insertFetch, s.lastFetch,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
