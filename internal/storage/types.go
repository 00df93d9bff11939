package storage

import (
	"errors"
	"time"

	"github.com/runnerr0/awcal/internal/activity"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// EventQuery selects cached events. Zero fields are not filtered on.
type EventQuery struct {
	Bucket string
	Kind   activity.Kind
	// Hash matches the identity hash of window and task events.
	Hash uint32
	// Since and Until select events overlapping [Since, Until).
	Since time.Time
	Until time.Time
	// Limit <= 0 returns every match.
	Limit  int
	Offset int
}

// FetchRecord logs one bucket download from the tracker.
type FetchRecord struct {
	ID         string
	Bucket     string
	Since      time.Time
	Until      time.Time
	EventCount int
	FetchedAt  time.Time
}

// Stats holds aggregate statistics about the event cache.
type Stats struct {
	TotalEvents       int64
	TotalFetches      int64
	OldestEvent       time.Time
	NewestEvent       time.Time
	DatabaseSizeBytes int64
	SchemaVersion     int
	Buckets           []BucketCount
}

// BucketCount pairs a bucket with its cached event count.
type BucketCount struct {
	Bucket string
	Kind   activity.Kind
	Count  int64
}
