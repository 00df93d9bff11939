package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/awcal/internal/storage"
)

// statusPingTimeout bounds the tracker reachability check.
const statusPingTimeout = 2 * time.Second

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	SchemaVersion     int               `json:"schema_version"`
	TotalEvents       int64             `json:"total_events"`
	TotalFetches      int64             `json:"total_fetches"`
	OldestEvent       string            `json:"oldest_event,omitempty"`
	NewestEvent       string            `json:"newest_event,omitempty"`
	RetentionDays     int               `json:"retention_days"`
	Buckets           []bucketCountJSON `json:"buckets"`
	Tracker           trackerJSON       `json:"tracker"`
}

type bucketCountJSON struct {
	Bucket      string `json:"bucket"`
	Kind        string `json:"kind"`
	Count       int64  `json:"count"`
	LastFetched string `json:"last_fetched,omitempty"`
}

type trackerJSON struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	Hostname  string `json:"hostname,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	e, err := newEnv(c.globals, envNeeds{store: true, tracker: true})
	if err != nil {
		return err
	}
	defer e.close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv runs status against the given env (for testing).
func (c *StatusCommand) executeWithEnv(ctx context.Context, e *env) error {
	stats, err := e.store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	out := statusJSON{
		Version:           c.version,
		DatabasePath:      e.dbPath,
		DatabaseSizeBytes: stats.DatabaseSizeBytes,
		SchemaVersion:     stats.SchemaVersion,
		TotalEvents:       stats.TotalEvents,
		TotalFetches:      stats.TotalFetches,
		RetentionDays:     e.cfg.Retention.Days,
		Buckets:           make([]bucketCountJSON, 0, len(stats.Buckets)),
	}
	if stats.TotalEvents > 0 {
		out.OldestEvent = stats.OldestEvent.UTC().Format(time.RFC3339)
		out.NewestEvent = stats.NewestEvent.UTC().Format(time.RFC3339)
	}

	for _, b := range stats.Buckets {
		bc := bucketCountJSON{Bucket: b.Bucket, Kind: b.Kind.String(), Count: b.Count}
		rec, err := e.store.LastFetch(ctx, b.Bucket)
		switch {
		case err == nil:
			bc.LastFetched = rec.FetchedAt.UTC().Format(time.RFC3339)
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
		out.Buckets = append(out.Buckets, bc)
	}

	out.Tracker = c.checkTracker(ctx, e)

	if c.globals != nil && c.globals.JSON {
		return writeJSON(out, true)
	}
	return c.printHuman(out, stats)
}

func (c *StatusCommand) checkTracker(ctx context.Context, e *env) trackerJSON {
	if e.tracker == nil {
		return trackerJSON{URL: e.cfg.Tracker.ServerURL}
	}
	tj := trackerJSON{URL: e.tracker.BaseURL()}

	pingCtx, cancel := context.WithTimeout(ctx, statusPingTimeout)
	defer cancel()

	info, err := e.tracker.Ping(pingCtx)
	if err != nil {
		tj.Error = err.Error()
		return tj
	}
	tj.Reachable = true
	tj.Hostname = info.Hostname
	tj.Version = info.Version
	return tj
}

func (c *StatusCommand) printHuman(out statusJSON, stats *storage.Stats) error {
	fmt.Println(renderHeader("awcal status"))
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s, schema v%d)\n", out.DatabasePath, formatBytes(out.DatabaseSizeBytes), out.SchemaVersion)
	fmt.Printf("Events:        %s\n", formatNumber(out.TotalEvents))
	fmt.Printf("Fetches:       %s\n", formatNumber(out.TotalFetches))

	if stats.TotalEvents > 0 {
		fmt.Printf("Oldest:        %s\n", stats.OldestEvent.Local().Format("2006-01-02 15:04"))
		fmt.Printf("Newest:        %s\n", stats.NewestEvent.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("Retention:     %d days\n", out.RetentionDays)

	if len(out.Buckets) > 0 {
		fmt.Println()
		rows := make([][]string, 0, len(out.Buckets))
		for _, b := range out.Buckets {
			last := "never"
			if b.LastFetched != "" {
				last = b.LastFetched
			}
			rows = append(rows, []string{b.Bucket, b.Kind, formatNumber(b.Count), last})
		}
		fmt.Print(renderTable([]string{"BUCKET", "KIND", "EVENTS", "LAST FETCH"}, rows))
	}

	fmt.Println()
	if out.Tracker.Reachable {
		fmt.Printf("Tracker:       %s %s (%s, v%s)\n", styleGreen.Render("reachable"), out.Tracker.URL, out.Tracker.Hostname, strings.TrimPrefix(out.Tracker.Version, "v"))
	} else {
		fmt.Printf("Tracker:       %s %s\n", styleYellow.Render("unreachable"), out.Tracker.URL)
	}
	return nil
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
