package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/runnerr0/awcal/internal/activity"
	"github.com/runnerr0/awcal/internal/config"
	"github.com/runnerr0/awcal/internal/logging"
	"github.com/runnerr0/awcal/internal/storage"
	"github.com/runnerr0/awcal/internal/tracker"
)

// Event sources accepted by --source.
const (
	sourceTracker = "tracker"
	sourceStore   = "store"
	sourceFile    = "file"
)

// env carries the collaborators a command runs against. Execute builds one
// from the config; tests build one by hand.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Store
	tracker  *tracker.Client
	hostname string
	now      func() time.Time

	dbPath  string
	closers []func() error
}

// close releases everything newEnv opened, in reverse order.
func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

type envNeeds struct {
	store   bool
	tracker bool
}

// newEnv loads the config, sets up logging and opens what the command needs.
func newEnv(globals *GlobalFlags, needs envNeeds) (*env, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, now: time.Now, hostname: hostname()}

	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if globals != nil && globals.Verbose {
		level = "debug"
	}
	logger, closeLog, err := logging.Open(logging.Options{Level: level, Format: cfg.Logging.Format, File: logPath})
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}
	e.logger = logger
	e.closers = append(e.closers, closeLog)

	if needs.store {
		dbPath, err := cfg.DBPath()
		if err != nil {
			e.close()
			return nil, err
		}
		store, db, err := openStore(dbPath, cfg.TitleRules())
		if err != nil {
			e.close()
			return nil, err
		}
		e.store = store
		e.dbPath = dbPath
		e.closers = append(e.closers, db.Close, store.Close)
	}

	if needs.tracker {
		e.tracker = tracker.NewClient(cfg.Tracker.ServerURL, cfg.Timeout(), logger)
	}

	return e, nil
}

// loadConfig reads --config when given, otherwise the default config file
// (created with defaults on first use).
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		cfg, err := config.Load(globals.Config)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadOrCreate()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openStore opens the cache database at dbPath, runs migrations, and
// returns a ready-to-use store hashing with rules and the underlying *sql.DB.
func openStore(dbPath string, rules activity.TitleRules) (*storage.SQLiteStore, *sql.DB, error) {
	db, err := storage.OpenDB(dbPath)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	store.SetTitleRules(rules)

	return store, db, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return h
}

// buckets returns the configured tracker buckets for this machine.
func (e *env) buckets() tracker.Buckets {
	afk, window, stopwatch := e.cfg.Buckets(e.hostname)
	return tracker.Buckets{AFK: afk, Window: window, Stopwatch: stopwatch}
}

// location resolves the processing timezone, honouring an override.
func (e *env) location(override string) (*time.Location, error) {
	if override == "" {
		return e.cfg.Location()
	}
	if override == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(override)
	if err != nil {
		return nil, fmt.Errorf("invalid --timezone %q: %w", override, err)
	}
	return loc, nil
}

// processingOptions builds the pipeline options from the config and flags.
func (e *env) processingOptions(pf ProcessingFlags, tz string) (activity.Options, error) {
	opts, err := e.cfg.ProcessingOptions()
	if err != nil {
		return activity.Options{}, err
	}
	loc, err := e.location(tz)
	if err != nil {
		return activity.Options{}, err
	}
	opts.Location = loc

	if pf.ShowAFK && pf.HideAFK {
		return activity.Options{}, fmt.Errorf("--show-afk and --hide-afk are mutually exclusive")
	}
	if pf.ShowAFK {
		opts.ShowAFKInSummary = true
	}
	if pf.HideAFK {
		opts.ShowAFKInSummary = false
	}
	if pf.Threshold != "" {
		secs, err := strconv.ParseFloat(pf.Threshold, 64)
		if err != nil || secs < 0 {
			return activity.Options{}, fmt.Errorf("invalid --threshold %q: must be a non-negative number of seconds", pf.Threshold)
		}
		opts.AggregationThreshold = time.Duration(secs * float64(time.Second))
	}
	opts.Observer = activity.NewLogObserver(e.logger)
	return opts, nil
}

// collectInput gathers the three event streams for [since, until) from the
// selected source.
func (e *env) collectInput(ctx context.Context, source, inputPath string, since, until time.Time) (activity.Input, error) {
	if inputPath != "" {
		source = sourceFile
	}
	switch source {
	case sourceFile:
		if inputPath == "" {
			return activity.Input{}, fmt.Errorf("--source file requires --input")
		}
		return readInputFile(inputPath)
	case sourceStore:
		if e.store == nil {
			return activity.Input{}, fmt.Errorf("event cache is not open")
		}
		return loadInputFromStore(ctx, e.store, e.buckets(), since, until)
	case sourceTracker, "":
		if e.tracker == nil {
			return activity.Input{}, fmt.Errorf("tracker client is not configured")
		}
		return e.tracker.FetchInput(ctx, e.buckets(), since, until)
	default:
		return activity.Input{}, fmt.Errorf("unknown --source %q (use tracker, store or file)", source)
	}
}

// sourceNeeds reports which collaborators a --source value requires.
func sourceNeeds(source, inputPath string) envNeeds {
	if inputPath != "" || source == sourceFile {
		return envNeeds{}
	}
	if source == sourceStore {
		return envNeeds{store: true}
	}
	return envNeeds{tracker: true}
}

func loadInputFromStore(ctx context.Context, store storage.Store, b tracker.Buckets, since, until time.Time) (activity.Input, error) {
	load := func(bucket string, kind activity.Kind) ([]activity.Event, error) {
		events, err := store.LoadEvents(ctx, storage.EventQuery{Bucket: bucket, Kind: kind, Since: since, Until: until})
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", bucket, err)
		}
		return events, nil
	}
	var in activity.Input
	var err error
	if in.AFK, err = load(b.AFK, activity.KindAFK); err != nil {
		return activity.Input{}, err
	}
	if in.Window, err = load(b.Window, activity.KindWindow); err != nil {
		return activity.Input{}, err
	}
	if in.Stopwatch, err = load(b.Stopwatch, activity.KindTask); err != nil {
		return activity.Input{}, err
	}
	return in, nil
}

// readInputFile decodes a {afkEvents, windowEvents, stopwatchEvents} file.
// A missing stream stays nil so processing reports it as incomplete.
func readInputFile(path string) (activity.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return activity.Input{}, fmt.Errorf("reading input file: %w", err)
	}
	var raw struct {
		AFK       json.RawMessage `json:"afkEvents"`
		Window    json.RawMessage `json:"windowEvents"`
		Stopwatch json.RawMessage `json:"stopwatchEvents"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return activity.Input{}, fmt.Errorf("parsing input file: %w", err)
	}

	decode := func(msg json.RawMessage, kind activity.Kind) ([]activity.Event, error) {
		if len(msg) == 0 || string(msg) == "null" {
			return nil, nil
		}
		return activity.DecodeEvents(kind, msg)
	}
	var in activity.Input
	if in.AFK, err = decode(raw.AFK, activity.KindAFK); err != nil {
		return activity.Input{}, err
	}
	if in.Window, err = decode(raw.Window, activity.KindWindow); err != nil {
		return activity.Input{}, err
	}
	if in.Stopwatch, err = decode(raw.Stopwatch, activity.KindTask); err != nil {
		return activity.Input{}, err
	}
	return in, nil
}

// resolveWindow parses --since/--until. An empty until means now.
func resolveWindow(since, until string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	start, err := parseTimeArg(since, now, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --since value %q: %w", since, err)
	}
	end := now
	if until != "" {
		end, err = parseTimeArg(until, now, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until value %q: %w", until, err)
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("empty window: --since %s is not before --until %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}

// timeArgLayouts are the absolute forms accepted for time arguments,
// interpreted in the processing location when they carry no offset.
var timeArgLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02",
}

// parseTimeArg accepts a duration before now ("24h", "7d") or an absolute
// timestamp.
func parseTimeArg(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if d, err := parseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range timeArgLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected a duration (24h, 7d) or timestamp (2024-05-06, 2024-05-06T10, RFC3339)")
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 's':
		return time.Duration(n) * time.Second, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, m or s suffix)", s)
	}
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// formatClock renders a duration as h:mm:ss.
func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func writeJSON(v interface{}, indent bool) error {
	enc := json.NewEncoder(os.Stdout)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
