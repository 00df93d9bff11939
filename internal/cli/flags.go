package cli

import (
	"io"

	"github.com/runnerr0/awcal/internal/storage"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// WindowFlags selects the time window and event source shared by the
// processing commands.
type WindowFlags struct {
	Since    string `long:"since" description:"Window start: duration ago (24h, 7d) or timestamp (2024-05-06, 2024-05-06T10, RFC3339)" default:"24h"`
	Until    string `long:"until" description:"Window end, same forms as --since (default: now)"`
	Source   string `long:"source" description:"Event source: tracker | store | file" default:"tracker"`
	Input    string `long:"input" description:"JSON file with afkEvents/windowEvents/stopwatchEvents (implies --source file)"`
	Timezone string `long:"timezone" description:"Override processing.timezone (IANA name or Local)"`
}

// ProcessingFlags override the processing section of the config.
type ProcessingFlags struct {
	Threshold string `long:"threshold" description:"Aggregation threshold in seconds (0 disables)"`
	ShowAFK   bool   `long:"show-afk" description:"Include AFK time in hour summaries"`
	HideAFK   bool   `long:"hide-afk" description:"Exclude AFK time from hour summaries"`
}

// ProcessCommand runs the pipeline and prints the time and task views.
type ProcessCommand struct {
	WindowFlags
	ProcessingFlags
	Pretty bool `long:"pretty" description:"Indent JSON output"`

	globals *GlobalFlags
	version string
}

// SummaryCommand prints per-hour activity summaries.
type SummaryCommand struct {
	WindowFlags
	ProcessingFlags
	Titles int `long:"titles" description:"Titles listed per app" default:"3"`

	globals *GlobalFlags
	version string
}

// HourCommand prints a single hour bucket.
type HourCommand struct {
	At       string `long:"at" description:"Hour to show, e.g. 2024-05-06T10 (required)"`
	Format   string `long:"format" description:"Output format: md | json" default:"md"`
	Source   string `long:"source" description:"Event source: tracker | store | file" default:"tracker"`
	Input    string `long:"input" description:"JSON input file (implies --source file)"`
	Timezone string `long:"timezone" description:"Override processing.timezone"`
	ProcessingFlags

	globals *GlobalFlags
	version string
}

// FetchCommand copies tracker events into the local cache.
type FetchCommand struct {
	Since string `long:"since" description:"Window start (duration ago or timestamp)" default:"24h"`
	Until string `long:"until" description:"Window end (default: now)"`

	globals *GlobalFlags
	version string
}

// ImportCommand loads a JSON array of tracker events into the cache.
type ImportCommand struct {
	Bucket string `long:"bucket" description:"Bucket the events belong to (required)"`
	Kind   string `long:"kind" description:"Event kind: afk | window | task (required)"`
	File   string `long:"file" description:"JSON file to import, - for stdin" default:"-"`

	globals *GlobalFlags
	version string
	stdin   io.Reader // injectable for testing; nil means os.Stdin
}

// EventsCommand lists cached raw events.
type EventsCommand struct {
	Bucket string `long:"bucket" description:"Only events of this bucket"`
	Kind   string `long:"kind" description:"Only events of this kind: afk | window | task"`
	ID     string `long:"id" description:"Show a single cached event of --bucket and its identity hash"`
	Hash   uint32 `long:"hash" description:"Only window and task events with this identity hash"`
	Since  string `long:"since" description:"Only events ending after (duration ago or timestamp)" default:"24h"`
	Until  string `long:"until" description:"Only events starting before"`
	Limit  int    `long:"limit" description:"Maximum results" default:"50"`
	Offset int    `long:"offset" description:"Skip first N results" default:"0"`

	globals *GlobalFlags
	version string
}

// StatusCommand shows cache statistics and tracker reachability.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// PruneCommand deletes cached events past the retention period.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// PurgeCommand deletes ALL cached data after a safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	store   storage.Store // injectable for testing; nil means open the configured DB
	stdin   io.Reader     // injectable for testing; nil means os.Stdin
}
