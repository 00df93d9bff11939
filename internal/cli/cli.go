package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Process *ProcessCommand
	Summary *SummaryCommand
	Hour    *HourCommand
	Fetch   *FetchCommand
	Import  *ImportCommand
	Events  *EventsCommand
	Status  *StatusCommand
	Prune   *PruneCommand
	Purge   *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "awcal"
	parser.LongDescription = "Turn ActivityWatch AFK, window and stopwatch events into hourly time and task views."

	cmds := &commands{
		Process: &ProcessCommand{globals: &globals, version: version},
		Summary: &SummaryCommand{globals: &globals, version: version},
		Hour:    &HourCommand{globals: &globals, version: version},
		Fetch:   &FetchCommand{globals: &globals, version: version},
		Import:  &ImportCommand{globals: &globals, version: version},
		Events:  &EventsCommand{globals: &globals, version: version},
		Status:  &StatusCommand{globals: &globals, version: version},
		Prune:   &PruneCommand{globals: &globals, version: version},
		Purge:   &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("process", "Build the time and task views", "Run the processing pipeline over a time window and print the time_view and task_view as JSON.", cmds.Process)
	parser.AddCommand("summary", "Print hourly summaries", "Print a per-hour table of time spent per app and task.", cmds.Summary)
	parser.AddCommand("hour", "Print one hour bucket", "Print the detailed, aggregated, task and summary lists of a single hour.", cmds.Hour)
	parser.AddCommand("fetch", "Cache tracker events locally", "Fetch AFK, window and stopwatch events from the tracker into the local cache.", cmds.Fetch)
	parser.AddCommand("import", "Import events from JSON", "Import a JSON array of tracker events for one bucket into the local cache.", cmds.Import)
	parser.AddCommand("events", "List cached events", "List cached raw events with optional filters.", cmds.Events)
	parser.AddCommand("status", "Show cache and tracker status", "Show cache statistics, last fetches and tracker reachability.", cmds.Status)
	parser.AddCommand("prune", "Apply TTL pruning", "Remove cached events older than the retention period.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL cached data", "Delete ALL cached events and fetch history. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the awcal CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("awcal %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
