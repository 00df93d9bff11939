package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/awcal/internal/activity"
)

// hourJSON is the JSON output structure for the hour command.
type hourJSON struct {
	Hour   string               `json:"hour"`
	Start  string               `json:"start"`
	Bucket *activity.HourBucket `json:"bucket"`
}

// Execute implements the go-flags Commander interface for HourCommand.
func (c *HourCommand) Execute(args []string) error {
	if c.At == "" {
		return fmt.Errorf("--at is required for hour command")
	}

	e, err := newEnv(c.globals, sourceNeeds(c.Source, c.Input))
	if err != nil {
		return err
	}
	defer e.close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv runs hour against the given env (for testing).
func (c *HourCommand) executeWithEnv(ctx context.Context, e *env) error {
	if c.At == "" {
		return fmt.Errorf("--at is required for hour command")
	}

	opts, err := e.processingOptions(c.ProcessingFlags, c.Timezone)
	if err != nil {
		return err
	}
	loc := opts.Location

	at, err := parseTimeArg(c.At, e.now(), loc)
	if err != nil {
		return fmt.Errorf("invalid --at value %q: %w", c.At, err)
	}
	key := activity.KeyFor(at, loc)
	start := key.Start(loc)

	res, err := processWindow(ctx, e, opts, c.Source, c.Input, start, start.Add(time.Hour))
	if err != nil {
		return err
	}

	bucket, ok := res.TimeView.Bucket(key)
	if !ok {
		bucket = &activity.HourBucket{
			Detailed:   []activity.Event{},
			Aggregated: []activity.Event{},
			Tasks:      []activity.Event{},
			Summary:    []activity.SummaryItem{},
		}
	}

	format := c.Format
	if c.globals != nil && c.globals.JSON {
		format = "json"
	}

	switch format {
	case "json":
		return writeJSON(hourJSON{Hour: key.String(), Start: start.Format(time.RFC3339), Bucket: bucket}, true)
	case "md", "markdown", "":
		fmt.Print(renderHourMarkdown(key, start, bucket, loc))
		return nil
	default:
		return fmt.Errorf("unknown format %q (use md or json)", c.Format)
	}
}

// renderHourMarkdown renders one hour bucket as a markdown document.
func renderHourMarkdown(key activity.CalendarKey, start time.Time, b *activity.HourBucket, loc *time.Location) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s (W%02d)\n\n", start.Format("Monday 2006-01-02 15:00"), key.Week)

	sb.WriteString("## Summary\n\n")
	if len(b.Summary) == 0 {
		sb.WriteString("_No activity._\n\n")
	} else {
		sb.WriteString("| App / Task | Time | Share |\n|---|---:|---:|\n")
		for _, it := range b.Summary {
			fmt.Fprintf(&sb, "| %s | %s | %.1f%% |\n", mdEscape(it.Name), formatClock(it.TotalDuration), it.Percentage)
			if it.Name == activity.AFKName {
				continue
			}
			for _, ts := range it.Titles {
				fmt.Fprintf(&sb, "| &nbsp;&nbsp;%s | %s | |\n", mdEscape(ts.Title), formatClock(ts.Duration))
			}
		}
		sb.WriteString("\n")
	}

	writeEvents := func(title string, events []activity.Event) {
		fmt.Fprintf(&sb, "## %s (%d)\n\n", title, len(events))
		if len(events) == 0 {
			sb.WriteString("_None._\n\n")
			return
		}
		for _, e := range events {
			fmt.Fprintf(&sb, "- `%s–%s` %s (%s)\n",
				e.Timestamp.In(loc).Format("15:04:05"),
				e.End().In(loc).Format("15:04:05"),
				mdEscape(eventLabel(e)),
				formatClock(e.Duration),
			)
		}
		sb.WriteString("\n")
	}

	writeEvents("Aggregated", b.Aggregated)
	writeEvents("Tasks", b.Tasks)
	writeEvents("Detailed", b.Detailed)

	return sb.String()
}

// mdEscape escapes characters that would break a markdown table cell.
func mdEscape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
