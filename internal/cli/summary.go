package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/awcal/internal/activity"
)

// summaryHourJSON is one hour of the summary command's JSON output.
type summaryHourJSON struct {
	Hour    string                 `json:"hour"`
	Start   string                 `json:"start"`
	Summary []activity.SummaryItem `json:"summary"`
}

// summaryTaskJSON is one task label total.
type summaryTaskJSON struct {
	Label    string  `json:"label"`
	Duration float64 `json:"duration"`
}

type summaryJSON struct {
	Hours []summaryHourJSON `json:"hours"`
	Tasks []summaryTaskJSON `json:"tasks"`
}

// Execute implements the go-flags Commander interface for SummaryCommand.
func (c *SummaryCommand) Execute(args []string) error {
	e, err := newEnv(c.globals, sourceNeeds(c.Source, c.Input))
	if err != nil {
		return err
	}
	defer e.close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv runs summary against the given env (for testing).
func (c *SummaryCommand) executeWithEnv(ctx context.Context, e *env) error {
	run, err := runPipeline(ctx, e, c.WindowFlags, c.ProcessingFlags)
	if err != nil {
		return err
	}

	// Events overlapping the window edges produce buckets outside it.
	loc := run.opts.Location
	keys := run.res.TimeView.Range(run.since, run.until, loc)

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(run.res, keys, loc)
	}
	return c.printHuman(run.res, keys, loc)
}

func (c *SummaryCommand) printJSON(res *activity.Result, keys []activity.CalendarKey, loc *time.Location) error {
	out := summaryJSON{
		Hours: make([]summaryHourJSON, 0, len(keys)),
		Tasks: make([]summaryTaskJSON, 0),
	}
	for _, k := range keys {
		b, _ := res.TimeView.Bucket(k)
		out.Hours = append(out.Hours, summaryHourJSON{
			Hour:    k.String(),
			Start:   k.Start(loc).Format(time.RFC3339),
			Summary: b.Summary,
		})
	}
	for _, label := range res.TaskView.Labels() {
		out.Tasks = append(out.Tasks, summaryTaskJSON{Label: label, Duration: res.TaskView.Total(label).Seconds()})
	}
	return writeJSON(out, true)
}

func (c *SummaryCommand) printHuman(res *activity.Result, keys []activity.CalendarKey, loc *time.Location) error {
	if len(keys) == 0 {
		fmt.Println("No activity in the selected window.")
		return nil
	}

	for i, k := range keys {
		b, _ := res.TimeView.Bucket(k)
		if i > 0 {
			fmt.Println()
		}
		fmt.Println(renderHeader(k.Start(loc).Format("Mon 2006-01-02 15:00") + fmt.Sprintf(" (W%02d)", k.Week)))
		if len(b.Summary) == 0 {
			fmt.Println(styleDim.Render("No active time."))
			continue
		}
		fmt.Print(renderTable([]string{"APP / TASK", "TIME", "SHARE"}, summaryRows(b.Summary, c.Titles)))
	}

	labels := res.TaskView.Labels()
	if len(labels) > 0 {
		fmt.Println()
		fmt.Println(renderHeader("Tasks"))
		rows := make([][]string, 0, len(labels))
		for _, label := range labels {
			rows = append(rows, []string{
				styleYellow.Render(label),
				formatClock(res.TaskView.Total(label)),
				fmt.Sprintf("%d", len(res.TaskView.Keys(label))),
			})
		}
		fmt.Print(renderTable([]string{"LABEL", "WINDOW TIME", "HOURS"}, rows))
	}
	return nil
}
