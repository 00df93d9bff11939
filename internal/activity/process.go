package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrIncompleteInput is returned when one of the three event streams is
// missing. An empty, non-nil stream is valid input.
var ErrIncompleteInput = errors.New("incomplete input")

// Input carries the three raw event streams of one run. Order is not
// significant.
type Input struct {
	AFK       []Event `json:"afkEvents"`
	Window    []Event `json:"windowEvents"`
	Stopwatch []Event `json:"stopwatchEvents"`
}

// Validate reports ErrIncompleteInput when a stream is nil.
func (in Input) Validate() error {
	var missing []string
	if in.AFK == nil {
		missing = append(missing, "afkEvents")
	}
	if in.Window == nil {
		missing = append(missing, "windowEvents")
	}
	if in.Stopwatch == nil {
		missing = append(missing, "stopwatchEvents")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrIncompleteInput, missing)
	}
	return nil
}

// Clone deep-copies all three streams, preserving nil-ness.
func (in Input) Clone() Input {
	return Input{
		AFK:       cloneEvents(in.AFK),
		Window:    cloneEvents(in.Window),
		Stopwatch: cloneEvents(in.Stopwatch),
	}
}

// Options configures one run.
type Options struct {
	// AggregationThreshold is the duration below which consecutive window
	// events are collapsed; <= 0 disables aggregation.
	AggregationThreshold time.Duration
	// ShowAFKInSummary adds an AFK item to hour summaries and normalises
	// percentages against the full hour.
	ShowAFKInSummary bool
	// Location defines clock hours and calendar dates. Nil means time.Local.
	Location *time.Location
	// TitleRules sanitizes window titles. The zero value only strips
	// leading markers and whitespace.
	TitleRules TitleRules
	// Observer receives diagnostics. Nil discards them.
	Observer Observer
}

// Result is the output of one run.
type Result struct {
	TimeView *TimeView `json:"time_view"`
	TaskView *TaskView `json:"task_view"`
	// Healed is the number of window gaps closed by the gap healer.
	Healed int `json:"-"`
}

// Process runs the full pipeline: not-afk intervals, active fragments, title
// sanitization, gap healing, diagnostics, aggregation, hour splitting and
// view building. It is a pure function of in and opts; in is not modified.
func Process(ctx context.Context, in Input, opts Options) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	obs := opts.Observer
	if obs == nil {
		obs = NoopObserver{}
	}

	intervals := MergeOverlappingIntervals(BuildNotAFKIntervals(in.AFK))

	windows := activeFragmentsAll(in.Window, intervals)
	for i := range windows {
		windows[i] = opts.TitleRules.SanitizeTitle(windows[i])
	}
	tasks := activeFragmentsAll(in.Stopwatch, intervals)
	for i := range tasks {
		tasks[i] = Identify(tasks[i])
	}

	notAFKByHour := notAFKSecondsByHour(in.AFK, loc)

	windows, healed := HealWindowGaps(windows, in.AFK)
	if healed > 0 {
		obs.Observe(ctx, Finding{
			Kind:    FindingHealed,
			Level:   slog.LevelInfo,
			Message: fmt.Sprintf("healed %d gaps (<= %s) in not-afk sessions", healed, MaxHealGap),
			Count:   healed,
		})
	}

	AnalyzeWindowOverlaps(ctx, windows, obs)
	AnalyzeWindowGaps(ctx, windows, sortByStart(in.AFK), obs)
	AnalyzeTaskOverlaps(ctx, tasks, obs)

	aggregated := AggregateShortEvents(windows, opts.AggregationThreshold)

	hourlyDetailed := splitAllByHour(windows, loc)
	hourlyAggregated := splitAllByHour(aggregated, loc)
	hourlyTasks := splitAllByHour(tasks, loc)

	return &Result{
		TimeView: buildTimeView(hourlyDetailed, hourlyAggregated, hourlyTasks, notAFKByHour, opts.ShowAFKInSummary, loc),
		TaskView: buildTaskView(hourlyTasks, hourlyDetailed, loc),
		Healed:   healed,
	}, nil
}
