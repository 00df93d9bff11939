package activity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"
)

// FindingKind classifies a diagnostic finding.
type FindingKind string

const (
	FindingWindowOverlap FindingKind = "window_overlap"
	FindingTaskOverlap   FindingKind = "task_overlap"
	FindingTaskPileUp    FindingKind = "task_pileup"
	FindingGap           FindingKind = "gap"
	FindingGapStats      FindingKind = "gap_stats"
	FindingHealed        FindingKind = "gaps_healed"
)

// Finding is one record on the diagnostics side channel. Findings describe
// the event streams; they never change processing output.
type Finding struct {
	Kind     FindingKind
	Level    slog.Level
	Message  string
	Duration time.Duration
	Count    int
	Events   []Event
	// AFK status at the start and end of a gap, for FindingGap.
	StatusAtStart string
	StatusAtEnd   string
	// Stats is set for FindingGapStats; Scope is "not-afk" or "other".
	Stats *GapStats
	Scope string
}

// Observer receives diagnostic findings.
type Observer interface {
	Observe(ctx context.Context, f Finding)
}

// NoopObserver discards all findings.
type NoopObserver struct{}

func (NoopObserver) Observe(context.Context, Finding) {}

// LogObserver writes findings to a slog logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an Observer logging through logger. A nil logger
// yields a NoopObserver.
func NewLogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		return NoopObserver{}
	}
	return &LogObserver{logger: logger}
}

// NewWriterObserver logs findings as text to w.
func NewWriterObserver(w io.Writer) Observer {
	if w == nil {
		return NoopObserver{}
	}
	return NewLogObserver(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func (o *LogObserver) Observe(ctx context.Context, f Finding) {
	attrs := []any{"kind", string(f.Kind)}
	if id, ok := RunIDFromContext(ctx); ok {
		attrs = append(attrs, "run_id", id)
	}
	if f.Duration > 0 {
		attrs = append(attrs, "seconds", fmt.Sprintf("%.3f", f.Duration.Seconds()))
	}
	if f.Count > 0 {
		attrs = append(attrs, "count", f.Count)
	}
	if f.StatusAtStart != "" || f.StatusAtEnd != "" {
		attrs = append(attrs, "afk_status_at_gap_start", f.StatusAtStart, "afk_status_at_gap_end", f.StatusAtEnd)
	}
	if f.Stats != nil {
		attrs = append(attrs,
			"scope", f.Scope,
			"total_gaps", f.Stats.Total,
			"average_gap", fmt.Sprintf("%.3fs", f.Stats.Average.Seconds()),
			"max_gap", fmt.Sprintf("%.3fs", f.Stats.Max.Seconds()),
			"distribution", f.Stats.Distribution,
		)
	}
	for i, e := range f.Events {
		attrs = append(attrs, fmt.Sprintf("event%d", i+1), e.ID+"@"+formatInstant(e.Timestamp))
	}
	o.logger.Log(ctx, f.Level, f.Message, attrs...)
}

// ChannelObserver forwards findings to a channel, dropping them when the
// channel is full.
type ChannelObserver struct {
	ch chan<- Finding
}

// NewChannelObserver creates an observer sending on ch.
func NewChannelObserver(ch chan<- Finding) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

func (o *ChannelObserver) Observe(ctx context.Context, f Finding) {
	select {
	case o.ch <- f:
	default:
	}
}

// MultiObserver fans findings out to several observers.
type MultiObserver []Observer

func (m MultiObserver) Observe(ctx context.Context, f Finding) {
	for _, o := range m {
		if o != nil {
			o.Observe(ctx, f)
		}
	}
}

// AnalyzeWindowOverlaps reports every pair of time-adjacent window events
// where the first ends after the second starts.
func AnalyzeWindowOverlaps(ctx context.Context, events []Event, obs Observer) int {
	sorted := sortByStart(events)
	count := 0
	for i := 0; i+1 < len(sorted); i++ {
		e1, e2 := sorted[i], sorted[i+1]
		overlap := e1.End().Sub(e2.Timestamp)
		if overlap <= 0 {
			continue
		}
		count++
		obs.Observe(ctx, Finding{
			Kind:     FindingWindowOverlap,
			Level:    slog.LevelWarn,
			Message:  fmt.Sprintf("window overlap detected, duration %.3fs", overlap.Seconds()),
			Duration: overlap,
			Events:   []Event{e1, e2},
		})
	}
	return count
}

// AnalyzeTaskOverlaps reports every task event that starts before an
// earlier one ends, and escalates when more than two tasks run at once.
func AnalyzeTaskOverlaps(ctx context.Context, events []Event, obs Observer) int {
	sorted := sortByStart(events)
	count := 0
	for i, e1 := range sorted {
		end1 := e1.End()
		simultaneous := []Event{e1}
		for _, e2 := range sorted[i+1:] {
			if !e2.Timestamp.Before(end1) {
				break
			}
			count++
			simultaneous = append(simultaneous, e2)
			obs.Observe(ctx, Finding{
				Kind:     FindingTaskOverlap,
				Level:    slog.LevelWarn,
				Message:  "overlapping task event detected",
				Duration: minTime(end1, e2.End()).Sub(e2.Timestamp),
				Events:   []Event{e1, e2},
			})
		}
		if len(simultaneous) > 2 {
			obs.Observe(ctx, Finding{
				Kind:    FindingTaskPileUp,
				Level:   slog.LevelError,
				Message: fmt.Sprintf("%d tasks overlap at the same time", len(simultaneous)),
				Count:   len(simultaneous),
				Events:  simultaneous,
			})
		}
	}
	return count
}

// Gap statistics thresholds.
const (
	gapReportThreshold = 1 * time.Second
	gapWarnMin         = 3 * time.Second
	gapWarnMax         = 10 * time.Second
)

// GapBuckets lists the histogram labels of GapStats.Distribution in order.
var GapBuckets = []string{"1-2s", "2-3s", "3-4s", "4-5s", "5-10s", "10-30s", "30-60s", "60s+"}

// GapStats summarises a set of gaps.
type GapStats struct {
	Total        int
	Average      time.Duration
	Max          time.Duration
	Distribution map[string]int
}

// CalculateGapStatistics returns nil for an empty gap list.
func CalculateGapStatistics(gaps []time.Duration) *GapStats {
	if len(gaps) == 0 {
		return nil
	}
	stats := &GapStats{Distribution: make(map[string]int, len(GapBuckets))}
	for _, b := range GapBuckets {
		stats.Distribution[b] = 0
	}
	var sum time.Duration
	for _, g := range gaps {
		sum += g
		if g > stats.Max {
			stats.Max = g
		}
		stats.Distribution[gapBucket(g)]++
	}
	stats.Total = len(gaps)
	stats.Average = sum / time.Duration(len(gaps))
	return stats
}

func gapBucket(g time.Duration) string {
	switch {
	case g <= 2*time.Second:
		return "1-2s"
	case g <= 3*time.Second:
		return "2-3s"
	case g <= 4*time.Second:
		return "3-4s"
	case g <= 5*time.Second:
		return "4-5s"
	case g <= 10*time.Second:
		return "5-10s"
	case g <= 30*time.Second:
		return "10-30s"
	case g <= 60*time.Second:
		return "30-60s"
	default:
		return "60s+"
	}
}

// AFKStatusAt returns the status of the last AFK event covering t, or
// "unknown". Last means latest in the order of afkEvents.
func AFKStatusAt(t time.Time, afkEvents []Event) string {
	return newAFKTimeline(afkEvents).statusAt(t)
}

// afkTimeline answers AFK status queries with a forward cursor over the
// events sorted by start. Queries at non-decreasing instants are linear in
// the number of events overall.
type afkTimeline struct {
	events []indexedEvent
	next   int
	// active holds started events that had not ended at the last query.
	active []indexedEvent
	last   time.Time
}

type indexedEvent struct {
	Event
	index int
}

func newAFKTimeline(afkEvents []Event) *afkTimeline {
	events := make([]indexedEvent, len(afkEvents))
	for i, e := range afkEvents {
		events[i] = indexedEvent{Event: e, index: i}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return &afkTimeline{events: events}
}

// statusAt restarts the cursor when t is earlier than the previous query.
func (tl *afkTimeline) statusAt(t time.Time) string {
	if t.Before(tl.last) {
		tl.next, tl.active = 0, tl.active[:0]
	}
	tl.last = t

	for tl.next < len(tl.events) && !t.Before(tl.events[tl.next].Timestamp) {
		tl.active = append(tl.active, tl.events[tl.next])
		tl.next++
	}

	status, best := "unknown", -1
	kept := tl.active[:0]
	for _, e := range tl.active {
		if !t.Before(e.End()) {
			continue
		}
		kept = append(kept, e)
		if e.index > best {
			status, best = e.Status, e.index
		}
	}
	tl.active = kept
	return status
}

// AnalyzeWindowGaps collects gaps wider than one second between consecutive
// window events, split by whether both gap edges fall in not-afk time, and
// reports a histogram for each group. Gaps between 3 and 10 seconds are also
// reported individually.
func AnalyzeWindowGaps(ctx context.Context, events, afkEvents []Event, obs Observer) (notAFK, other *GapStats) {
	sorted := sortByStart(events)
	// Gap edges only move forward: each gap starts after the previous one ends.
	timeline := newAFKTimeline(afkEvents)
	var notAFKGaps, otherGaps []time.Duration
	for i := 0; i+1 < len(sorted); i++ {
		e1, e2 := sorted[i], sorted[i+1]
		end1 := e1.End()
		gap := e2.Timestamp.Sub(end1)
		if gap <= gapReportThreshold {
			continue
		}
		atStart := timeline.statusAt(end1)
		atEnd := timeline.statusAt(e2.Timestamp)
		if atStart == StatusNotAFK && atEnd == StatusNotAFK {
			notAFKGaps = append(notAFKGaps, gap)
		} else {
			otherGaps = append(otherGaps, gap)
		}
		if gap > gapWarnMin && gap <= gapWarnMax {
			obs.Observe(ctx, Finding{
				Kind:          FindingGap,
				Level:         slog.LevelWarn,
				Message:       fmt.Sprintf("gap detected, duration %.3fs", gap.Seconds()),
				Duration:      gap,
				Events:        []Event{e1, e2},
				StatusAtStart: atStart,
				StatusAtEnd:   atEnd,
			})
		}
	}

	notAFK = CalculateGapStatistics(notAFKGaps)
	if notAFK != nil {
		obs.Observe(ctx, Finding{Kind: FindingGapStats, Level: slog.LevelInfo, Message: "gap analysis", Scope: StatusNotAFK, Stats: notAFK})
	}
	other = CalculateGapStatistics(otherGaps)
	if other != nil {
		obs.Observe(ctx, Finding{Kind: FindingGapStats, Level: slog.LevelInfo, Message: "gap analysis", Scope: "other", Stats: other})
	}
	return notAFK, other
}
