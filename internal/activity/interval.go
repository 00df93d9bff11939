package activity

import (
	"sort"
	"time"
)

// Interval is a closed-open time span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the interval covers no time.
func (iv Interval) Empty() bool {
	return !iv.Start.Before(iv.End)
}

// Contains reports whether other lies entirely within iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Intersect returns the overlap of iv and other, which may be empty.
func (iv Interval) Intersect(other Interval) Interval {
	return Interval{Start: maxTime(iv.Start, other.Start), End: minTime(iv.End, other.End)}
}

// BuildNotAFKIntervals returns the spans of all "not-afk" AFK events, in
// input order. Degenerate spans are dropped.
func BuildNotAFKIntervals(afkEvents []Event) []Interval {
	intervals := make([]Interval, 0, len(afkEvents))
	for _, e := range afkEvents {
		if e.Status != StatusNotAFK {
			continue
		}
		iv := e.Span()
		if iv.Empty() {
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals
}

// MergeOverlappingIntervals sorts intervals by start and merges those that
// strictly overlap. Abutting intervals (a.End == b.Start) stay separate.
// The input slice is not modified.
func MergeOverlappingIntervals(intervals []Interval) []Interval {
	if len(intervals) <= 1 {
		return append([]Interval(nil), intervals...)
	}
	sorted := append([]Interval(nil), intervals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, cur := range sorted[1:] {
		last := &merged[len(merged)-1]
		if cur.Start.Before(last.End) {
			last.End = maxTime(last.End, cur.End)
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// ActiveFragments intersects event with every interval and returns one copy
// of the event per non-empty intersection.
func ActiveFragments(event Event, intervals []Interval) []Event {
	span := event.Span()
	var fragments []Event
	for _, iv := range intervals {
		cut := span.Intersect(iv)
		if cut.Empty() {
			continue
		}
		fragments = append(fragments, event.Clone().withSpan(cut.Start, cut.End))
	}
	return fragments
}

// activeFragmentsAll applies ActiveFragments to every event.
func activeFragmentsAll(events []Event, intervals []Interval) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		out = append(out, ActiveFragments(e, intervals)...)
	}
	return out
}

// SplitByHour cuts event at every top-of-hour boundary in loc. Aggregated
// fragments get a distinct id and keep only the original events overlapping
// their own span.
func SplitByHour(event Event, loc *time.Location) []Event {
	if loc == nil {
		loc = time.Local
	}
	end := event.End()
	var fragments []Event
	for cur := event.Timestamp; cur.Before(end); {
		next := minTime(end, nextHour(cur, loc))
		if next.After(cur) {
			fragments = append(fragments, hourFragment(event, cur, next))
		}
		cur = next
	}
	return fragments
}

func hourFragment(event Event, start, end time.Time) Event {
	frag := event.Clone().withSpan(start, end)
	if frag.Kind != KindAggregated {
		return frag
	}
	frag.ID = event.ID + "_" + formatInstant(start)
	if frag.Aggregate != nil {
		seg := Interval{Start: start, End: end}
		kept := make([]Event, 0, len(frag.Aggregate.Originals))
		for _, orig := range frag.Aggregate.Originals {
			if !orig.Span().Intersect(seg).Empty() {
				kept = append(kept, orig)
			}
		}
		frag.Aggregate.Originals = kept
		frag.Aggregate.EventCount = len(kept)
	}
	return frag
}

func splitAllByHour(events []Event, loc *time.Location) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		out = append(out, SplitByHour(e, loc)...)
	}
	return out
}

// nextHour returns the next top-of-hour strictly after t in loc.
func nextHour(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	top := time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), 0, 0, 0, loc)
	next := top.Add(time.Hour)
	// Across a DST fold the wall-clock top can land at or before t.
	for !next.After(t) {
		next = next.Add(time.Hour)
	}
	return next
}

// sortByStart returns a copy of events ordered by timestamp.
func sortByStart(events []Event) []Event {
	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
