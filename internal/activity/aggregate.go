package activity

import (
	"strconv"
	"time"
)

// MaxAggregateGap is the largest gap allowed between members of one run of
// short events.
const MaxAggregateGap = 10 * time.Second

// AggregatedTitle is the title given to every synthetic meta-event.
const AggregatedTitle = "Aggregated Activity"

// AggregateShortEvents collapses runs of consecutive events shorter than
// threshold into meta-events. events must already be sorted by start.
// A run ends at the first long event or at a gap wider than MaxAggregateGap;
// single-event runs are passed through unwrapped. A threshold <= 0 disables
// aggregation.
func AggregateShortEvents(events []Event, threshold time.Duration) []Event {
	if len(events) == 0 {
		return []Event{}
	}
	if threshold <= 0 {
		return cloneEvents(events)
	}

	out := make([]Event, 0, len(events))
	var run []Event

	flush := func() {
		switch len(run) {
		case 0:
		case 1:
			out = append(out, run[0])
		default:
			out = append(out, newMetaEvent(run))
		}
		run = nil
	}

	for _, e := range events {
		if e.Duration >= threshold {
			flush()
			out = append(out, e.Clone())
			continue
		}
		if len(run) > 0 && e.Timestamp.Sub(run[len(run)-1].End()) > MaxAggregateGap {
			flush()
		}
		run = append(run, e.Clone())
	}
	flush()
	return out
}

// newMetaEvent builds the synthetic event standing in for run (len >= 2).
// Its duration is the wall-clock span of the run; CleanDuration excludes the
// gaps between members.
func newMetaEvent(run []Event) Event {
	first, last := run[0], run[len(run)-1]
	start := first.Timestamp
	end := last.End()

	agg := &Aggregate{
		Apps:       make(map[string]time.Duration),
		EventCount: len(run),
		Originals:  run,
	}
	for _, e := range run {
		agg.Apps[e.App] += e.Duration
		agg.CleanDuration += e.Duration
	}

	meta := Event{
		ID:        metaEventID(start, len(run)),
		Timestamp: start,
		Duration:  end.Sub(start),
		Kind:      KindAggregated,
		App:       AggregatedApp,
		Title:     AggregatedTitle,
		Aggregate: agg,
	}
	return Identify(meta)
}

// metaEventID derives an id from the run's start and size. Two runs collide
// only when they start at the same instant with the same length.
func metaEventID(start time.Time, count int) string {
	return "meta_" + formatInstant(start) + "_" + strconv.Itoa(count)
}
