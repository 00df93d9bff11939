package activity

import "time"

// MaxHealGap is the largest gap between consecutive window events that is
// treated as a tracker hiccup rather than idle time.
const MaxHealGap = 10 * time.Second

// HealWindowGaps closes small gaps between consecutive window events that
// fall entirely inside a single not-afk AFK event by extending the earlier
// event. It returns a new slice sorted by start and the number of healed
// gaps; neither input slice is modified.
//
// The AFK cursor only moves forward, so the pass is linear in the combined
// input size.
func HealWindowGaps(windowEvents, afkEvents []Event) ([]Event, int) {
	events := sortByStart(windowEvents)
	for i := range events {
		events[i] = events[i].Clone()
	}
	afk := sortByStart(afkEvents)

	healed := 0
	cursor := 0
	for i := 0; i+1 < len(events); i++ {
		end1 := events[i].End()
		start2 := events[i+1].Timestamp
		gap := start2.Sub(end1)
		if gap <= 0 || gap > MaxHealGap {
			continue
		}

		for cursor < len(afk)-1 && afk[cursor].End().Before(end1) {
			cursor++
		}
		if cursor >= len(afk) {
			continue
		}
		cover := afk[cursor]
		if cover.Status != StatusNotAFK {
			continue
		}
		if cover.Span().Contains(Interval{Start: end1, End: start2}) {
			events[i].Duration += gap
			healed++
		}
	}
	return events, healed
}
