package activity

import (
	"encoding/json"
	"sort"
	"time"
)

// HourBucket is a leaf of the time view.
type HourBucket struct {
	Detailed   []Event       `json:"detailed"`
	Aggregated []Event       `json:"aggregated"`
	Tasks      []Event       `json:"tasks"`
	Summary    []SummaryItem `json:"summary"`
}

func newHourBucket() *HourBucket {
	return &HourBucket{
		Detailed:   []Event{},
		Aggregated: []Event{},
		Tasks:      []Event{},
		Summary:    []SummaryItem{},
	}
}

// TimeView holds hour buckets keyed by calendar position. It encodes to JSON
// as the nested year -> month -> week -> day -> hour mapping.
type TimeView struct {
	buckets map[CalendarKey]*HourBucket
}

// NewTimeView returns an empty view.
func NewTimeView() *TimeView {
	return &TimeView{buckets: make(map[CalendarKey]*HourBucket)}
}

// Len returns the number of hour buckets.
func (v *TimeView) Len() int { return len(v.buckets) }

// Bucket returns the bucket at k.
func (v *TimeView) Bucket(k CalendarKey) (*HourBucket, bool) {
	b, ok := v.buckets[k]
	return b, ok
}

// ensure returns the bucket at k, creating it with empty lists on first use.
func (v *TimeView) ensure(k CalendarKey) *HourBucket {
	b, ok := v.buckets[k]
	if !ok {
		b = newHourBucket()
		v.buckets[k] = b
	}
	return b
}

// Keys returns all bucket keys in chronological order.
func (v *TimeView) Keys() []CalendarKey {
	keys := make([]CalendarKey, 0, len(v.buckets))
	for k := range v.buckets {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// Range returns the keys whose hour in loc overlaps [from, to), in
// chronological order.
func (v *TimeView) Range(from, to time.Time, loc *time.Location) []CalendarKey {
	keys := []CalendarKey{}
	for _, k := range v.Keys() {
		start := k.Start(loc)
		if start.Before(to) && start.Add(time.Hour).After(from) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Tree returns the nested year -> month -> week -> day -> hour mapping.
func (v *TimeView) Tree() map[int]map[int]map[int]map[int]map[int]*HourBucket {
	tree := make(map[int]map[int]map[int]map[int]map[int]*HourBucket)
	for k, b := range v.buckets {
		months, ok := tree[k.Year]
		if !ok {
			months = make(map[int]map[int]map[int]map[int]*HourBucket)
			tree[k.Year] = months
		}
		weeks, ok := months[k.Month]
		if !ok {
			weeks = make(map[int]map[int]map[int]*HourBucket)
			months[k.Month] = weeks
		}
		days, ok := weeks[k.Week]
		if !ok {
			days = make(map[int]map[int]*HourBucket)
			weeks[k.Week] = days
		}
		hours, ok := days[k.Day]
		if !ok {
			hours = make(map[int]*HourBucket)
			days[k.Day] = hours
		}
		hours[k.Hour] = b
	}
	return tree
}

func (v *TimeView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Tree())
}

// TaskKey addresses one hour of one task label.
type TaskKey struct {
	Label string
	CalendarKey
}

// TaskView holds window fragments grouped under the task label that was
// running at the time. It encodes to JSON as label -> year -> month -> week
// -> day -> hour -> events.
type TaskView struct {
	entries map[TaskKey][]Event
}

// NewTaskView returns an empty view.
func NewTaskView() *TaskView {
	return &TaskView{entries: make(map[TaskKey][]Event)}
}

// Len returns the number of (label, hour) entries.
func (v *TaskView) Len() int { return len(v.entries) }

// Events returns the window fragments recorded at k.
func (v *TaskView) Events(k TaskKey) []Event {
	return v.entries[k]
}

func (v *TaskView) add(k TaskKey, e Event) {
	v.entries[k] = append(v.entries[k], e)
}

// Labels returns the distinct task labels in sorted order.
func (v *TaskView) Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for k := range v.entries {
		if !seen[k.Label] {
			seen[k.Label] = true
			labels = append(labels, k.Label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Keys returns the entries of label in chronological order.
func (v *TaskView) Keys(label string) []TaskKey {
	var cal []CalendarKey
	for k := range v.entries {
		if k.Label == label {
			cal = append(cal, k.CalendarKey)
		}
	}
	sortKeys(cal)
	keys := make([]TaskKey, len(cal))
	for i, c := range cal {
		keys[i] = TaskKey{Label: label, CalendarKey: c}
	}
	return keys
}

// Total returns the summed fragment duration recorded under label.
func (v *TaskView) Total(label string) time.Duration {
	var total time.Duration
	for k, events := range v.entries {
		if k.Label != label {
			continue
		}
		for _, e := range events {
			total += e.Duration
		}
	}
	return total
}

func (v *TaskView) MarshalJSON() ([]byte, error) {
	tree := make(map[string]map[int]map[int]map[int]map[int]map[int][]Event)
	for k, events := range v.entries {
		years, ok := tree[k.Label]
		if !ok {
			years = make(map[int]map[int]map[int]map[int]map[int][]Event)
			tree[k.Label] = years
		}
		months, ok := years[k.Year]
		if !ok {
			months = make(map[int]map[int]map[int]map[int][]Event)
			years[k.Year] = months
		}
		weeks, ok := months[k.Month]
		if !ok {
			weeks = make(map[int]map[int]map[int][]Event)
			months[k.Month] = weeks
		}
		days, ok := weeks[k.Week]
		if !ok {
			days = make(map[int]map[int][]Event)
			weeks[k.Week] = days
		}
		hours, ok := days[k.Day]
		if !ok {
			hours = make(map[int][]Event)
			days[k.Day] = hours
		}
		hours[k.Hour] = events
	}
	return json.Marshal(tree)
}

// buildTimeView files every fragment into its hour bucket and computes the
// per-hour summaries. notAFKByHour is keyed by hour of day only.
func buildTimeView(detailed, aggregated, tasks []Event, notAFKByHour map[int]time.Duration, showAFK bool, loc *time.Location) *TimeView {
	view := NewTimeView()
	for _, e := range detailed {
		b := view.ensure(KeyFor(e.Timestamp, loc))
		b.Detailed = append(b.Detailed, e)
	}
	for _, e := range aggregated {
		b := view.ensure(KeyFor(e.Timestamp, loc))
		b.Aggregated = append(b.Aggregated, e)
	}
	for _, e := range tasks {
		b := view.ensure(KeyFor(e.Timestamp, loc))
		b.Tasks = append(b.Tasks, e)
	}
	for k, b := range view.buckets {
		b.Summary = CalculateHourSummary(b.Detailed, b.Tasks, notAFKByHour[k.Hour], showAFK)
	}
	return view
}

// buildTaskView cross joins hour-split task fragments with hour-split window
// fragments. Both inputs are hour scoped, so the join stays small per hour.
func buildTaskView(tasks, windows []Event, loc *time.Location) *TaskView {
	view := NewTaskView()
	for _, task := range tasks {
		if task.Label == "" {
			continue
		}
		span := task.Span()
		for _, w := range windows {
			cut := span.Intersect(w.Span())
			if cut.Empty() {
				continue
			}
			key := TaskKey{Label: task.Label, CalendarKey: KeyFor(cut.Start, loc)}
			view.add(key, w.Clone().withSpan(cut.Start, cut.End))
		}
	}
	return view
}

// notAFKSecondsByHour splits the raw not-afk events by hour and sums them by
// hour of day. Hours with the same number on different days share a total.
func notAFKSecondsByHour(afkEvents []Event, loc *time.Location) map[int]time.Duration {
	byHour := make(map[int]time.Duration)
	for _, e := range afkEvents {
		if e.Status != StatusNotAFK {
			continue
		}
		for _, frag := range SplitByHour(e, loc) {
			byHour[frag.Timestamp.In(loc).Hour()] += frag.Duration
		}
	}
	return byHour
}
