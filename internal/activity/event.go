package activity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies which variant of Event data is populated.
type Kind int

const (
	KindUnknown Kind = iota
	KindAFK
	KindWindow
	KindTask
	KindAggregated
)

func (k Kind) String() string {
	switch k {
	case KindAFK:
		return "afk"
	case KindWindow:
		return "window"
	case KindTask:
		return "task"
	case KindAggregated:
		return "aggregated"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "afk":
		return KindAFK, nil
	case "window":
		return KindWindow, nil
	case "task":
		return KindTask, nil
	case "aggregated":
		return KindAggregated, nil
	default:
		return KindUnknown, fmt.Errorf("unknown event kind %q", s)
	}
}

// AFK status values reported by the idle watcher.
const (
	StatusAFK    = "afk"
	StatusNotAFK = "not-afk"
)

// AggregatedApp is the app name carried by synthetic aggregated events.
const AggregatedApp = "Aggregated"

// Event is a closed-open span [Timestamp, Timestamp+Duration).
//
// Only the fields belonging to Kind are meaningful: Status for AFK events,
// App/Title for window events, Label for task events and App/Title/Aggregate
// for aggregated meta-events.
type Event struct {
	ID        string
	Timestamp time.Time
	Duration  time.Duration
	Kind      Kind

	Status string
	App    string
	Title  string
	Label  string

	Aggregate *Aggregate

	// Hash is the sdbm identity hash; zero until Identify has run.
	Hash uint32
}

// Aggregate holds the meta-event payload for a run of short events.
type Aggregate struct {
	Apps          map[string]time.Duration
	EventCount    int
	CleanDuration time.Duration
	Originals     []Event
}

// End returns the exclusive end instant.
func (e Event) End() time.Time {
	return e.Timestamp.Add(e.Duration)
}

// Span returns the event as an Interval.
func (e Event) Span() Interval {
	return Interval{Start: e.Timestamp, End: e.End()}
}

// Clone returns a deep copy; aggregate payloads are not shared.
func (e Event) Clone() Event {
	if e.Aggregate == nil {
		return e
	}
	agg := *e.Aggregate
	agg.Apps = make(map[string]time.Duration, len(e.Aggregate.Apps))
	for k, v := range e.Aggregate.Apps {
		agg.Apps[k] = v
	}
	agg.Originals = cloneEvents(e.Aggregate.Originals)
	e.Aggregate = &agg
	return e
}

// withSpan returns a copy of e re-timed to [start, end).
func (e Event) withSpan(start, end time.Time) Event {
	e.Timestamp = start
	e.Duration = end.Sub(start)
	return e
}

func cloneEvents(events []Event) []Event {
	if events == nil {
		return nil
	}
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}

// secondsToDuration converts tracker seconds to a Duration, rounding to the
// nearest nanosecond.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

func durationSeconds(d time.Duration) float64 {
	return d.Seconds()
}

// isoMillis is the millisecond UTC layout used for ids and JSON timestamps.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func formatInstant(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// wireEvent is the tracker/JSON shape of an event.
type wireEvent struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Duration  float64         `json:"duration"`
	Data      wireData        `json:"data"`
	SdbmID    *uint32         `json:"sdbmId,omitempty"`
}

type wireData struct {
	Status         string             `json:"status,omitempty"`
	App            string             `json:"app,omitempty"`
	Title          *string            `json:"title,omitempty"`
	Label          string             `json:"label,omitempty"`
	IsAggregated   bool               `json:"is_aggregated,omitempty"`
	Apps           map[string]float64 `json:"apps,omitempty"`
	EventCount     int                `json:"eventCount,omitempty"`
	CleanDuration  float64            `json:"cleanDuration,omitempty"`
	OriginalEvents []Event            `json:"original_events,omitempty"`
}

// MarshalJSON encodes the event in the tracker's shape with seconds-based
// durations and an sdbmId field once the event has been identified.
func (e Event) MarshalJSON() ([]byte, error) {
	id, err := json.Marshal(e.ID)
	if err != nil {
		return nil, err
	}
	w := wireEvent{
		ID:        id,
		Timestamp: e.Timestamp.UTC(),
		Duration:  durationSeconds(e.Duration),
	}
	switch e.Kind {
	case KindAFK:
		w.Data.Status = e.Status
	case KindWindow:
		title := e.Title
		w.Data.App = e.App
		w.Data.Title = &title
	case KindTask:
		w.Data.Label = e.Label
	case KindAggregated:
		title := e.Title
		w.Data.App = e.App
		w.Data.Title = &title
		w.Data.IsAggregated = true
		if e.Aggregate != nil {
			w.Data.Apps = make(map[string]float64, len(e.Aggregate.Apps))
			for app, d := range e.Aggregate.Apps {
				w.Data.Apps[app] = durationSeconds(d)
			}
			w.Data.EventCount = e.Aggregate.EventCount
			w.Data.CleanDuration = durationSeconds(e.Aggregate.CleanDuration)
			w.Data.OriginalEvents = e.Aggregate.Originals
			if w.Data.OriginalEvents == nil {
				w.Data.OriginalEvents = []Event{}
			}
		}
	}
	if e.Kind != KindAFK && e.Hash != 0 {
		h := e.Hash
		w.SdbmID = &h
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes an event, inferring its kind from the data fields.
// Callers that know the stream a payload came from should prefer DecodeEvents,
// which pins the kind explicitly.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	kind := KindUnknown
	switch {
	case w.Data.IsAggregated:
		kind = KindAggregated
	case w.Data.Status != "":
		kind = KindAFK
	case w.Data.Label != "":
		kind = KindTask
	case w.Data.App != "" || w.Data.Title != nil:
		kind = KindWindow
	}
	ev, err := fromWire(w, kind)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}

func fromWire(w wireEvent, kind Kind) (Event, error) {
	id, err := decodeID(w.ID)
	if err != nil {
		return Event{}, err
	}
	ev := Event{
		ID:        id,
		Timestamp: w.Timestamp,
		Duration:  secondsToDuration(w.Duration),
		Kind:      kind,
	}
	switch kind {
	case KindAFK:
		ev.Status = w.Data.Status
	case KindWindow:
		ev.App = w.Data.App
		if w.Data.Title != nil {
			ev.Title = *w.Data.Title
		}
	case KindTask:
		ev.Label = w.Data.Label
	case KindAggregated:
		ev.App = w.Data.App
		if w.Data.Title != nil {
			ev.Title = *w.Data.Title
		}
		agg := &Aggregate{
			Apps:          make(map[string]time.Duration, len(w.Data.Apps)),
			EventCount:    w.Data.EventCount,
			CleanDuration: secondsToDuration(w.Data.CleanDuration),
			Originals:     w.Data.OriginalEvents,
		}
		for app, s := range w.Data.Apps {
			agg.Apps[app] = secondsToDuration(s)
		}
		ev.Aggregate = agg
	}
	if w.SdbmID != nil {
		ev.Hash = *w.SdbmID
	}
	return ev, nil
}

// decodeID accepts both numeric (tracker) and string ids.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode event id %s: %w", raw, err)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

// DecodeEvents decodes a JSON array of tracker events, tagging every element
// with kind.
func DecodeEvents(kind Kind, data []byte) ([]Event, error) {
	var raws []wireEvent
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode %s events: %w", kind, err)
	}
	events := make([]Event, 0, len(raws))
	for _, w := range raws {
		ev, err := fromWire(w, kind)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// DecodeEvent decodes a single tracker event, tagging it with kind.
func DecodeEvent(kind Kind, data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, fmt.Errorf("decode %s event: %w", kind, err)
	}
	return fromWire(w, kind)
}
