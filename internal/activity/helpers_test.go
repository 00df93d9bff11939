package activity

import (
	"context"
	"sync"
	"time"
)

// at returns 2024-05-06 (a Monday, ISO week 19) at h:m:s UTC.
func at(h, m, s int) time.Time {
	return time.Date(2024, 5, 6, h, m, s, 0, time.UTC)
}

func secs(n float64) time.Duration {
	return secondsToDuration(n)
}

func window(id, app, title string, start time.Time, dur time.Duration) Event {
	return Event{ID: id, Kind: KindWindow, App: app, Title: title, Timestamp: start, Duration: dur}
}

func task(id, label string, start time.Time, dur time.Duration) Event {
	return Event{ID: id, Kind: KindTask, Label: label, Timestamp: start, Duration: dur}
}

func afk(id, status string, start time.Time, dur time.Duration) Event {
	return Event{ID: id, Kind: KindAFK, Status: status, Timestamp: start, Duration: dur}
}

// recorder collects findings for assertions.
type recorder struct {
	mu       sync.Mutex
	findings []Finding
}

func (r *recorder) Observe(_ context.Context, f Finding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findings = append(r.findings, f)
}

func (r *recorder) ofKind(k FindingKind) []Finding {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Finding
	for _, f := range r.findings {
		if f.Kind == k {
			out = append(out, f)
		}
	}
	return out
}
