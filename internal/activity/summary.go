package activity

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	// AFKName labels the synthetic idle item in an hour summary.
	AFKName = "AFK"
	// AFKHash is the sdbmId reported for the synthetic idle item.
	AFKHash int64 = -1
	// NoTitle replaces empty window titles in summaries.
	NoTitle = "[No Title]"
)

// SummaryItem is one app (or task label) within an hour summary.
type SummaryItem struct {
	Name          string
	TotalDuration time.Duration
	Percentage    float64
	SdbmID        int64
	Titles        []TitleSummary
}

// TitleSummary is the time spent on one title of a SummaryItem.
type TitleSummary struct {
	Title    string
	Duration time.Duration
	SdbmID   int64
}

func (s SummaryItem) MarshalJSON() ([]byte, error) {
	titles := s.Titles
	if titles == nil {
		titles = []TitleSummary{}
	}
	return json.Marshal(struct {
		Name          string         `json:"name"`
		TotalDuration float64        `json:"totalDuration"`
		Percentage    float64        `json:"percentage"`
		SdbmID        int64          `json:"sdbmId"`
		Titles        []TitleSummary `json:"titles"`
	}{s.Name, durationSeconds(s.TotalDuration), s.Percentage, s.SdbmID, titles})
}

func (t TitleSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
		SdbmID   int64   `json:"sdbmId"`
	}{t.Title, durationSeconds(t.Duration), t.SdbmID})
}

type summaryAcc struct {
	item   SummaryItem
	titles map[string]*TitleSummary
	order  []string
}

// CalculateHourSummary totals detailed window events by app and task events
// by label. With showAFK the idle remainder of the hour (3600s minus
// notAFK) is added as an AFK item and percentages are taken against the full
// hour; otherwise against the active total. Items and their titles are
// sorted by descending duration.
func CalculateHourSummary(detailed, tasks []Event, notAFK time.Duration, showAFK bool) []SummaryItem {
	var active time.Duration
	for _, e := range detailed {
		active += e.Duration
	}
	for _, e := range tasks {
		active += e.Duration
	}

	total := active
	var afk time.Duration
	if showAFK {
		total = time.Hour
		afk = time.Hour - notAFK
		if afk < 0 {
			afk = 0
		}
	}
	if total <= 0 {
		return []SummaryItem{}
	}

	accs := make(map[string]*summaryAcc)
	var names []string
	get := func(name string, hash uint32) *summaryAcc {
		acc, ok := accs[name]
		if !ok {
			acc = &summaryAcc{
				item:   SummaryItem{Name: name, SdbmID: int64(hash)},
				titles: make(map[string]*TitleSummary),
			}
			accs[name] = acc
			names = append(names, name)
		}
		return acc
	}

	for _, e := range detailed {
		acc := get(e.App, e.Hash)
		acc.item.TotalDuration += e.Duration
		title := e.Title
		if title == "" {
			title = NoTitle
		}
		ts, ok := acc.titles[title]
		if !ok {
			ts = &TitleSummary{Title: title, SdbmID: int64(e.Hash)}
			acc.titles[title] = ts
			acc.order = append(acc.order, title)
		}
		ts.Duration += e.Duration
	}

	for _, e := range tasks {
		acc := get(e.Label, e.Hash)
		acc.item.TotalDuration += e.Duration
	}

	if showAFK && afk > 0 {
		acc := get(AFKName, 0)
		acc.item.SdbmID = AFKHash
		acc.item.TotalDuration = afk
		acc.titles[AFKName] = &TitleSummary{Title: AFKName, Duration: afk, SdbmID: AFKHash}
		acc.order = []string{AFKName}
	}

	items := make([]SummaryItem, 0, len(names))
	for _, name := range names {
		acc := accs[name]
		item := acc.item
		item.Titles = make([]TitleSummary, 0, len(acc.order))
		for _, t := range acc.order {
			item.Titles = append(item.Titles, *acc.titles[t])
		}
		sort.SliceStable(item.Titles, func(i, j int) bool {
			return item.Titles[i].Duration > item.Titles[j].Duration
		})
		item.Percentage = float64(item.TotalDuration) / float64(total) * 100
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].TotalDuration > items[j].TotalDuration
	})
	return items
}
