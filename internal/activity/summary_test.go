package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateHourSummary_EmptyHourWithAFK(t *testing.T) {
	items := CalculateHourSummary(nil, nil, 0, true)
	require.Len(t, items, 1)
	assert.Equal(t, AFKName, items[0].Name)
	assert.Equal(t, time.Hour, items[0].TotalDuration)
	assert.InDelta(t, 100.0, items[0].Percentage, 1e-9)
	assert.Equal(t, AFKHash, items[0].SdbmID)
	require.Len(t, items[0].Titles, 1)
	assert.Equal(t, AFKName, items[0].Titles[0].Title)
}

func TestCalculateHourSummary_EmptyHourWithoutAFK(t *testing.T) {
	assert.Empty(t, CalculateHourSummary(nil, nil, 0, false))
}

func TestCalculateHourSummary_GroupsAndSorts(t *testing.T) {
	rules := DefaultTitleRules()
	detailed := []Event{
		rules.SanitizeTitle(window("1", "A", "one", at(10, 0, 0), 10*time.Minute)),
		rules.SanitizeTitle(window("2", "B", "", at(10, 10, 0), 25*time.Minute)),
		rules.SanitizeTitle(window("3", "A", "two", at(10, 35, 0), 15*time.Minute)),
		rules.SanitizeTitle(window("4", "A", "one", at(10, 50, 0), 10*time.Minute)),
	}
	tasks := []Event{Identify(task("t", "focus", at(10, 0, 0), 30*time.Minute))}

	items := CalculateHourSummary(detailed, tasks, time.Hour, false)
	require.Len(t, items, 3)

	assert.Equal(t, "A", items[0].Name)
	assert.Equal(t, 35*time.Minute, items[0].TotalDuration)
	require.Len(t, items[0].Titles, 2)
	assert.Equal(t, "one", items[0].Titles[0].Title)
	assert.Equal(t, 20*time.Minute, items[0].Titles[0].Duration)
	assert.Equal(t, "two", items[0].Titles[1].Title)

	assert.Equal(t, "focus", items[1].Name)
	assert.Empty(t, items[1].Titles)
	assert.Equal(t, int64(Sdbm("label::focus")), items[1].SdbmID)

	assert.Equal(t, "B", items[2].Name)
	assert.Equal(t, NoTitle, items[2].Titles[0].Title)

	var pct float64
	for _, it := range items {
		pct += it.Percentage
	}
	assert.InDelta(t, 100.0, pct, 1e-6, "without AFK percentages are relative to active time")
}

func TestCalculateHourSummary_AFKRemainderClampedAtZero(t *testing.T) {
	detailed := []Event{Identify(window("1", "A", "a", at(10, 0, 0), time.Hour))}
	items := CalculateHourSummary(detailed, nil, 2*time.Hour, true)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Name)
	assert.InDelta(t, 100.0, items[0].Percentage, 1e-9)
}
