package activity

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeWindowOverlaps_ReportsAdjacentOverlap(t *testing.T) {
	events := []Event{
		window("2", "B", "b", at(10, 0, 55), time.Minute),
		window("1", "A", "a", at(10, 0, 0), time.Minute),
	}
	snapshot := cloneEvents(events)
	rec := &recorder{}

	n := AnalyzeWindowOverlaps(context.Background(), events, rec)
	assert.Equal(t, 1, n)

	found := rec.ofKind(FindingWindowOverlap)
	require.Len(t, found, 1)
	assert.Equal(t, 5*time.Second, found[0].Duration)
	assert.Contains(t, found[0].Message, "5.000s")
	assert.Equal(t, []string{"1", "2"}, ids(found[0].Events))
	assert.Equal(t, snapshot, events, "analysis must not mutate input")
}

func TestAnalyzeTaskOverlaps_PileUp(t *testing.T) {
	events := []Event{
		task("1", "a", at(10, 0, 0), time.Hour),
		task("2", "b", at(10, 10, 0), 10*time.Minute),
		task("3", "c", at(10, 15, 0), 10*time.Minute),
		task("4", "d", at(12, 0, 0), 10*time.Minute),
	}
	rec := &recorder{}

	n := AnalyzeTaskOverlaps(context.Background(), events, rec)
	// 1 overlaps 2 and 3; 2 overlaps 3.
	assert.Equal(t, 3, n)
	assert.Len(t, rec.ofKind(FindingTaskOverlap), 3)

	pileUps := rec.ofKind(FindingTaskPileUp)
	require.Len(t, pileUps, 1)
	assert.Equal(t, 3, pileUps[0].Count)
}

func TestCalculateGapStatistics(t *testing.T) {
	assert.Nil(t, CalculateGapStatistics(nil))

	stats := CalculateGapStatistics([]time.Duration{
		1500 * time.Millisecond, 3 * time.Second, 7 * time.Second, 45 * time.Second, 2 * time.Minute,
	})
	require.NotNil(t, stats)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2*time.Minute, stats.Max)
	assert.Equal(t, 1, stats.Distribution["1-2s"])
	assert.Equal(t, 1, stats.Distribution["2-3s"])
	assert.Equal(t, 1, stats.Distribution["5-10s"])
	assert.Equal(t, 1, stats.Distribution["30-60s"])
	assert.Equal(t, 1, stats.Distribution["60s+"])
	assert.Equal(t, 0, stats.Distribution["10-30s"])
	assert.Len(t, stats.Distribution, len(GapBuckets))
}

func TestAnalyzeWindowGaps_SplitsByAFKStatus(t *testing.T) {
	events := []Event{
		window("1", "A", "a", at(10, 0, 0), time.Minute),
		window("2", "B", "b", at(10, 1, 5), time.Minute),  // 5s gap, not-afk
		window("3", "C", "c", at(10, 25, 0), time.Minute), // gap ends in afk time
	}
	afkEvents := []Event{
		afk("n", StatusNotAFK, at(10, 0, 0), 20*time.Minute),
		afk("a", StatusAFK, at(10, 20, 0), 10*time.Minute),
		afk("n2", StatusNotAFK, at(10, 30, 0), 30*time.Minute),
	}
	rec := &recorder{}

	notAFK, other := AnalyzeWindowGaps(context.Background(), events, afkEvents, rec)
	require.NotNil(t, notAFK)
	require.NotNil(t, other)
	assert.Equal(t, 1, notAFK.Total)
	assert.Equal(t, 1, other.Total)

	gaps := rec.ofKind(FindingGap)
	require.Len(t, gaps, 1)
	assert.Equal(t, StatusNotAFK, gaps[0].StatusAtStart)
	assert.Len(t, rec.ofKind(FindingGapStats), 2)
}

func TestAFKStatusAt(t *testing.T) {
	afkEvents := []Event{afk("n", StatusNotAFK, at(10, 0, 0), time.Minute)}
	assert.Equal(t, StatusNotAFK, AFKStatusAt(at(10, 0, 30), afkEvents))
	assert.Equal(t, "unknown", AFKStatusAt(at(10, 1, 0), afkEvents))
	assert.Equal(t, "unknown", AFKStatusAt(at(9, 59, 59), afkEvents))
}

func TestAFKStatusAt_LastInInputOrderWins(t *testing.T) {
	// Newest first, as the tracker returns them.
	afkEvents := []Event{
		afk("late", StatusAFK, at(10, 5, 0), 10*time.Minute),
		afk("early", StatusNotAFK, at(10, 0, 0), 30*time.Minute),
	}
	assert.Equal(t, StatusNotAFK, AFKStatusAt(at(10, 6, 0), afkEvents))

	reversed := []Event{afkEvents[1], afkEvents[0]}
	assert.Equal(t, StatusAFK, AFKStatusAt(at(10, 6, 0), reversed))
	assert.Equal(t, StatusNotAFK, AFKStatusAt(at(10, 20, 0), reversed))
}

func TestAFKTimeline_StatusQueries(t *testing.T) {
	afkEvents := []Event{
		afk("a", StatusNotAFK, at(10, 0, 0), 20*time.Minute),
		afk("b", StatusAFK, at(10, 20, 0), 10*time.Minute),
		afk("c", StatusNotAFK, at(10, 25, 0), 35*time.Minute),
		afk("d", StatusAFK, at(11, 30, 0), 5*time.Minute),
	}
	queries := []struct {
		when time.Time
		want string
	}{
		{at(9, 0, 0), "unknown"},
		{at(10, 0, 0), StatusNotAFK},
		{at(10, 19, 59), StatusNotAFK},
		{at(10, 20, 0), StatusAFK},
		{at(10, 26, 0), StatusNotAFK}, // b and c overlap, c is later in the input
		{at(10, 30, 0), StatusNotAFK},
		{at(11, 0, 0), "unknown"},
		{at(11, 31, 0), StatusAFK},
		{at(11, 35, 0), "unknown"},
		// Earlier instants restart the cursor.
		{at(10, 21, 0), StatusAFK},
		{at(10, 5, 0), StatusNotAFK},
	}

	tl := newAFKTimeline(afkEvents)
	for _, q := range queries {
		assert.Equal(t, q.want, tl.statusAt(q.when), "at %s", q.when.Format(time.TimeOnly))
		assert.Equal(t, q.want, AFKStatusAt(q.when, afkEvents), "at %s", q.when.Format(time.TimeOnly))
	}
}

func TestAnalyzeWindowGaps_LongEventDoesNotReorderQueries(t *testing.T) {
	events := []Event{
		window("1", "A", "a", at(10, 0, 0), 30*time.Minute),
		window("2", "B", "b", at(10, 5, 0), time.Minute),
		window("3", "C", "c", at(10, 40, 0), 10*time.Minute),
		window("4", "D", "d", at(10, 50, 5), time.Minute),
	}
	afkEvents := []Event{
		afk("n", StatusNotAFK, at(10, 0, 0), 10*time.Minute),
		afk("a", StatusAFK, at(10, 10, 0), 35*time.Minute),
		afk("n2", StatusNotAFK, at(10, 45, 0), 45*time.Minute),
	}
	rec := &recorder{}

	notAFK, other := AnalyzeWindowGaps(context.Background(), events, afkEvents, rec)
	// 10:06 -> 10:40 ends in afk time; 10:50 -> 10:50:05 is not-afk.
	require.NotNil(t, notAFK)
	require.NotNil(t, other)
	assert.Equal(t, 1, notAFK.Total)
	assert.Equal(t, 1, other.Total)

	gaps := rec.ofKind(FindingGap)
	require.Len(t, gaps, 1)
	assert.Equal(t, StatusNotAFK, gaps[0].StatusAtStart)
	assert.Equal(t, StatusNotAFK, gaps[0].StatusAtEnd)
}

func TestChannelObserver_DropsWhenFull(t *testing.T) {
	ch := make(chan Finding, 1)
	obs := NewChannelObserver(ch)

	obs.Observe(context.Background(), Finding{Kind: FindingGap})
	obs.Observe(context.Background(), Finding{Kind: FindingWindowOverlap})

	require.Len(t, ch, 1)
	assert.Equal(t, FindingGap, (<-ch).Kind)
}

func TestWriterObserver_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	obs := NewWriterObserver(&buf)

	AnalyzeWindowOverlaps(context.Background(), []Event{
		window("1", "A", "a", at(10, 0, 0), time.Minute),
		window("2", "B", "b", at(10, 0, 58), time.Minute),
	}, obs)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "kind=window_overlap")
	assert.Contains(t, out, "seconds=2.000")
}

func TestNewLogObserver_NilLogger(t *testing.T) {
	assert.IsType(t, NoopObserver{}, NewLogObserver(nil))
}
