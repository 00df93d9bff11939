package cli

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/awcal/internal/activity"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30d", 30 * 24 * time.Hour},
		{"24h", 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"15m", 15 * time.Minute},
		{"45s", 45 * time.Second},
	}
	for _, tc := range tests {
		got, err := parseDuration(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "d", "abc", "10x", "-5d"} {
		_, err := parseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseTimeArg(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	got, err := parseTimeArg("2h", testNow, time.UTC)
	require.NoError(t, err)
	assert.True(t, testNow.Add(-2*time.Hour).Equal(got))

	got, err = parseTimeArg("2024-05-06T10", testNow, berlin)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC).Equal(got), "naive timestamps use the processing zone")

	got, err = parseTimeArg("2024-05-06", testNow, time.UTC)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC).Equal(got))

	got, err = parseTimeArg("2024-05-06T10:30:00+02:00", testNow, time.UTC)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC).Equal(got))

	_, err = parseTimeArg("yesterday", testNow, time.UTC)
	assert.Error(t, err)
}

func TestResolveWindow(t *testing.T) {
	since, until, err := resolveWindow("24h", "", testNow, time.UTC)
	require.NoError(t, err)
	assert.True(t, testNow.Add(-24*time.Hour).Equal(since))
	assert.True(t, testNow.Equal(until))

	_, _, err = resolveWindow("2024-05-07", "2024-05-06", testNow, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty window")

	_, _, err = resolveWindow("soon", "", testNow, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--since")
}

func TestProcessingOptions_Overrides(t *testing.T) {
	e := newTestEnv(t)

	opts, err := e.processingOptions(ProcessingFlags{}, "")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, opts.AggregationThreshold)
	assert.True(t, opts.ShowAFKInSummary)
	assert.Equal(t, time.UTC, opts.Location)
	assert.NotNil(t, opts.Observer)

	opts, err = e.processingOptions(ProcessingFlags{Threshold: "0.5", HideAFK: true}, "Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, opts.AggregationThreshold)
	assert.False(t, opts.ShowAFKInSummary)
	assert.Equal(t, "Europe/Berlin", opts.Location.String())

	_, err = e.processingOptions(ProcessingFlags{ShowAFK: true, HideAFK: true}, "")
	assert.Error(t, err)

	_, err = e.processingOptions(ProcessingFlags{Threshold: "-1"}, "")
	assert.Error(t, err)

	_, err = e.processingOptions(ProcessingFlags{}, "Mars/Olympus")
	assert.Error(t, err)
}

func TestReadInputFile(t *testing.T) {
	in, err := readInputFile(writeInputFile(t))
	require.NoError(t, err)
	require.Len(t, in.AFK, 1)
	require.Len(t, in.Window, 1)
	require.Len(t, in.Stopwatch, 1)
	assert.Equal(t, activity.KindAFK, in.AFK[0].Kind)
	assert.Equal(t, "2", in.Window[0].ID)
	assert.Equal(t, "focus", in.Stopwatch[0].Label)
}

func TestReadInputFile_MissingStreamIsIncomplete(t *testing.T) {
	path := t.TempDir() + "/partial.json"
	require.NoError(t, os.WriteFile(path, []byte(`{"afkEvents":[],"stopwatchEvents":[]}`), 0644))

	in, err := readInputFile(path)
	require.NoError(t, err)
	assert.Nil(t, in.Window)
	assert.ErrorIs(t, in.Validate(), activity.ErrIncompleteInput)
}

func TestCollectInput_FromStore(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	afkEvents, err := activity.DecodeEvents(activity.KindAFK, []byte(fixtureAFK))
	require.NoError(t, err)
	_, err = e.store.SaveEvents(ctx, "aw-watcher-afk_testhost", afkEvents)
	require.NoError(t, err)

	in, err := e.collectInput(ctx, sourceStore, "", testNow.Add(-24*time.Hour), testNow)
	require.NoError(t, err)
	assert.Len(t, in.AFK, 1)
	assert.NotNil(t, in.Window, "empty buckets load as empty streams")
	assert.Empty(t, in.Window)
	assert.NotNil(t, in.Stopwatch)
}

func TestCollectInput_Errors(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.collectInput(ctx, "carrier-pigeon", "", testNow.Add(-time.Hour), testNow)
	assert.Error(t, err)

	_, err = e.collectInput(ctx, sourceFile, "", testNow.Add(-time.Hour), testNow)
	assert.Error(t, err)

	_, err = e.collectInput(ctx, sourceTracker, "", testNow.Add(-time.Hour), testNow)
	assert.Error(t, err, "no tracker attached")
}

func TestSourceNeeds(t *testing.T) {
	assert.Equal(t, envNeeds{tracker: true}, sourceNeeds(sourceTracker, ""))
	assert.Equal(t, envNeeds{store: true}, sourceNeeds(sourceStore, ""))
	assert.Equal(t, envNeeds{}, sourceNeeds(sourceTracker, "input.json"))
	assert.Equal(t, envNeeds{}, sourceNeeds(sourceFile, ""))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "1:02:03", formatClock(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "0:00:50", formatClock(50*time.Second))

	assert.Equal(t, "1,234,567", formatNumber(1234567))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))

	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))

	assert.Equal(t, "30 days", formatDurationHuman(30*24*time.Hour))
	assert.Equal(t, "1 day", formatDurationHuman(24*time.Hour))
	assert.Equal(t, "5 hours", formatDurationHuman(5*time.Hour))

	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
