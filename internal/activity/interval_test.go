package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iv(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

func TestBuildNotAFKIntervals_FiltersStatusAndDegenerate(t *testing.T) {
	events := []Event{
		afk("1", StatusNotAFK, at(10, 0, 0), 10*time.Minute),
		afk("2", StatusAFK, at(10, 10, 0), 5*time.Minute),
		afk("3", StatusNotAFK, at(10, 15, 0), 0),
	}

	got := BuildNotAFKIntervals(events)
	require.Len(t, got, 1)
	assert.Equal(t, iv(at(10, 0, 0), at(10, 10, 0)), got[0])
}

func TestMergeOverlappingIntervals(t *testing.T) {
	tests := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{"empty", nil, nil},
		{"single", []Interval{iv(at(1, 0, 0), at(2, 0, 0))}, []Interval{iv(at(1, 0, 0), at(2, 0, 0))}},
		{
			"overlapping unsorted",
			[]Interval{iv(at(3, 0, 0), at(4, 0, 0)), iv(at(1, 0, 0), at(2, 0, 0)), iv(at(1, 30, 0), at(3, 30, 0))},
			[]Interval{iv(at(1, 0, 0), at(4, 0, 0))},
		},
		{
			"abutting stay separate",
			[]Interval{iv(at(1, 0, 0), at(2, 0, 0)), iv(at(2, 0, 0), at(3, 0, 0))},
			[]Interval{iv(at(1, 0, 0), at(2, 0, 0)), iv(at(2, 0, 0), at(3, 0, 0))},
		},
		{
			"contained",
			[]Interval{iv(at(1, 0, 0), at(5, 0, 0)), iv(at(2, 0, 0), at(3, 0, 0))},
			[]Interval{iv(at(1, 0, 0), at(5, 0, 0))},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MergeOverlappingIntervals(tc.in))
		})
	}
}

func TestMergeOverlappingIntervals_Idempotent(t *testing.T) {
	in := []Interval{
		iv(at(5, 0, 0), at(6, 0, 0)),
		iv(at(1, 0, 0), at(2, 0, 0)),
		iv(at(1, 59, 0), at(2, 30, 0)),
		iv(at(2, 30, 0), at(3, 0, 0)),
		iv(at(5, 30, 0), at(7, 0, 0)),
	}
	once := MergeOverlappingIntervals(in)
	assert.Equal(t, once, MergeOverlappingIntervals(once))

	for i := 1; i < len(once); i++ {
		assert.False(t, once[i].Start.Before(once[i-1].End), "merged output must not overlap")
	}
}

func TestMergeOverlappingIntervals_DoesNotMutateInput(t *testing.T) {
	in := []Interval{iv(at(3, 0, 0), at(4, 0, 0)), iv(at(1, 0, 0), at(3, 30, 0))}
	snapshot := append([]Interval(nil), in...)
	MergeOverlappingIntervals(in)
	assert.Equal(t, snapshot, in)
}

func TestActiveFragments(t *testing.T) {
	intervals := []Interval{
		iv(at(10, 0, 0), at(10, 5, 0)),
		iv(at(10, 10, 0), at(10, 20, 0)),
		iv(at(11, 0, 0), at(12, 0, 0)),
	}
	e := window("w1", "X", "Y", at(10, 3, 0), 10*time.Minute)

	frags := ActiveFragments(e, intervals)
	require.Len(t, frags, 2)

	assert.Equal(t, at(10, 3, 0), frags[0].Timestamp)
	assert.Equal(t, 2*time.Minute, frags[0].Duration)
	assert.Equal(t, at(10, 10, 0), frags[1].Timestamp)
	assert.Equal(t, 3*time.Minute, frags[1].Duration)

	for _, f := range frags {
		assert.Equal(t, "w1", f.ID)
		assert.Equal(t, "Y", f.Title)
		assert.False(t, f.Timestamp.Before(e.Timestamp))
		assert.False(t, f.End().After(e.End()))
		assert.Less(t, f.Duration, e.Duration)
	}
}

func TestActiveFragments_ZeroLengthIntersectionDropped(t *testing.T) {
	intervals := []Interval{iv(at(10, 0, 0), at(10, 5, 0))}
	e := window("w1", "X", "Y", at(10, 5, 0), time.Minute)
	assert.Empty(t, ActiveFragments(e, intervals))
}

func TestActiveFragments_NoOverlap(t *testing.T) {
	intervals := []Interval{iv(at(8, 0, 0), at(9, 0, 0))}
	e := window("w1", "X", "Y", at(10, 0, 0), time.Minute)
	assert.Empty(t, ActiveFragments(e, intervals))
}

func TestSplitByHour_Coverage(t *testing.T) {
	e := window("w1", "X", "Y", at(9, 45, 30), 2*time.Hour+20*time.Minute)

	frags := SplitByHour(e, time.UTC)
	require.Len(t, frags, 4)

	cursor := e.Timestamp
	for _, f := range frags {
		assert.Equal(t, cursor, f.Timestamp, "fragments must be contiguous")
		assert.Equal(t, f.Timestamp.Hour(), f.End().Add(-time.Nanosecond).Hour(), "fragment must stay within one hour")
		assert.Equal(t, "w1", f.ID)
		cursor = f.End()
	}
	assert.Equal(t, e.End(), cursor)
	assert.Equal(t, 14*time.Minute+30*time.Second, frags[0].Duration)
	assert.Equal(t, time.Hour, frags[1].Duration)
	assert.Equal(t, 5*time.Minute+30*time.Second, frags[3].Duration)
}

func TestSplitByHour_ZeroDuration(t *testing.T) {
	e := window("w1", "X", "Y", at(9, 0, 0), 0)
	assert.Empty(t, SplitByHour(e, time.UTC))
}

func TestSplitByHour_HonoursLocation(t *testing.T) {
	// UTC+05:30 puts the hour boundary at :30 UTC.
	loc := time.FixedZone("IST", 5*3600+1800)
	e := window("w1", "X", "Y", at(10, 0, 0), time.Hour)

	frags := SplitByHour(e, loc)
	require.Len(t, frags, 2)
	assert.Equal(t, 30*time.Minute, frags[0].Duration)
	assert.True(t, at(10, 30, 0).Equal(frags[1].Timestamp))
}

func TestSplitByHour_AggregatedFragments(t *testing.T) {
	members := []Event{
		window("a", "A", "a", at(9, 59, 50), 4*time.Second),
		window("b", "B", "b", at(9, 59, 56), 8*time.Second),
		window("c", "C", "c", at(10, 0, 6), 3*time.Second),
	}
	meta := newMetaEvent(members)

	frags := SplitByHour(meta, time.UTC)
	require.Len(t, frags, 2)

	assert.Equal(t, meta.ID+"_2024-05-06T09:59:50.000Z", frags[0].ID)
	assert.Equal(t, meta.ID+"_2024-05-06T10:00:00.000Z", frags[1].ID)

	require.NotNil(t, frags[0].Aggregate)
	assert.Equal(t, 2, frags[0].Aggregate.EventCount)
	assert.Equal(t, []string{"a", "b"}, ids(frags[0].Aggregate.Originals))
	assert.Equal(t, 2, frags[1].Aggregate.EventCount)
	assert.Equal(t, []string{"b", "c"}, ids(frags[1].Aggregate.Originals))

	// The source meta-event is untouched.
	assert.Equal(t, 3, meta.Aggregate.EventCount)
	assert.Len(t, meta.Aggregate.Originals, 3)
}

func ids(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
