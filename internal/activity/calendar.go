package activity

import (
	"fmt"
	"sort"
	"time"
)

// CalendarKey addresses one hour bucket: year, month (1-12), ISO-8601 week,
// day of month and hour (0-23), all in the processing location.
type CalendarKey struct {
	Year  int
	Month int
	Week  int
	Day   int
	Hour  int
}

// KeyFor returns the calendar key of t in loc. Year is the calendar year of
// the date, not the ISO week-numbering year.
func KeyFor(t time.Time, loc *time.Location) CalendarKey {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	_, week := lt.ISOWeek()
	return CalendarKey{
		Year:  lt.Year(),
		Month: int(lt.Month()),
		Week:  week,
		Day:   lt.Day(),
		Hour:  lt.Hour(),
	}
}

// Less orders keys chronologically. Week is derived from the date and is
// not consulted.
func (k CalendarKey) Less(o CalendarKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Month != o.Month {
		return k.Month < o.Month
	}
	if k.Day != o.Day {
		return k.Day < o.Day
	}
	return k.Hour < o.Hour
}

// Start returns the first instant of the bucket in loc.
func (k CalendarKey) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(k.Year, time.Month(k.Month), k.Day, k.Hour, 0, 0, 0, loc)
}

func (k CalendarKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:00 (W%02d)", k.Year, k.Month, k.Day, k.Hour, k.Week)
}

func sortKeys(keys []CalendarKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
