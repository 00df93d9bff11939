// Package activity turns raw AFK, window and stopwatch event streams into
// calendar views.
//
// A run merges the not-afk spans of the AFK stream, keeps only the parts of
// window and task events that fall inside them, heals small tracker gaps,
// collapses noisy runs of short events, splits everything at clock-hour
// boundaries and files the pieces into a time view (year, month, ISO week,
// day, hour) and a task view (task label, then the same calendar path).
//
// Not-afk seconds per hour are keyed by hour of day only, so the AFK share of
// an hour summary is computed from every day in the window that has the same
// hour number. Multi-day windows therefore under-report AFK time; this is a
// known limitation kept for output compatibility.
package activity
