package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runnerr0/awcal/internal/activity"
	"github.com/runnerr0/awcal/internal/storage"
)

// eventsJSON is the JSON output structure for the events command.
type eventsJSON struct {
	Count  int              `json:"count"`
	Offset int              `json:"offset"`
	Events []activity.Event `json:"events"`
}

// eventJSON is the JSON output of events --id.
type eventJSON struct {
	Bucket string         `json:"bucket"`
	Hash   uint32         `json:"hash"`
	Event  activity.Event `json:"event"`
}

// Execute implements the go-flags Commander interface for EventsCommand.
func (c *EventsCommand) Execute(args []string) error {
	e, err := newEnv(c.globals, envNeeds{store: true})
	if err != nil {
		return err
	}
	defer e.close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv lists cached events using the given env (for testing).
func (c *EventsCommand) executeWithEnv(ctx context.Context, e *env) error {
	loc, err := e.cfg.Location()
	if err != nil {
		return err
	}

	if c.ID != "" {
		return c.showEvent(ctx, e, loc)
	}

	q := storage.EventQuery{Bucket: c.Bucket, Hash: c.Hash, Limit: c.Limit, Offset: c.Offset}
	if c.Kind != "" {
		q.Kind, err = activity.ParseKind(c.Kind)
		if err != nil {
			return err
		}
	}

	now := e.now()
	if c.Since != "" {
		q.Since, err = parseTimeArg(c.Since, now, loc)
		if err != nil {
			return fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
	}
	if c.Until != "" {
		q.Until, err = parseTimeArg(c.Until, now, loc)
		if err != nil {
			return fmt.Errorf("invalid --until value %q: %w", c.Until, err)
		}
	}

	events, err := e.store.LoadEvents(ctx, q)
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(eventsJSON{Count: len(events), Offset: c.Offset, Events: events}, true)
	}

	if len(events) == 0 {
		if c.Since != "" {
			fmt.Printf("No cached events (since %s)\n", c.Since)
		} else {
			fmt.Println("No cached events")
		}
		return nil
	}

	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
			formatClock(ev.Duration),
			ev.Kind.String(),
			truncate(eventLabel(ev), 70),
		})
	}
	fmt.Print(renderTable([]string{"START", "DURATION", "KIND", "EVENT"}, rows))

	word := "events"
	if len(events) == 1 {
		word = "event"
	}
	fmt.Println(styleDim.Render(fmt.Sprintf("%d %s", len(events), word)))
	return nil
}

// showEvent prints one cached event with the identity hash it is grouped
// under, so its siblings can be listed with --hash.
func (c *EventsCommand) showEvent(ctx context.Context, e *env, loc *time.Location) error {
	if c.Bucket == "" {
		return fmt.Errorf("--id requires --bucket")
	}
	ev, err := e.store.GetEvent(ctx, c.Bucket, c.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no cached event %q in bucket %s", c.ID, c.Bucket)
		}
		return fmt.Errorf("reading event: %w", err)
	}

	var hash uint32
	if ev.Kind != activity.KindAFK {
		hash = e.cfg.TitleRules().SanitizeTitle(*ev).Hash
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(eventJSON{Bucket: c.Bucket, Hash: hash, Event: *ev}, true)
	}

	fmt.Println(renderHeader(fmt.Sprintf("Event %s", ev.ID)))
	rows := [][]string{
		{"Bucket", c.Bucket},
		{"Kind", ev.Kind.String()},
		{"Start", ev.Timestamp.In(loc).Format("2006-01-02 15:04:05")},
		{"Duration", formatClock(ev.Duration)},
		{"Event", eventLabel(*ev)},
	}
	if hash != 0 {
		rows = append(rows, []string{"Hash", fmt.Sprintf("%d", hash)})
	}
	for _, r := range rows {
		fmt.Printf("  %-10s %s\n", r[0], r[1])
	}
	if hash != 0 {
		fmt.Println(styleDim.Render(fmt.Sprintf("List events with the same identity: awcal events --hash %d", hash)))
	}
	return nil
}
