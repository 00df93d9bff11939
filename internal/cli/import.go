package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/runnerr0/awcal/internal/activity"
)

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	if err := c.validate(); err != nil {
		return err
	}

	e, err := newEnv(c.globals, envNeeds{store: true})
	if err != nil {
		return err
	}
	defer e.close()

	return c.executeWithEnv(context.Background(), e)
}

func (c *ImportCommand) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("--bucket is required for import command")
	}
	if c.Kind == "" {
		return fmt.Errorf("--kind is required for import command")
	}
	return nil
}

// executeWithEnv runs the import against the given env (for testing).
func (c *ImportCommand) executeWithEnv(ctx context.Context, e *env) error {
	if err := c.validate(); err != nil {
		return err
	}
	kind, err := activity.ParseKind(c.Kind)
	if err != nil {
		return err
	}
	if kind == activity.KindAggregated {
		return fmt.Errorf("aggregated events are derived and cannot be imported")
	}

	data, err := c.readInput()
	if err != nil {
		return err
	}

	events, err := activity.DecodeEvents(kind, data)
	if err != nil {
		return fmt.Errorf("decoding events: %w", err)
	}

	saved, err := e.store.SaveEvents(ctx, c.Bucket, events)
	if err != nil {
		return fmt.Errorf("storing events: %w", err)
	}
	e.logger.Info("imported events", "bucket", c.Bucket, "kind", kind.String(), "events", saved)

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]interface{}{
			"bucket":   c.Bucket,
			"kind":     kind.String(),
			"imported": saved,
		}, true)
	}

	fmt.Printf("Imported %s %s events into %s\n", formatNumber(int64(saved)), kind, c.Bucket)
	return nil
}

func (c *ImportCommand) readInput() ([]byte, error) {
	if c.File != "" && c.File != "-" {
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("reading import file: %w", err)
		}
		return data, nil
	}

	r := c.stdin
	if r == nil {
		r = os.Stdin
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return data, nil
}
