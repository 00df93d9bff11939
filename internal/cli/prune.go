package cli

import (
	"context"
	"fmt"
	"time"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	e, err := newEnv(c.globals, envNeeds{store: true})
	if err != nil {
		return err
	}
	defer e.close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv prunes the cache of the given env (for testing).
func (c *PruneCommand) executeWithEnv(ctx context.Context, e *env) error {
	retention := time.Duration(e.cfg.Retention.Days) * 24 * time.Hour
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
		retention = d
	}
	if retention <= 0 {
		return fmt.Errorf("retention period must be positive")
	}
	cutoff := e.now().Add(-retention)

	var n int64
	var err error
	if c.DryRun {
		n, err = e.store.CountExpired(ctx, cutoff)
	} else {
		n, err = e.store.PruneExpired(ctx, cutoff)
	}
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	if !c.DryRun {
		e.logger.Info("pruned cache", "events", n, "cutoff", cutoff.UTC().Format(time.RFC3339))
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]interface{}{
			"dry_run": c.DryRun,
			"events":  n,
			"cutoff":  cutoff.UTC().Format(time.RFC3339),
		}, true)
	}

	if c.DryRun {
		fmt.Printf("Would prune %s events older than %s\n", formatNumber(n), formatDurationHuman(retention))
		return nil
	}
	fmt.Printf("Pruned %s events older than %s\n", formatNumber(n), formatDurationHuman(retention))
	return nil
}
