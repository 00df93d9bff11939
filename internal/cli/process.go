package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/awcal/internal/activity"
)

// Execute implements the go-flags Commander interface for ProcessCommand.
func (c *ProcessCommand) Execute(args []string) error {
	e, err := newEnv(c.globals, sourceNeeds(c.Source, c.Input))
	if err != nil {
		return err
	}
	defer e.close()

	return c.executeWithEnv(context.Background(), e)
}

// executeWithEnv runs process against the given env (for testing).
func (c *ProcessCommand) executeWithEnv(ctx context.Context, e *env) error {
	run, err := runPipeline(ctx, e, c.WindowFlags, c.ProcessingFlags)
	if err != nil {
		return err
	}
	return writeJSON(run.res, c.Pretty)
}

// pipelineRun is one processed window.
type pipelineRun struct {
	res   *activity.Result
	opts  activity.Options
	since time.Time
	until time.Time
}

// runPipeline resolves the window, collects input and runs one processing
// pass.
func runPipeline(ctx context.Context, e *env, wf WindowFlags, pf ProcessingFlags) (*pipelineRun, error) {
	opts, err := e.processingOptions(pf, wf.Timezone)
	if err != nil {
		return nil, err
	}

	since, until, err := resolveWindow(wf.Since, wf.Until, e.now(), opts.Location)
	if err != nil {
		return nil, err
	}

	res, err := processWindow(ctx, e, opts, wf.Source, wf.Input, since, until)
	if err != nil {
		return nil, err
	}
	return &pipelineRun{res: res, opts: opts, since: since, until: until}, nil
}

// processWindow collects input for [since, until) and processes it.
func processWindow(ctx context.Context, e *env, opts activity.Options, source, inputPath string, since, until time.Time) (*activity.Result, error) {
	in, err := e.collectInput(ctx, source, inputPath, since, until)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, info, err := activity.NewRunner(opts).Run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("process events: %w", err)
	}

	e.logger.Info("processed events",
		"run_id", info.ID,
		"afk", len(in.AFK),
		"window", len(in.Window),
		"stopwatch", len(in.Stopwatch),
		"hours", res.TimeView.Len(),
		"task_entries", res.TaskView.Len(),
		"healed", res.Healed,
		"elapsed", time.Since(start).String(),
	)
	return res, nil
}
