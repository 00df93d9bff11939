package activity

import (
	"context"

	"github.com/google/uuid"
)

// Runner executes Process off the caller's goroutine. Every call works on
// its own deep copy of the input and shares nothing with other calls.
type Runner struct {
	opts Options
	// newRunID labels the findings of one run.
	newRunID func() string
}

// NewRunner creates a Runner using opts for every invocation.
func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts, newRunID: func() string { return uuid.New().String() }}
}

// RunInfo describes one completed run.
type RunInfo struct {
	ID string
}

type runOutcome struct {
	result *Result
	err    error
}

// Run processes a private copy of in on a new goroutine. If ctx ends first,
// Run returns ctx.Err() and the late result is discarded.
func (r *Runner) Run(ctx context.Context, in Input) (*Result, RunInfo, error) {
	info := RunInfo{ID: r.newRunID()}
	if err := in.Validate(); err != nil {
		return nil, info, err
	}
	if err := ctx.Err(); err != nil {
		return nil, info, err
	}

	opts := r.opts
	if opts.Observer != nil {
		opts.Observer = runObserver{id: info.ID, next: opts.Observer}
	}
	private := in.Clone()

	done := make(chan runOutcome, 1)
	go func() {
		res, err := Process(ctx, private, opts)
		done <- runOutcome{result: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, info, ctx.Err()
	case out := <-done:
		return out.result, info, out.err
	}
}

// runObserver tags findings with the run they belong to.
type runObserver struct {
	id   string
	next Observer
}

type runIDKey struct{}

// RunIDFromContext returns the run id attached by Runner, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok
}

func (o runObserver) Observe(ctx context.Context, f Finding) {
	o.next.Observe(context.WithValue(ctx, runIDKey{}, o.id), f)
}
