// Package runner executes collector sets on a bounded worker pool. Every
// selected collector yields exactly one outcome regardless of individual
// failures, timeouts, or run-level cancellation.
package runner

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"audit-sentry/internal/collector"
)

const (
	DefaultTaskTimeout = 60 * time.Second
	DefaultCancelGrace = 5 * time.Second
)

// Options configures one pool round.
type Options struct {
	// Concurrency bounds the worker pool; <= 0 means host parallelism.
	Concurrency int
	// TaskTimeout bounds each callable invocation.
	TaskTimeout time.Duration
	// CancelGrace is how long in-flight callables may keep running after
	// run-level cancellation before being recorded as cancelled.
	CancelGrace time.Duration
	// OnProgress, if set, receives a monotonically increasing completed
	// count out of the total selected. Called from the collection loop,
	// never concurrently.
	OnProgress func(done, total int)
	// OnOutcome, if set, receives each outcome as it completes, before the
	// final slice is returned. Called from the collection loop.
	OnOutcome func(collector.Outcome)
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.NumCPU()
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = DefaultTaskTimeout
	}
	if o.CancelGrace <= 0 {
		o.CancelGrace = DefaultCancelGrace
	}
	return o
}

// Run executes entries concurrently and returns one outcome per entry, in
// completion order. Collector failures never abort sibling tasks; only the
// caller's ctx stops the round early, and even then every entry is still
// accounted for.
func Run(ctx context.Context, entries []collector.Entry, opts Options) []collector.Outcome {
	opts = opts.withDefaults()

	total := len(entries)
	if total == 0 {
		return nil
	}

	jobs := make(chan collector.Entry)
	results := make(chan collector.Outcome)

	var wg sync.WaitGroup
	workers := opts.Concurrency
	if workers > total {
		workers = total
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				if ctx.Err() != nil {
					results <- cancelledOutcome(entry, "cancelled before start")
					continue
				}
				results <- runOne(ctx, entry, opts)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, entry := range entries {
			jobs <- entry
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]collector.Outcome, 0, total)
	done := 0
	for outcome := range results {
		outcomes = append(outcomes, outcome)
		done++
		if opts.OnOutcome != nil {
			opts.OnOutcome(outcome)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(done, total)
		}
	}
	return outcomes
}

type callResult struct {
	payload collector.Payload
	err     error
}

// runOne invokes a single callable bounded by the task timeout. The callable
// runs in its own goroutine so a callable that ignores its context cannot
// stall the pool past timeout+grace.
func runOne(ctx context.Context, entry collector.Entry, opts Options) collector.Outcome {
	start := time.Now()

	tctx, cancel := context.WithTimeout(ctx, opts.TaskTimeout)
	defer cancel()

	ch := make(chan callResult, 1)
	go func() {
		payload, err := entry.Run(tctx)
		ch <- callResult{payload: payload, err: err}
	}()

	select {
	case res := <-ch:
		return finish(entry, start, res)
	case <-tctx.Done():
		if ctx.Err() != nil {
			// Run-level cancellation: let the callable finish within the
			// grace period, otherwise abandon it.
			select {
			case res := <-ch:
				return finish(entry, start, res)
			case <-time.After(opts.CancelGrace):
				return cancelledOutcome(entry, "abandoned after cancellation grace period")
			}
		}
		return failedOutcome(entry, start, collector.ErrTimeout,
			errors.Newf("exceeded task timeout of %s", opts.TaskTimeout), nil)
	}
}

func finish(entry collector.Entry, start time.Time, res callResult) collector.Outcome {
	if res.err != nil {
		kind := collector.ErrCollectorFailure
		switch {
		case errors.Is(res.err, context.DeadlineExceeded):
			kind = collector.ErrTimeout
		case errors.Is(res.err, context.Canceled):
			kind = collector.ErrCancelled
		}
		return failedOutcome(entry, start, kind, res.err, errors.UnwrapOnce(res.err))
	}
	payload := res.payload
	return collector.Outcome{
		Spec:        entry.Spec,
		Status:      collector.StatusOK,
		Payload:     &payload,
		Duration:    time.Since(start),
		CompletedAt: time.Now().UTC(),
	}
}

func failedOutcome(entry collector.Entry, start time.Time, kind collector.ErrorKind, err, cause error) collector.Outcome {
	failure := &collector.Failure{Kind: kind, Message: err.Error()}
	if cause != nil && cause.Error() != err.Error() {
		failure.Cause = cause.Error()
	}
	return collector.Outcome{
		Spec:        entry.Spec,
		Status:      collector.StatusFailed,
		Err:         failure,
		Duration:    time.Since(start),
		CompletedAt: time.Now().UTC(),
	}
}

func cancelledOutcome(entry collector.Entry, msg string) collector.Outcome {
	return collector.Outcome{
		Spec:        entry.Spec,
		Status:      collector.StatusFailed,
		Err:         &collector.Failure{Kind: collector.ErrCancelled, Message: msg},
		CompletedAt: time.Now().UTC(),
	}
}
