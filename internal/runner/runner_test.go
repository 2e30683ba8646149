package runner

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audit-sentry/internal/collector"
)

func textEntry(name string, fn collector.Callable) collector.Entry {
	return collector.Entry{
		Spec: collector.Spec{Name: name, Category: collector.CategoryLocal, Kind: collector.KindText},
		Run:  fn,
	}
}

func okEntry(name, output string) collector.Entry {
	return textEntry(name, func(ctx context.Context) (collector.Payload, error) {
		return collector.Payload{Text: []byte(output)}, nil
	})
}

func failEntry(name, msg string) collector.Entry {
	return textEntry(name, func(ctx context.Context) (collector.Payload, error) {
		return collector.Payload{}, errors.New(msg)
	})
}

func byName(outcomes []collector.Outcome) map[string]collector.Outcome {
	m := make(map[string]collector.Outcome, len(outcomes))
	for _, o := range outcomes {
		m[o.Spec.Name] = o
	}
	return m
}

func TestRunOneOutcomePerSpec(t *testing.T) {
	entries := []collector.Entry{
		okEntry("a", "aa"),
		failEntry("b", "broken"),
		okEntry("c", "cc"),
		failEntry("d", "also broken"),
	}

	outcomes := Run(context.Background(), entries, Options{Concurrency: 3})
	require.Len(t, outcomes, len(entries))

	m := byName(outcomes)
	require.Len(t, m, len(entries), "every spec yields exactly one outcome")
	assert.True(t, m["a"].OK())
	assert.True(t, m["c"].OK())
	assert.False(t, m["b"].OK())
	assert.False(t, m["d"].OK())
}

func TestRunFailureDoesNotCorruptSiblings(t *testing.T) {
	entries := []collector.Entry{
		failEntry("bad", "credential error"),
		okEntry("good", "payload intact"),
	}

	outcomes := Run(context.Background(), entries, Options{Concurrency: 2})
	m := byName(outcomes)

	good := m["good"]
	require.True(t, good.OK())
	require.NotNil(t, good.Payload)
	assert.Equal(t, "payload intact", string(good.Payload.Text))
	assert.Nil(t, good.Err)

	bad := m["bad"]
	require.False(t, bad.OK())
	require.NotNil(t, bad.Err)
	assert.Equal(t, collector.ErrCollectorFailure, bad.Err.Kind)
	assert.Contains(t, bad.Err.Message, "credential error")
	assert.Nil(t, bad.Payload, "a failed outcome never has a payload")
}

func TestRunTaskTimeout(t *testing.T) {
	stuck := textEntry("stuck", func(ctx context.Context) (collector.Payload, error) {
		<-ctx.Done()
		return collector.Payload{}, ctx.Err()
	})

	outcomes := Run(context.Background(), []collector.Entry{stuck}, Options{
		Concurrency: 1,
		TaskTimeout: 20 * time.Millisecond,
	})
	require.Len(t, outcomes, 1)
	require.False(t, outcomes[0].OK())
	assert.Equal(t, collector.ErrTimeout, outcomes[0].Err.Kind)
}

func TestRunTimeoutAbandonsDeafCallable(t *testing.T) {
	// The callable ignores its context entirely; the pool must still move
	// on once the timeout fires.
	deaf := textEntry("deaf", func(ctx context.Context) (collector.Payload, error) {
		time.Sleep(10 * time.Second)
		return collector.Payload{Text: []byte("too late")}, nil
	})

	start := time.Now()
	outcomes := Run(context.Background(), []collector.Entry{deaf}, Options{
		Concurrency: 1,
		TaskTimeout: 20 * time.Millisecond,
	})
	require.Len(t, outcomes, 1)
	assert.Equal(t, collector.ErrTimeout, outcomes[0].Err.Kind)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries := []collector.Entry{okEntry("a", "x"), okEntry("b", "y"), okEntry("c", "z")}
	outcomes := Run(ctx, entries, Options{Concurrency: 2})
	require.Len(t, outcomes, len(entries))
	for _, o := range outcomes {
		assert.Equal(t, collector.ErrCancelled, o.Err.Kind, "collector %s", o.Spec.Name)
	}
}

func TestRunCancellationGraceAllowsFinish(t *testing.T) {
	finishing := textEntry("finishing", func(ctx context.Context) (collector.Payload, error) {
		<-ctx.Done()
		// Wraps up promptly once cancelled, well inside the grace period.
		return collector.Payload{Text: []byte("flushed")}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	outcomes := Run(ctx, []collector.Entry{finishing}, Options{
		Concurrency: 1,
		TaskTimeout: 10 * time.Second,
		CancelGrace: time.Second,
	})
	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].OK())
	assert.Equal(t, "flushed", string(outcomes[0].Payload.Text))
}

func TestRunCancellationGraceExpires(t *testing.T) {
	hung := textEntry("hung", func(ctx context.Context) (collector.Payload, error) {
		time.Sleep(10 * time.Second)
		return collector.Payload{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	outcomes := Run(ctx, []collector.Entry{hung}, Options{
		Concurrency: 1,
		TaskTimeout: 10 * time.Second,
		CancelGrace: 50 * time.Millisecond,
	})
	require.Len(t, outcomes, 1)
	assert.Equal(t, collector.ErrCancelled, outcomes[0].Err.Kind)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunProgressMonotonic(t *testing.T) {
	entries := []collector.Entry{
		okEntry("a", "1"), failEntry("b", "x"), okEntry("c", "3"), okEntry("d", "4"),
	}

	var dones []int
	Run(context.Background(), entries, Options{
		Concurrency: 4,
		OnProgress: func(done, total int) {
			assert.Equal(t, len(entries), total)
			dones = append(dones, done)
		},
	})

	require.Len(t, dones, len(entries))
	assert.True(t, sort.IntsAreSorted(dones), "completed count must increase monotonically: %v", dones)
	assert.Equal(t, len(entries), dones[len(dones)-1])
}

func TestRunConcurrencyEquivalence(t *testing.T) {
	entries := []collector.Entry{
		okEntry("a", "alpha"),
		okEntry("b", "beta"),
		failEntry("c", "gamma failed"),
		okEntry("d", "delta"),
		failEntry("e", "epsilon failed"),
		okEntry("f", "zeta"),
	}

	serial := byName(Run(context.Background(), entries, Options{Concurrency: 1}))
	parallel := byName(Run(context.Background(), entries, Options{Concurrency: 8}))

	require.Len(t, parallel, len(serial))
	for name, s := range serial {
		p, ok := parallel[name]
		require.True(t, ok, "missing outcome for %s", name)
		assert.Equal(t, s.Status, p.Status, name)
		if s.OK() {
			assert.Equal(t, s.Payload.Text, p.Payload.Text, name)
		} else {
			assert.Equal(t, s.Err.Kind, p.Err.Kind, name)
			assert.Equal(t, s.Err.Message, p.Err.Message, name)
		}
	}
}

func TestRunEmptySet(t *testing.T) {
	outcomes := Run(context.Background(), nil, Options{})
	assert.Empty(t, outcomes)
}

func TestRunOnOutcomeSeesEveryResult(t *testing.T) {
	entries := []collector.Entry{okEntry("a", "1"), failEntry("b", "2")}

	var seen []string
	Run(context.Background(), entries, Options{
		Concurrency: 2,
		OnOutcome: func(o collector.Outcome) {
			seen = append(seen, o.Spec.Name)
		},
	})
	sort.Strings(seen)
	assert.Equal(t, []string{"a", "b"}, seen)
}
