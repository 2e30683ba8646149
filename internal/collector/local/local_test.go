package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audit-sentry/internal/collector"
)

func TestRegisterBuiltins(t *testing.T) {
	reg := collector.NewRegistry()
	require.NoError(t, Register(reg))

	names := reg.Names(collector.CategoryLocal)
	assert.Equal(t, []string{
		"crontab", "disk_usage", "network", "os_release", "packages", "processes", "uname",
	}, names)

	for _, name := range names {
		e, err := reg.Resolve(collector.CategoryLocal, name)
		require.NoError(t, err)
		assert.Equal(t, collector.KindText, e.Spec.Kind, name)
	}
}

func TestRunCmdCapturesCombinedOutput(t *testing.T) {
	out, err := runCmd(context.Background(), "sh", "-c", "echo visible; echo hidden 1>&2")
	require.NoError(t, err)
	assert.Contains(t, string(out), "visible")
	assert.Contains(t, string(out), "hidden")
}

func TestRunCmdReportsExitError(t *testing.T) {
	out, err := runCmd(context.Background(), "sh", "-c", "echo boom; exit 3")
	require.Error(t, err)
	assert.Contains(t, string(out), "boom")
}

func TestRunCmdHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := runCmd(ctx, "sh", "-c", "sleep 10")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunFirstFallsThroughToSuccess(t *testing.T) {
	out, err := runFirst(context.Background(), []candidate{
		{name: "sh", args: []string{"-c", "exit 1"}},
		{name: "sh", args: []string{"-c", "echo fallback"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "fallback")
}

func TestRunFirstAllCandidatesFail(t *testing.T) {
	_, err := runFirst(context.Background(), []candidate{
		{name: "sh", args: []string{"-c", "exit 1"}},
		{name: "sh", args: []string{"-c", "exit 2"}},
	})
	require.Error(t, err)
}

func TestRunFirstStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runFirst(ctx, []candidate{
		{name: "sh", args: []string{"-c", "exit 1"}},
		{name: "sh", args: []string{"-c", "echo unreachable"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
