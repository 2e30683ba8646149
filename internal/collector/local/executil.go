package local

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/cockroachdb/errors"
)

// candidate is one command in a fallback chain. Distros differ in which
// inspection tools they ship, so several collectors try a list in order.
type candidate struct {
	name string
	args []string
}

// runCmd runs one command and returns its combined stdout and stderr.
func runCmd(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	return combined.Bytes(), err
}

// runFirst returns the output of the first candidate that exits zero.
// Context errors abort the chain instead of falling through to the next
// candidate.
func runFirst(ctx context.Context, cands []candidate) ([]byte, error) {
	for _, cand := range cands {
		out, err := runCmd(ctx, cand.name, cand.args...)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, errors.New("no candidate command succeeded")
}
