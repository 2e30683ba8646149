package run

import "github.com/cockroachdb/errors"

// State is a stage of one collection run. A run advances strictly forward;
// Failed is terminal and reachable from any non-terminal state.
type State string

const (
	StateInit           State = "init"
	StateDirectoryReady State = "directory_ready"
	StateMetadataLogged State = "metadata_logged"
	StateLocalCollected State = "local_collected"
	StateAwsCollected   State = "aws_collected"
	StateSummarized     State = "summarized"
	StateArchived       State = "archived"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

var allowedTransitions = map[State]map[State]struct{}{
	StateInit:           {StateDirectoryReady: {}, StateFailed: {}},
	StateDirectoryReady: {StateMetadataLogged: {}, StateFailed: {}},
	StateMetadataLogged: {StateLocalCollected: {}, StateFailed: {}},
	StateLocalCollected: {StateAwsCollected: {}, StateFailed: {}},
	StateAwsCollected:   {StateSummarized: {}, StateFailed: {}},
	StateSummarized:     {StateArchived: {}, StateFailed: {}},
	StateArchived:       {StateDone: {}, StateFailed: {}},
	StateDone:           {},
	StateFailed:         {},
}

func ValidateState(s State) error {
	if _, ok := allowedTransitions[s]; !ok {
		return errors.Newf("invalid run state: %q", s)
	}
	return nil
}

func ValidateTransition(from, to State) error {
	if err := ValidateState(from); err != nil {
		return err
	}
	if err := ValidateState(to); err != nil {
		return err
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return errors.Newf("invalid run transition: %s -> %s", from, to)
	}
	return nil
}

// Terminal reports whether a run in this state can advance further.
func (s State) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}
