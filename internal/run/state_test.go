package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransitionHappyPath(t *testing.T) {
	order := []State{
		StateInit, StateDirectoryReady, StateMetadataLogged,
		StateLocalCollected, StateAwsCollected, StateSummarized,
		StateArchived, StateDone,
	}
	for i := 1; i < len(order); i++ {
		assert.NoError(t, ValidateTransition(order[i-1], order[i]), "%s -> %s", order[i-1], order[i])
	}
}

func TestFailedReachableFromAnyNonTerminalState(t *testing.T) {
	for from := range allowedTransitions {
		if from.Terminal() {
			continue
		}
		assert.NoError(t, ValidateTransition(from, StateFailed), "%s -> failed", from)
	}
}

func TestTerminalStatesDoNotAdvance(t *testing.T) {
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.Error(t, ValidateTransition(StateDone, StateFailed))
	assert.Error(t, ValidateTransition(StateFailed, StateInit))
}

func TestNoSkippingStages(t *testing.T) {
	assert.Error(t, ValidateTransition(StateInit, StateSummarized))
	assert.Error(t, ValidateTransition(StateDirectoryReady, StateLocalCollected))
	assert.Error(t, ValidateTransition(StateAwsCollected, StateArchived))
}

func TestValidateUnknownState(t *testing.T) {
	err := ValidateTransition(State("bogus"), StateDone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}
