package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateNames(t *testing.T) {
	assert.Equal(t, "idle", (&IdleState{}).Name())
	assert.Equal(t, "fetching", (&FetchingState{}).Name())
	assert.Equal(t, "classifying", (&ClassifyingState{}).Name())
	assert.Equal(t, "reconciling", (&ReconcilingState{}).Name())
	assert.Equal(t, "writing", (&WritingState{}).Name())
	assert.Equal(t, "completed", (&CompletedState{}).Name())
	assert.Equal(t, "failed", (&FailedState{}).Name())
	assert.Equal(t, "cancelled", (&CancelledState{}).Name())
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&IdleState{}))
	assert.False(t, IsTerminal(&FetchingState{}))
	assert.False(t, IsTerminal(&ClassifyingState{}))
	assert.False(t, IsTerminal(&ReconcilingState{}))
	assert.False(t, IsTerminal(&WritingState{}))
	assert.True(t, IsTerminal(&CompletedState{}))
	assert.True(t, IsTerminal(&FailedState{}))
	assert.True(t, IsTerminal(&CancelledState{}))
}

func TestHappyPathTransitions(t *testing.T) {
	recorder := NewStateRecorder()

	idle := &IdleState{}
	fetching := idle.ToFetching()
	recorder.Record(fetching)
	classifying := fetching.ToClassifying()
	recorder.Record(classifying)
	reconciling := classifying.ToReconciling()
	recorder.Record(reconciling)
	writing := reconciling.ToWriting()
	recorder.Record(writing)
	completed := writing.ToCompleted()
	recorder.Record(completed)

	assert.Equal(t, []string{"fetching", "classifying", "reconciling", "writing", "completed"}, recorder.Path())
}

func TestFailureTransitions(t *testing.T) {
	// Every phase that talks to an external API can fail the run.
	assert.Equal(t, "failed", (&FetchingState{}).ToFailed().Name())
	assert.Equal(t, "failed", (&ReconcilingState{}).ToFailed().Name())
	assert.Equal(t, "failed", (&WritingState{}).ToFailed().Name())
}

func TestCancelTransitions(t *testing.T) {
	assert.Equal(t, "cancelled", (&IdleState{}).ToCancelled().Name())
	assert.Equal(t, "cancelled", (&FetchingState{}).ToCancelled().Name())
	assert.Equal(t, "cancelled", (&ClassifyingState{}).ToCancelled().Name())
	assert.Equal(t, "cancelled", (&ReconcilingState{}).ToCancelled().Name())
	assert.Equal(t, "cancelled", (&WritingState{}).ToCancelled().Name())
}
