package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decliningAttempt always declines, used to exercise a FallbackChain whose
// attempts all miss.
type decliningAttempt struct{}

func (decliningAttempt) TryPipeline(context.Context, *PolicyDataView) (PipelineID, bool, error) {
	return 0, false, nil
}

func TestFallbackChainEmptyAttemptListDegeneratesToTerminal(t *testing.T) {
	ds := newTestDataSource(t)
	_, view := buildView(ds, 1, 2, 3)

	chain := NewFallbackChain(NewFIFOPolicy())
	id, err := chain.SelectPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, PipelineID(1), id)
}

func TestFallbackChainFallsThroughDecliningAttempts(t *testing.T) {
	ds := newTestDataSource(t)
	_, view := buildView(ds, 1, 2)

	chain := NewFallbackChain(NewFIFOPolicy(), decliningAttempt{}, decliningAttempt{})
	id, err := chain.SelectPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, PipelineID(1), id)
}

func TestFallbackChainUsesFirstNonDecliningAttempt(t *testing.T) {
	ds := newTestDataSource(t)
	state, view := buildView(ds, 1, 2, 3)
	state.merges.Insert(2)

	chain := NewFallbackChain(NewFIFOPolicy(), NewBranchMergedPolicy())
	id, err := chain.SelectPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, PipelineID(2), id, "BranchMerged finds a candidate so FIFO never runs")
}

// alwaysStalePolicy names a pipeline that is never actually removable
// (already absent from the resident set), so occupied storage never drops
// and Cleanup must eventually report a livelock.
type alwaysStalePolicy struct {
	staleID PipelineID
}

func (p alwaysStalePolicy) SelectPipeline(context.Context, *PolicyDataView) (PipelineID, error) {
	return p.staleID, nil
}

func TestCleanupLivelockGuard(t *testing.T) {
	ds := newTestDataSource(t)
	state := NewSimulationState(ds, alwaysStalePolicy{staleID: 999}, 10)
	state.occupiedStorage = 1000
	state.latestEvent = &Event{Timestamp: 0}

	err := state.Cleanup(context.Background())
	require.Error(t, err)
	var livelock *PolicyLivelockError
	require.ErrorAs(t, err, &livelock)
	assert.Equal(t, cleanupLivelockLimit+1, livelock.Iterations)
}
