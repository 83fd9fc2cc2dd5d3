package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioFIFOBasic covers end-to-end scenario 1: a 100-byte store,
// two 60-byte pipelines, FIFO eviction. Once the second finishes, the store
// is over limit and FIFO must evict the first (oldest-inserted).
func TestScenarioFIFOBasic(t *testing.T) {
	ds := newTestDataSource(t)
	seedJobSizeSamples(t, ds, "env", "suite", 60, minJobSizeSamples)

	seedPipeline(t, ds, 1, "env:suite", "success", "")
	markPipelineCreatedAt(t, ds, 1, 1)
	seedPipeline(t, ds, 2, "env:suite", "success", "")
	markPipelineCreatedAt(t, ds, 2, 2)

	seedEvent(t, ds, 1, 1, EventPipelineCreated, 1)
	seedEvent(t, ds, 2, 1, EventPipelineFinished, 1)
	seedEvent(t, ds, 3, 2, EventPipelineCreated, 2)
	seedEvent(t, ds, 4, 2, EventPipelineFinished, 2)

	simulation := NewSimulation(PipelineRunKey{Label: "fifo", StorageLimit: 100}, ds, NewFIFOPolicy())
	require.NoError(t, simulation.Run(context.Background()))

	state := simulation.State()
	assert.Equal(t, []PipelineID{2}, state.storedPipelines.Ordered())
	assert.EqualValues(t, 60, state.OccupiedStorage())
	assert.EqualValues(t, 1, state.DeletedCount())
	assert.EqualValues(t, 0, state.AccessCount())
}

// TestScenarioMergedWins covers end-to-end scenario 2: pipeline 1 is
// flagged merged via a MergeRequestEvent on its ref before pipeline 2
// finishes and pushes the store over its limit; MERGED-FIFO must evict the
// merged pipeline 1 rather than falling through to FIFO.
func TestScenarioMergedWins(t *testing.T) {
	ds := newTestDataSource(t)
	seedJobSizeSamples(t, ds, "env", "suite", 60, minJobSizeSamples)

	seedPipeline(t, ds, 1, "env:suite", "success", "feature/a")
	markPipelineCreatedAt(t, ds, 1, 1)
	seedPipeline(t, ds, 2, "env:suite", "success", "feature/b")
	markPipelineCreatedAt(t, ds, 2, 2)

	seedEvent(t, ds, 1, 1, EventPipelineCreated, 1)
	seedEvent(t, ds, 2, 1, EventPipelineFinished, 1)
	seedEvent(t, ds, 3, 2, EventPipelineCreated, 2)
	seedEvent(t, ds, 4, 3, EventMergeRequest, 100)
	seedMergeRequestEvent(t, ds, 100, "feature/a", "merged", "merge")
	seedEvent(t, ds, 5, 4, EventPipelineFinished, 2)

	policy := NewFallbackChain(NewFIFOPolicy(), NewBranchMergedPolicy())

	simulation := NewSimulation(PipelineRunKey{Label: "merged-fifo", StorageLimit: 100}, ds, policy)
	require.NoError(t, simulation.Run(context.Background()))

	state := simulation.State()
	assert.Equal(t, []PipelineID{2}, state.storedPipelines.Ordered(), "pipeline 1 (merged) was evicted")
	assert.Equal(t, 0, state.merges.Len(), "merges no longer contains the evicted pipeline")
}

// TestScenarioLRUFallsThroughToFIFO covers end-to-end scenario 3: with
// neither resident pipeline ever accessed, LRU must decline and the chain
// must fall through to FIFO.
func TestScenarioLRUFallsThroughToFIFO(t *testing.T) {
	ds := newTestDataSource(t)
	seedJobSizeSamples(t, ds, "env", "suite", 60, minJobSizeSamples)

	seedPipeline(t, ds, 1, "env:suite", "success", "")
	markPipelineCreatedAt(t, ds, 1, 1)
	seedPipeline(t, ds, 2, "env:suite", "success", "")
	markPipelineCreatedAt(t, ds, 2, 2)

	seedEvent(t, ds, 1, 1, EventPipelineCreated, 1)
	seedEvent(t, ds, 2, 1, EventPipelineFinished, 1)
	seedEvent(t, ds, 3, 2, EventPipelineCreated, 2)
	seedEvent(t, ds, 4, 2, EventPipelineFinished, 2)

	_, view := buildView(ds, 1, 2)
	_, attemptOK, err := NewLRUPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.False(t, attemptOK, "LRU must decline: neither pipeline has ever been accessed")

	policy := NewFallbackChain(NewFIFOPolicy(), NewLRUPolicy())
	simulation := NewSimulation(PipelineRunKey{Label: "lru-fifo", StorageLimit: 100}, ds, policy)
	require.NoError(t, simulation.Run(context.Background()))

	state := simulation.State()
	assert.Equal(t, []PipelineID{2}, state.storedPipelines.Ordered(), "FIFO fired after LRU declined")
	assert.EqualValues(t, 1, state.DeletedCount())
}

// TestScenarioAccessMissAccounting covers end-to-end scenario 6: a pipeline
// is evicted the instant it finishes (its size alone exceeds the limit),
// and a subsequent access to it counts as both an access and a miss.
func TestScenarioAccessMissAccounting(t *testing.T) {
	ds := newTestDataSource(t)
	seedJobSizeSamples(t, ds, "env", "suite", 30, minJobSizeSamples)

	seedPipeline(t, ds, 1, "env:suite", "success", "")
	markPipelineCreatedAt(t, ds, 1, 1)

	seedEvent(t, ds, 1, 1, EventPipelineCreated, 1)
	seedEvent(t, ds, 2, 1, EventPipelineFinished, 1)
	seedEvent(t, ds, 3, 2, EventAccess, 50)
	seedAccessLog(t, ds, 50, 2, 1, false, false)

	simulation := NewSimulation(PipelineRunKey{Label: "access-miss", StorageLimit: 20}, ds, NewFIFOPolicy())
	require.NoError(t, simulation.Run(context.Background()))

	state := simulation.State()
	assert.Equal(t, 0, state.StoredPipelineCount(), "the only pipeline was evicted the moment it finished")
	assert.EqualValues(t, 1, state.AccessCount())
	assert.EqualValues(t, 1, state.AccessCountMissed())
}
