package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildView constructs a SimulationState with the given resident ids
// inserted in order, plus whatever access/merge/size fixtures the caller
// has already seeded on ds, and returns the PolicyDataView over it.
func buildView(ds *DataSource, ids ...PipelineID) (*SimulationState, *PolicyDataView) {
	state := NewSimulationState(ds, noopPolicy{}, 1<<62)
	for _, id := range ids {
		state.storedPipelines.Insert(id)
	}
	state.latestEvent = &Event{Timestamp: 1000}
	return state, NewPolicyDataView(state, ds)
}

func TestFIFOPolicyPicksOldestInserted(t *testing.T) {
	ds := newTestDataSource(t)
	_, view := buildView(ds, 3, 1, 2)

	id, err := NewFIFOPolicy().SelectPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, PipelineID(3), id)
}

func TestLIFOPolicyPicksNewestInserted(t *testing.T) {
	ds := newTestDataSource(t)
	_, view := buildView(ds, 3, 1, 2)

	id, err := NewLIFOPolicy().SelectPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, PipelineID(2), id)
}

func TestRandomPolicyOnlyPicksResidentIDs(t *testing.T) {
	ds := newTestDataSource(t)
	_, view := buildView(ds, 1, 2, 3)

	rng := NewPartitionedRNG(NewSimulationKey(42))
	policy := NewRandomPolicy(rng, 0)

	resident := map[PipelineID]bool{1: true, 2: true, 3: true}
	for i := 0; i < 20; i++ {
		id, err := policy.SelectPipeline(context.Background(), view)
		require.NoError(t, err)
		assert.True(t, resident[id])
	}
}

func TestLRUPolicyDeclinesWithoutAnyAccess(t *testing.T) {
	ds := newTestDataSource(t)
	_, view := buildView(ds, 1, 2)

	_, ok, err := NewLRUPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.False(t, ok, "LRU must decline when no resident pipeline has ever been accessed")
}

func TestMRUPolicyDeclinesWithoutAnyAccess(t *testing.T) {
	ds := newTestDataSource(t)
	_, view := buildView(ds, 1, 2)

	_, ok, err := NewMRUPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLRUPolicyPicksOldestAccessed(t *testing.T) {
	ds := newTestDataSource(t)
	state, view := buildView(ds, 1, 2, 3)
	state.accesses[1] = []int64{100}
	state.accesses[2] = []int64{50}
	// pipeline 3 never accessed: must be ignored entirely, not treated as
	// oldest.

	id, ok, err := NewLRUPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PipelineID(2), id)
}

func TestMRUPolicyPicksNewestAccessed(t *testing.T) {
	ds := newTestDataSource(t)
	state, view := buildView(ds, 1, 2, 3)
	state.accesses[1] = []int64{100}
	state.accesses[2] = []int64{50, 300}
	state.accesses[3] = []int64{10}

	id, ok, err := NewMRUPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PipelineID(2), id)
}

func TestMRURangedPolicyExcludesBelowThreshold(t *testing.T) {
	ds := newTestDataSource(t)
	state, view := buildView(ds, 1, 2, 3)
	state.accesses[1] = []int64{10, 20, 30} // 3 accesses, last=30
	state.accesses[2] = []int64{500}        // 1 access, below threshold
	state.accesses[3] = []int64{5, 6}       // 2 accesses, last=6

	policy := NewMRURangedPolicy(2)
	id, ok, err := policy.TryPipeline(context.Background(), view)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PipelineID(1), id, "pipeline 2 is excluded despite its higher last-access timestamp")
}

func TestMRURangedPolicyDeclinesWhenNoneQualify(t *testing.T) {
	ds := newTestDataSource(t)
	state, view := buildView(ds, 1, 2)
	state.accesses[1] = []int64{10}
	state.accesses[2] = []int64{20}

	policy := NewMRURangedPolicy(5)
	_, ok, err := policy.TryPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLargestAndSmallestFirstPolicies(t *testing.T) {
	ds := newTestDataSource(t)
	seedJobSizeSamples(t, ds, "env", "small", 10, minJobSizeSamples)
	seedJobSizeSamples(t, ds, "env", "large", 90, minJobSizeSamples)
	seedPipeline(t, ds, 1, "env:small", "pending", "")
	seedPipeline(t, ds, 2, "env:large", "pending", "")

	_, view := buildView(ds, 1, 2)

	largest, ok, err := NewLargestFirstPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PipelineID(2), largest)

	smallest, ok, err := NewSmallestFirstPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PipelineID(1), smallest)
}

func TestBranchMergedPolicy(t *testing.T) {
	ds := newTestDataSource(t)
	state, view := buildView(ds, 1, 2, 3)

	_, ok, err := NewBranchMergedPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.False(t, ok, "declines when nothing is merged")

	state.merges.Insert(2)
	id, ok, err := NewBranchMergedPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PipelineID(2), id)
}

func TestStatusPolicyTwoTier(t *testing.T) {
	ds := newTestDataSource(t)
	seedPipeline(t, ds, 1, "env:suite", "running", "")
	seedPipeline(t, ds, 2, "env:suite", "failed", "")
	seedPipeline(t, ds, 3, "env:suite", "success", "")

	_, view := buildView(ds, 1, 2, 3)
	id, ok, err := NewStatusPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PipelineID(3), id, "prefers the oldest-resident Success pipeline")

	_, view = buildView(ds, 1, 2)
	id, ok, err = NewStatusPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PipelineID(1), id, "falls back to the oldest non-Failed pipeline")

	_, view = buildView(ds, 2)
	_, ok, err = NewStatusPolicy().TryPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.False(t, ok, "declines when every resident pipeline has Failed")
}
