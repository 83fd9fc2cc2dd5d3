package sim

import "context"

// PolicyDataView is the read-only façade SimulationState hands to the
// configured eviction policy during Cleanup. It exposes exactly the state a
// policy is allowed to depend on: the resident set, per-id access/merge
// history, and lazily-fetched size/status/age, all routed back through the
// owning DataSource's memo caches.
type PolicyDataView struct {
	state *SimulationState
	data  *DataSource
}

// NewPolicyDataView builds a view over state's current resident set.
func NewPolicyDataView(state *SimulationState, data *DataSource) *PolicyDataView {
	return &PolicyDataView{state: state, data: data}
}

// StoredPipelines returns every resident id in insertion order. The caller
// must not mutate the returned slice.
func (v *PolicyDataView) StoredPipelines() []PipelineID {
	return v.state.storedPipelines.Ordered()
}

// First returns the oldest-resident id, the FIFO candidate.
func (v *PolicyDataView) First() (PipelineID, bool) {
	return v.state.storedPipelines.First()
}

// Last returns the newest-resident id, the LIFO candidate.
func (v *PolicyDataView) Last() (PipelineID, bool) {
	return v.state.storedPipelines.Last()
}

// Timestamp returns the timestamp of the event currently being processed.
func (v *PolicyDataView) Timestamp() int64 {
	return v.state.latestTimestamp()
}

// Age returns how long id has been resident, in the same units as event
// timestamps. Zero if id is not resident.
func (v *PolicyDataView) Age(id PipelineID) int64 {
	storedAt, ok := v.state.storageTimes[id]
	if !ok {
		return 0
	}
	return v.state.latestTimestamp() - storedAt
}

// LastAccess returns the timestamp of id's most recent recorded access and
// whether id has ever been accessed at all. Policies that rank by recency
// (LRU, MRU) must skip pipelines with ok == false rather than treating them
// as either oldest or newest.
func (v *PolicyDataView) LastAccess(id PipelineID) (timestamp int64, ok bool) {
	history := v.state.accesses[id]
	if len(history) == 0 {
		return 0, false
	}
	return history[len(history)-1], true
}

// AccessCount returns the number of accesses recorded against id, including
// accesses made while it was not resident.
func (v *PolicyDataView) AccessCount(id PipelineID) int {
	return len(v.state.accesses[id])
}

// IsMerged reports whether id's owning branch received a merge action while
// id has been resident.
func (v *PolicyDataView) IsMerged(id PipelineID) bool {
	return v.state.merges.Contains(id)
}

// Size returns id's sampled byte size, sourced from the shared DataSource
// memo cache.
func (v *PolicyDataView) Size(ctx context.Context, id PipelineID) (int64, error) {
	return v.data.SizeOfPipeline(ctx, id)
}

// Status returns id's parsed pipeline status.
func (v *PolicyDataView) Status(ctx context.Context, id PipelineID) (PipelineStatus, error) {
	return v.data.StatusOfPipeline(ctx, id)
}
