package sim

import (
	"context"
	"math/rand"
)

// FIFOPolicy evicts the longest-resident pipeline: the head of the
// insertion-ordered resident set.
type FIFOPolicy struct{}

func NewFIFOPolicy() *FIFOPolicy { return &FIFOPolicy{} }

func (p *FIFOPolicy) SelectPipeline(_ context.Context, view *PolicyDataView) (PipelineID, error) {
	id, ok := view.First()
	if !ok {
		return 0, &noCandidatesError{policy: "fifo"}
	}
	return id, nil
}

// LIFOPolicy evicts the most-recently-resident pipeline: the tail of the
// insertion-ordered resident set.
type LIFOPolicy struct{}

func NewLIFOPolicy() *LIFOPolicy { return &LIFOPolicy{} }

func (p *LIFOPolicy) SelectPipeline(_ context.Context, view *PolicyDataView) (PipelineID, error) {
	id, ok := view.Last()
	if !ok {
		return 0, &noCandidatesError{policy: "lifo"}
	}
	return id, nil
}

// RandomPolicy evicts a uniformly random resident pipeline. Its PRNG is
// drawn from a dedicated "policy:random:N" subsystem so that multiple
// RandomPolicy instances in the same simulation key, and different
// simulation keys, never share a random stream.
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandomPolicy builds a RandomPolicy backed by position's dedicated
// subsystem of rng. position must be unique across every RandomPolicy
// constructed against the same PartitionedRNG so their draws stay
// independent.
func NewRandomPolicy(rng *PartitionedRNG, position int) *RandomPolicy {
	return &RandomPolicy{rng: rng.ForSubsystem(SubsystemRandomPolicy(position))}
}

func (p *RandomPolicy) SelectPipeline(_ context.Context, view *PolicyDataView) (PipelineID, error) {
	pipelines := view.StoredPipelines()
	if len(pipelines) == 0 {
		return 0, &noCandidatesError{policy: "random"}
	}
	return pipelines[p.rng.Intn(len(pipelines))], nil
}

// LRUPolicy is an AttemptPolicy: it evicts the resident pipeline with the
// oldest last access, declining if no resident pipeline has ever been
// accessed.
type LRUPolicy struct{}

func NewLRUPolicy() *LRUPolicy { return &LRUPolicy{} }

func (p *LRUPolicy) TryPipeline(_ context.Context, view *PolicyDataView) (PipelineID, bool, error) {
	return selectByLastAccess(view, true)
}

// MRUPolicy is an AttemptPolicy: it evicts the resident pipeline with the
// most recent last access, declining if no resident pipeline has ever been
// accessed.
type MRUPolicy struct{}

func NewMRUPolicy() *MRUPolicy { return &MRUPolicy{} }

func (p *MRUPolicy) TryPipeline(_ context.Context, view *PolicyDataView) (PipelineID, bool, error) {
	return selectByLastAccess(view, false)
}

func selectByLastAccess(view *PolicyDataView, oldest bool) (PipelineID, bool, error) {
	var (
		best      PipelineID
		bestFound bool
		bestTime  int64
	)
	for _, id := range view.StoredPipelines() {
		access, ok := view.LastAccess(id)
		if !ok {
			continue
		}
		if !bestFound || (oldest && access < bestTime) || (!oldest && access > bestTime) {
			best, bestTime, bestFound = id, access, true
		}
	}
	return best, bestFound, nil
}

// MRURangedPolicy is an AttemptPolicy: among resident pipelines that have
// been accessed at least k times, it evicts the one with the most recent
// last access. Pipelines with fewer than k recorded accesses are excluded
// entirely rather than merely deprioritized, so the eviction pressure
// concentrates on pipelines that have actually proven hot.
type MRURangedPolicy struct {
	k int
}

// NewMRURangedPolicy builds an MRURangedPolicy requiring at least k
// recorded accesses to qualify as a candidate.
func NewMRURangedPolicy(k int) *MRURangedPolicy {
	return &MRURangedPolicy{k: k}
}

func (p *MRURangedPolicy) TryPipeline(_ context.Context, view *PolicyDataView) (PipelineID, bool, error) {
	var (
		best      PipelineID
		bestFound bool
		bestTime  int64
	)
	for _, id := range view.StoredPipelines() {
		if view.AccessCount(id) < p.k {
			continue
		}
		access, ok := view.LastAccess(id)
		if !ok {
			continue
		}
		if !bestFound || access > bestTime {
			best, bestTime, bestFound = id, access, true
		}
	}
	return best, bestFound, nil
}

// LargestFirstPolicy is an AttemptPolicy: it evicts the resident pipeline
// with the largest sampled size.
type LargestFirstPolicy struct{}

func NewLargestFirstPolicy() *LargestFirstPolicy { return &LargestFirstPolicy{} }

func (p *LargestFirstPolicy) TryPipeline(ctx context.Context, view *PolicyDataView) (PipelineID, bool, error) {
	return selectBySize(ctx, view, false)
}

// SmallestFirstPolicy is an AttemptPolicy: it evicts the resident pipeline
// with the smallest sampled size.
type SmallestFirstPolicy struct{}

func NewSmallestFirstPolicy() *SmallestFirstPolicy { return &SmallestFirstPolicy{} }

func (p *SmallestFirstPolicy) TryPipeline(ctx context.Context, view *PolicyDataView) (PipelineID, bool, error) {
	return selectBySize(ctx, view, true)
}

func selectBySize(ctx context.Context, view *PolicyDataView, smallest bool) (PipelineID, bool, error) {
	pipelines := view.StoredPipelines()
	if len(pipelines) == 0 {
		return 0, false, nil
	}

	best := pipelines[0]
	bestSize, err := view.Size(ctx, best)
	if err != nil {
		return 0, false, err
	}
	for _, id := range pipelines[1:] {
		size, err := view.Size(ctx, id)
		if err != nil {
			return 0, false, err
		}
		if (smallest && size < bestSize) || (!smallest && size > bestSize) {
			best = id
			bestSize = size
		}
	}
	return best, true, nil
}

// BranchMergedPolicy is an AttemptPolicy: it evicts the longest-resident
// merged pipeline, declining when none of the resident pipelines have been
// merged yet. Intended as an early attempt in a FallbackChain so merged
// (no-longer-needed) artifacts are reclaimed before anything else.
type BranchMergedPolicy struct{}

func NewBranchMergedPolicy() *BranchMergedPolicy { return &BranchMergedPolicy{} }

func (p *BranchMergedPolicy) TryPipeline(_ context.Context, view *PolicyDataView) (PipelineID, bool, error) {
	for _, id := range view.StoredPipelines() {
		if view.IsMerged(id) {
			return id, true, nil
		}
	}
	return 0, false, nil
}

// StatusPolicy is an AttemptPolicy: it first looks for the
// longest-resident successful pipeline; if none exists it falls back to
// the longest-resident pipeline with any status but Failed; if even that
// finds nothing, it declines.
type StatusPolicy struct{}

// NewStatusPolicy builds a StatusPolicy.
func NewStatusPolicy() *StatusPolicy { return &StatusPolicy{} }

func (p *StatusPolicy) TryPipeline(ctx context.Context, view *PolicyDataView) (PipelineID, bool, error) {
	pipelines := view.StoredPipelines()

	for _, id := range pipelines {
		if status, err := view.Status(ctx, id); err == nil && status == Success {
			return id, true, nil
		}
	}

	for _, id := range pipelines {
		if status, err := view.Status(ctx, id); err == nil && status != Failed {
			return id, true, nil
		}
	}

	return 0, false, nil
}
