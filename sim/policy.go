package sim

import (
	"context"
	"fmt"
)

// AttemptPolicy picks an eviction candidate but may decline. A declining
// AttemptPolicy returns ok=false so a FallbackChain can try its next
// attempt, or fall through to its terminal TotalPolicy.
type AttemptPolicy interface {
	TryPipeline(ctx context.Context, view *PolicyDataView) (id PipelineID, ok bool, err error)
}

// TotalPolicy must always name a pipeline to evict whenever the store is
// over its limit. Implementations that can legitimately decline (most of
// the catalog) should implement AttemptPolicy instead and be wrapped in a
// FallbackChain with a TotalPolicy tail that cannot decline.
type TotalPolicy interface {
	SelectPipeline(ctx context.Context, view *PolicyDataView) (PipelineID, error)
}

// FallbackChain tries each attempt in order and uses the first one that
// doesn't decline. If every attempt declines, it defers to fallback, which
// must make a choice.
type FallbackChain struct {
	attempts []AttemptPolicy
	fallback TotalPolicy
}

// NewFallbackChain builds a FallbackChain trying attempts in order before
// falling back to fallback.
func NewFallbackChain(fallback TotalPolicy, attempts ...AttemptPolicy) *FallbackChain {
	return &FallbackChain{attempts: attempts, fallback: fallback}
}

// SelectPipeline implements TotalPolicy.
func (f *FallbackChain) SelectPipeline(ctx context.Context, view *PolicyDataView) (PipelineID, error) {
	for _, attempt := range f.attempts {
		id, ok, err := attempt.TryPipeline(ctx, view)
		if err != nil {
			return 0, err
		}
		if ok {
			return id, nil
		}
	}
	return f.fallback.SelectPipeline(ctx, view)
}

// noCandidatesError is returned by catalog TotalPolicy implementations when
// the resident set is empty, which should never happen while
// SimulationState.Cleanup is looping (an empty store can't be over its
// limit), but is reported rather than panicking if it ever does.
type noCandidatesError struct {
	policy string
}

func (e *noCandidatesError) Error() string {
	return fmt.Sprintf("policy %s: no resident pipelines to choose from", e.policy)
}
