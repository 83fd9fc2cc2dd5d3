package mlexport

import (
	"context"
	"errors"

	"github.com/cachesim/cachesim/sim"
)

// hugeStorageLimit is set far beyond any real event log's total artifact
// size, so Cleanup's occupied-storage check never trips during export.
const hugeStorageLimit int64 = 9000 * 1000 * 1000 * 1000 * 1000 * 1000 // 9000 PB

// dummyPolicy backs the SimulationState driving feature extraction. It is
// never expected to run: since hugeStorageLimit is unreachable, Cleanup
// never calls SelectPipeline. If it somehow is invoked, that means occupied
// storage overflowed or the limit was misconfigured, so it reports an error
// rather than picking an arbitrary pipeline.
type dummyPolicy struct{}

func (dummyPolicy) SelectPipeline(_ context.Context, _ *sim.PolicyDataView) (sim.PipelineID, error) {
	return 0, errors.New("mlexport: eviction policy invoked unexpectedly under an unreachable storage limit")
}
