package sim

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// cleanupLivelockLimit bounds Cleanup's eviction loop: a policy that cannot
// shrink occupied storage below the limit after this many iterations is
// considered stuck rather than left to spin forever.
const cleanupLivelockLimit = 10_000

// SimulationState is the authoritative in-memory model of the bounded
// artifact store at the current replay time. A run owns its SimulationState
// exclusively; Process and Cleanup execute sequentially on whichever
// goroutine drives that run (see package sim's concurrency model).
type SimulationState struct {
	latestEvent *Event

	dataSource *DataSource
	policy     TotalPolicy

	storageLimit    int64
	occupiedStorage int64
	storedPipelines *orderedPipelineSet

	accessCount       uint32
	accessCountMissed uint32
	deletedCount      uint32

	// accesses records the chronological sequence of access timestamps per
	// pipeline, appended-only.
	accesses map[PipelineID][]int64

	// merges is the subset of storedPipelines whose owning branch received
	// a merge-action MergeRequestEvent while resident. Entries are removed
	// on eviction, preserving merges ⊆ storedPipelines at all times.
	merges *orderedPipelineSet

	// storageTimes maps a resident id to the timestamp of the event that
	// caused its insertion. Its key set always equals storedPipelines.
	storageTimes map[PipelineID]int64
}

// NewSimulationState creates a SimulationState with an empty store.
func NewSimulationState(dataSource *DataSource, policy TotalPolicy, storageLimit int64) *SimulationState {
	return &SimulationState{
		dataSource:      dataSource,
		policy:          policy,
		storageLimit:    storageLimit,
		storedPipelines: newOrderedPipelineSet(),
		accesses:        make(map[PipelineID][]int64),
		merges:          newOrderedPipelineSet(),
		storageTimes:    make(map[PipelineID]int64),
	}
}

// LatestEvent returns the most recently applied event, or nil before the
// first call to Process.
func (s *SimulationState) LatestEvent() *Event { return s.latestEvent }

// OccupiedStorage returns the current occupied byte total.
func (s *SimulationState) OccupiedStorage() int64 { return s.occupiedStorage }

// StorageLimit returns the configured storage limit for this run.
func (s *SimulationState) StorageLimit() int64 { return s.storageLimit }

// StoredPipelineCount returns the number of resident pipelines.
func (s *SimulationState) StoredPipelineCount() int { return s.storedPipelines.Len() }

// AccessCount returns the total number of accesses to populated pipelines
// processed.
func (s *SimulationState) AccessCount() uint32 { return s.accessCount }

// AccessCountMissed returns the number of accesses to non-resident,
// populated pipelines.
func (s *SimulationState) AccessCountMissed() uint32 { return s.accessCountMissed }

// DeletedCount returns the total number of evictions performed by Cleanup.
func (s *SimulationState) DeletedCount() uint32 { return s.deletedCount }

func (s *SimulationState) latestTimestamp() int64 {
	if s.latestEvent == nil {
		return 0
	}
	return s.latestEvent.Timestamp
}

// removePipeline evicts id from the resident set and merges, decrementing
// occupiedStorage by its sampled size if it was actually present.
func (s *SimulationState) removePipeline(ctx context.Context, id PipelineID) (bool, error) {
	wasPresent := s.storedPipelines.Remove(id)
	s.merges.Remove(id)

	if wasPresent {
		size, err := s.dataSource.SizeOfPipeline(ctx, id)
		if err != nil {
			return false, err
		}
		s.occupiedStorage -= size
		s.deletedCount++
		delete(s.storageTimes, id)
	}

	return wasPresent, nil
}

// IsOverLimit reports whether occupied storage exceeds the configured
// limit.
func (s *SimulationState) IsOverLimit() bool {
	return s.occupiedStorage > s.storageLimit
}

// Cleanup repeatedly asks the eviction policy for a pipeline to remove
// while occupied storage exceeds the limit. Returns *PolicyLivelockError if
// 10,000 iterations fail to bring occupied storage back under the limit.
func (s *SimulationState) Cleanup(ctx context.Context) error {
	iterations := 0
	for s.IsOverLimit() {
		view := NewPolicyDataView(s, s.dataSource)
		id, err := s.policy.SelectPipeline(ctx, view)
		if err != nil {
			return err
		}

		if _, err := s.removePipeline(ctx, id); err != nil {
			return err
		}

		iterations++
		if iterations > cleanupLivelockLimit {
			return &PolicyLivelockError{Iterations: iterations}
		}
	}
	return nil
}

// Process applies a single event to the state, per the table in
// SPEC_FULL.md §4.4. latestEvent is updated to event regardless of kind,
// including events that are otherwise dropped or skipped.
func (s *SimulationState) Process(ctx context.Context, event Event) error {
	switch event.Kind {
	case EventMergeRequest:
		if err := s.processMergeRequest(ctx, event); err != nil {
			return err
		}
	case EventAccess:
		if err := s.processAccess(ctx, event); err != nil {
			return err
		}
	case EventPipelineCreated:
		if err := s.processPipelineCreated(ctx, event); err != nil {
			return err
		}
	case EventPipelineFinished:
		if err := s.processPipelineFinished(ctx, event); err != nil {
			return err
		}
	}

	s.latestEvent = &event
	return nil
}

func (s *SimulationState) processMergeRequest(ctx context.Context, event Event) error {
	mr, err := s.dataSource.MergeRequestEvent(ctx, event.Key)
	if err != nil {
		// A missing MR row is non-fatal: logged, the event is otherwise a
		// no-op.
		logrus.WithError(err).WithField("event", event.ID).Warn("merge request event row missing")
		return nil
	}

	if mr.Action != "merge" {
		return nil
	}

	pipelines, err := s.dataSource.PipelinesForRef(ctx, mr.SourceBranch)
	if err != nil {
		logrus.WithError(err).WithField("ref", mr.SourceBranch).Warn("failed to resolve pipelines for ref")
		return nil
	}

	for _, pipeline := range pipelines {
		if s.storedPipelines.Contains(pipeline.ID) {
			s.merges.Insert(pipeline.ID)
		}
	}
	return nil
}

func (s *SimulationState) processAccess(ctx context.Context, event Event) error {
	entry, err := s.dataSource.AccessLogEntry(ctx, event.Key)
	if err != nil {
		logrus.WithError(err).WithField("event", event.ID).Warn("access log entry missing")
		return nil
	}

	populated, err := s.dataSource.PipelineIsPopulated(ctx, entry.Pipeline)
	if err != nil {
		return err
	}
	if !populated {
		return nil
	}

	s.accessCount++
	if !s.storedPipelines.Contains(entry.Pipeline) {
		s.accessCountMissed++
	}
	s.accesses[entry.Pipeline] = append(s.accesses[entry.Pipeline], entry.Timestamp)
	return nil
}

func (s *SimulationState) processPipelineCreated(ctx context.Context, event Event) error {
	_, err := s.dataSource.SizeOfPipeline(ctx, event.Key)
	if err != nil {
		var insufficient *InsufficientSamplesError
		if errors.As(err, &insufficient) {
			// Sizing failed: the event is silently dropped, per spec.
			return nil
		}
		return err
	}

	if !s.storedPipelines.Insert(event.Key) {
		logrus.WithField("pipeline", event.Key).Warn("attempted to store pipeline which is already stored")
		return nil
	}
	s.storageTimes[event.Key] = s.latestTimestamp()
	return nil
}

func (s *SimulationState) processPipelineFinished(ctx context.Context, event Event) error {
	size, err := s.dataSource.SizeOfPipeline(ctx, event.Key)
	if err != nil {
		var insufficient *InsufficientSamplesError
		if errors.As(err, &insufficient) {
			return nil
		}
		return err
	}
	// Occupied storage grows only once a pipeline finishes, not when it is
	// created: artifacts occupy space only after the run actually produces
	// them. Preserved verbatim from the source even though it leaves a
	// window where a pipeline is resident but contributes zero bytes.
	s.occupiedStorage += size
	return nil
}

// RemovePipelinesOlderThan evicts every resident pipeline whose age exceeds
// the given threshold. Used only by sim/mlexport's bulk age-out, never by
// the core replay loop.
func (s *SimulationState) RemovePipelinesOlderThan(ctx context.Context, age int64) error {
	if s.latestEvent == nil {
		return errors.New("simulation has no latest event")
	}
	timestamp := s.latestEvent.Timestamp

	var toRemove []PipelineID
	for _, id := range s.storedPipelines.Ordered() {
		if storageTime, ok := s.storageTimes[id]; ok && timestamp-storageTime > age {
			toRemove = append(toRemove, id)
		}
	}

	for _, id := range toRemove {
		if _, err := s.removePipeline(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
