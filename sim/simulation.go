package sim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Simulation replays a DataSource's event stream against a SimulationState
// governed by a single eviction policy, recording a DataPoint to Statistics
// every time a pipeline finishes.
type Simulation struct {
	Key PipelineRunKey

	dataSource *DataSource
	state      *SimulationState
	statistics *Statistics

	log *logrus.Entry
}

// PipelineRunKey identifies one configured run (label + storage limit) for
// logging.
type PipelineRunKey struct {
	Label        string
	StorageLimit int64
}

// NewSimulation builds a Simulation over dataSource using policy as the
// eviction strategy once occupied storage exceeds storageLimit.
func NewSimulation(key PipelineRunKey, dataSource *DataSource, policy TotalPolicy) *Simulation {
	return &Simulation{
		Key:        key,
		dataSource: dataSource,
		state:      NewSimulationState(dataSource, policy, key.StorageLimit),
		statistics: NewStatistics(),
		log:        logrus.WithField("run", key.Label),
	}
}

// State exposes the run's SimulationState, primarily for sim/mlexport.
func (s *Simulation) State() *SimulationState { return s.state }

// Statistics returns the run's accumulated output series.
func (s *Simulation) Statistics() *Statistics { return s.statistics }

// Run replays every event from the DataSource in order: Process, then
// Cleanup, then (for PipelineFinished events) a Statistics snapshot. Run
// consumes the full event stream and returns once it is exhausted or ctx is
// canceled.
func (s *Simulation) Run(ctx context.Context) error {
	cursor, err := s.dataSource.Events(ctx)
	if err != nil {
		return fmt.Errorf("run %s: %w", s.Key.Label, err)
	}
	defer cursor.Close()

	var processed int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		event, ok, err := cursor.Next()
		if err != nil {
			return fmt.Errorf("run %s: %w", s.Key.Label, err)
		}
		if !ok {
			break
		}

		if err := s.state.Process(ctx, event); err != nil {
			return fmt.Errorf("run %s: processing event %d: %w", s.Key.Label, event.ID, err)
		}
		if err := s.state.Cleanup(ctx); err != nil {
			return fmt.Errorf("run %s: cleanup after event %d: %w", s.Key.Label, event.ID, err)
		}
		if event.Kind == EventPipelineFinished {
			s.statistics.Record(s.state)
		}

		processed++
	}

	s.log.WithFields(logrus.Fields{
		"events":  processed,
		"deleted": s.state.DeletedCount(),
		"stored":  s.state.StoredPipelineCount(),
	}).Info("run complete")
	return nil
}
