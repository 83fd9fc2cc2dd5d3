package mlexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cachesim/cachesim/sim"
)

// removeOlderThan is how far back resident pipelines are pruned after each
// processed event, bounding memory use over a long replay. 3 days in event
// timestamp units (assumed seconds).
const removeOlderThan = 60 * 60 * 24 * 3

// ProgressFunc is called after every processed event with the running
// count and (if known) the total event count. total is 0 when unknown.
type ProgressFunc func(processed, total int64)

// Generator replays a DataSource's full event stream and emits one feature
// row per resident pipeline at every PipelineFinished event.
type Generator struct {
	dataSource *sim.DataSource
}

// NewGenerator builds a Generator over dataSource.
func NewGenerator(dataSource *sim.DataSource) *Generator {
	return &Generator{dataSource: dataSource}
}

// dataPoint is one row of the replay-driven feature export.
type dataPoint struct {
	status      sim.PipelineStatus
	size        int64
	merged      bool
	age         int64
	accessCount int
	stillNeeded bool
}

var dataPointHeader = []string{"status", "size", "merged", "age", "accessCount", "stillNeeded"}

func (p dataPoint) row() []string {
	return []string{
		p.status.String(),
		fmt.Sprintf("%d", p.size),
		boolColumn(p.merged),
		fmt.Sprintf("%d", p.age),
		fmt.Sprintf("%d", p.accessCount),
		boolColumn(p.stillNeeded),
	}
}

func boolColumn(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Generate replays every event, writing a dataPoint row for each resident
// pipeline whenever a PipelineFinished event is processed. Returns the
// number of rows written.
func (g *Generator) Generate(ctx context.Context, w io.Writer, progress ProgressFunc) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(dataPointHeader); err != nil {
		return 0, fmt.Errorf("writing ml export header: %w", err)
	}

	total, err := g.dataSource.EventCount(ctx)
	if err != nil {
		return 0, err
	}

	policy := dummyPolicy{}
	state := sim.NewSimulationState(g.dataSource, policy, hugeStorageLimit)

	cursor, err := g.dataSource.Events(ctx)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	futureAccesses := make(map[sim.PipelineID][]int64)
	var processed int64
	var generated int

	for {
		event, ok, err := cursor.Next()
		if err != nil {
			return generated, err
		}
		if !ok {
			break
		}

		if err := state.Process(ctx, event); err != nil {
			return generated, fmt.Errorf("ml export: processing event %d: %w", event.ID, err)
		}

		if event.Kind == sim.EventPipelineFinished {
			points, err := g.collect(ctx, state, futureAccesses)
			if err != nil {
				return generated, err
			}
			for _, point := range points {
				if err := writer.Write(point.row()); err != nil {
					return generated, fmt.Errorf("writing ml export row: %w", err)
				}
				generated++
			}
		}

		if err := state.RemovePipelinesOlderThan(ctx, removeOlderThan); err != nil {
			return generated, fmt.Errorf("ml export: pruning old pipelines: %w", err)
		}

		processed++
		if progress != nil {
			progress(processed, total)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return generated, fmt.Errorf("flushing ml export: %w", err)
	}
	return generated, nil
}

func (g *Generator) collect(ctx context.Context, state *sim.SimulationState, futureAccesses map[sim.PipelineID][]int64) ([]dataPoint, error) {
	latest := state.LatestEvent()
	if latest == nil {
		return nil, fmt.Errorf("ml export: simulation has no latest event")
	}
	timestamp := latest.Timestamp

	view := sim.NewPolicyDataView(state, g.dataSource)
	ids := view.StoredPipelines()
	points := make([]dataPoint, 0, len(ids))

	for _, id := range ids {
		accesses, ok := futureAccesses[id]
		if !ok {
			fetched, err := g.dataSource.AccessesAfterTimestamp(ctx, id, timestamp)
			if err != nil {
				return nil, err
			}
			accesses = fetched
		} else {
			// accesses is ordered newest-first; drop entries that have
			// fallen behind the current timestamp from the stale end.
			for len(accesses) > 0 && accesses[len(accesses)-1] < timestamp {
				accesses = accesses[:len(accesses)-1]
			}
		}
		futureAccesses[id] = accesses

		status, err := view.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		size, err := view.Size(ctx, id)
		if err != nil {
			return nil, err
		}

		points = append(points, dataPoint{
			status:      status,
			size:        size,
			merged:      view.IsMerged(id),
			age:         view.Age(id),
			accessCount: view.AccessCount(id),
			stillNeeded: len(accesses) > 0,
		})
	}

	return points, nil
}
