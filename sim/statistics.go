package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// DataPoint is one row of the simulation's output time series, sampled
// whenever a PipelineFinished event is processed.
type DataPoint struct {
	OccupiedStorage   int64
	StoredCount       int
	DeletedCount      uint32
	AccessCount       uint32
	MissedAccessCount uint32
	MissedFraction    float64
}

// Statistics accumulates one DataPoint per PipelineFinished event over the
// lifetime of a Simulation run.
type Statistics struct {
	points []DataPoint
}

// NewStatistics returns an empty Statistics accumulator.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Record snapshots state's current counters as a new DataPoint.
func (s *Statistics) Record(state *SimulationState) {
	var missedFraction float64
	if state.AccessCount() > 0 {
		missedFraction = float64(state.AccessCountMissed()) / float64(state.AccessCount())
	}

	s.points = append(s.points, DataPoint{
		OccupiedStorage:   state.OccupiedStorage(),
		StoredCount:       state.StoredPipelineCount(),
		DeletedCount:      state.DeletedCount(),
		AccessCount:       state.AccessCount(),
		MissedAccessCount: state.AccessCountMissed(),
		MissedFraction:    missedFraction,
	})
}

// Points returns the recorded series in chronological order. The caller
// must not mutate the returned slice.
func (s *Statistics) Points() []DataPoint {
	return s.points
}

// csvHeader is the fixed column order of WriteCSV's output.
var csvHeader = []string{
	"Occupied storage",
	"Stored count",
	"Deleted count",
	"Access count",
	"Missed access count",
	"Missed fraction",
}

// WriteCSV writes the recorded series to w in the fixed column order
// consumed by downstream plotting tools.
func (s *Statistics) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, p := range s.points {
		row := []string{
			strconv.FormatInt(p.OccupiedStorage, 10),
			strconv.Itoa(p.StoredCount),
			strconv.FormatUint(uint64(p.DeletedCount), 10),
			strconv.FormatUint(uint64(p.AccessCount), 10),
			strconv.FormatUint(uint64(p.MissedAccessCount), 10),
			strconv.FormatFloat(p.MissedFraction, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
