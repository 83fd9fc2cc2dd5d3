// Reports a short human-readable summary of a finished run.

package sim

import "fmt"

// RunSummary is a final, terminal-facing snapshot of one Simulation run,
// built from its last recorded DataPoint plus counters not carried in the
// CSV series.
type RunSummary struct {
	Label            string
	FinalOccupied    int64
	FinalStoredCount int
	TotalDeleted     uint32
	TotalAccesses    uint32
	TotalMissed      uint32
	FinalMissedFrac  float64
}

// Summary builds a RunSummary from the run's current state and recorded
// statistics. Safe to call once Run has returned.
func (s *Simulation) Summary() RunSummary {
	var finalMissedFrac float64
	if points := s.statistics.Points(); len(points) > 0 {
		finalMissedFrac = points[len(points)-1].MissedFraction
	}

	return RunSummary{
		Label:            s.Key.Label,
		FinalOccupied:    s.state.OccupiedStorage(),
		FinalStoredCount: s.state.StoredPipelineCount(),
		TotalDeleted:     s.state.DeletedCount(),
		TotalAccesses:    s.state.AccessCount(),
		TotalMissed:      s.state.AccessCountMissed(),
		FinalMissedFrac:  finalMissedFrac,
	}
}

// Print displays the summary on stdout. Kept deliberately plain (no
// lipgloss styling) so it reads well when redirected to a log file; styled
// rendering of a batch of summaries belongs to the cmd package.
func (r RunSummary) Print() {
	fmt.Println("=== Run Summary ===")
	fmt.Printf("Run                : %s\n", r.Label)
	fmt.Printf("Final occupied     : %d bytes\n", r.FinalOccupied)
	fmt.Printf("Final stored count : %d\n", r.FinalStoredCount)
	fmt.Printf("Total deleted      : %d\n", r.TotalDeleted)
	fmt.Printf("Total accesses     : %d\n", r.TotalAccesses)
	fmt.Printf("Total missed       : %d\n", r.TotalMissed)
	fmt.Printf("Final missed frac  : %.4f\n", r.FinalMissedFrac)
}
