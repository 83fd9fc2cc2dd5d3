package mlexport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/cachesim/cachesim/sim"
)

// StaticGenerator exports one feature row per pipeline, independent of
// replay order: every pipeline's own createdAt stands in for "time of
// insertion" rather than a simulated storage time.
type StaticGenerator struct {
	dataSource *sim.DataSource
}

// NewStaticGenerator builds a StaticGenerator over dataSource.
func NewStaticGenerator(dataSource *sim.DataSource) *StaticGenerator {
	return &StaticGenerator{dataSource: dataSource}
}

var staticHeader = []string{"status", "size", "duration", "merge_after", "access_count", "no_longer_needed_after"}

// Generate writes one row per populated pipeline. mergeAfter is always 0:
// the source data has no reliable way to attribute a merge event to a
// specific pipeline outside of full replay, so the static export leaves it
// as a placeholder column rather than omitting it (matching the original
// output schema downstream tooling expects).
func (g *StaticGenerator) Generate(ctx context.Context, w io.Writer, progress ProgressFunc) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(staticHeader); err != nil {
		return 0, fmt.Errorf("writing static ml export header: %w", err)
	}

	pipelines, err := g.dataSource.AllPipelines(ctx)
	if err != nil {
		return 0, err
	}

	var generated int64
	total := int64(len(pipelines))

	for _, pipeline := range pipelines {
		createdAt := int64(0)
		if pipeline.CreatedAt.Valid {
			createdAt = pipeline.CreatedAt.Int64
		}

		accesses, err := g.dataSource.AccessesAfterTimestamp(ctx, pipeline.ID, createdAt)
		if err != nil {
			return int(generated), err
		}

		size, err := g.dataSource.SizeOfPipeline(ctx, pipeline.ID)
		if err != nil {
			var insufficient *sim.InsufficientSamplesError
			if errors.As(err, &insufficient) {
				continue
			}
			return int(generated), err
		}

		var noLongerNeededAfter int64
		if len(accesses) > 0 {
			noLongerNeededAfter = accesses[0]
		}

		row := []string{
			pipeline.RawStatus,
			fmt.Sprintf("%d", size),
			fmt.Sprintf("%d", pipeline.Duration),
			"0",
			fmt.Sprintf("%d", len(accesses)),
			fmt.Sprintf("%d", noLongerNeededAfter),
		}
		if err := writer.Write(row); err != nil {
			return int(generated), fmt.Errorf("writing static ml export row: %w", err)
		}

		generated++
		if progress != nil {
			progress(generated, total)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return int(generated), fmt.Errorf("flushing static ml export: %w", err)
	}
	return int(generated), nil
}
