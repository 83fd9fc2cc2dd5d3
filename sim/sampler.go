package sim

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// minJobSizeSamples is the minimum population size required before the
// sampler will draw from a (environment, testSuite) distribution. Below
// this threshold reproducibility would be dominated by a handful of
// outliers rather than representative of the population.
const minJobSizeSamples = 31

// splitJob splits a "environment:testSuite" token into its two halves,
// stripping an "_reorg" suffix from the environment so that
// "env_reorg:suite" samples from the same population as "env:suite".
func splitJob(job string) (environment, testSuite string, err error) {
	parts := strings.SplitN(job, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unable to split job name: %q", job)
	}
	environment = strings.ReplaceAll(parts[0], "_reorg", "")
	testSuite = parts[1]
	return environment, testSuite, nil
}

// JobSizeSampler deterministically maps a job token to a sampled byte size
// drawn uniformly from the historical population for its (environment,
// testSuite) pair. A single seeded PRNG backs every draw, so the order in
// which callers invoke Sample is significant for whole-run determinism (see
// DataSource.PopulateSizeSamples).
type JobSizeSampler struct {
	mu            sync.Mutex
	rng           *PartitionedRNG
	distributions map[string]distuv.Uniform
}

// NewJobSizeSampler creates a sampler backed by the sampler subsystem of rng.
func NewJobSizeSampler(rng *PartitionedRNG) *JobSizeSampler {
	return &JobSizeSampler{
		rng:           rng,
		distributions: make(map[string]distuv.Uniform),
	}
}

func (s *JobSizeSampler) sampleCount(ctx context.Context, db *sql.DB, environment, testSuite string) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM JobSizeSample WHERE environment=? AND testSuite=?`,
		environment, testSuite,
	).Scan(&count)
	if err != nil {
		return 0, &StoreUnavailableError{Err: err}
	}
	return count, nil
}

func (s *JobSizeSampler) ensureDistribution(ctx context.Context, db *sql.DB, job string) error {
	if _, ok := s.distributions[job]; ok {
		return nil
	}

	environment, testSuite, err := splitJob(job)
	if err != nil {
		return err
	}

	count, err := s.sampleCount(ctx, db, environment, testSuite)
	if err != nil {
		return err
	}
	if count < minJobSizeSamples {
		return &InsufficientSamplesError{Job: job}
	}

	s.distributions[job] = distuv.Uniform{
		Min: 0,
		Max: float64(count),
		Src: s.rng.ForSubsystem(SubsystemSampler),
	}
	return nil
}

// Sample draws a reproducible byte size for the given "environment:suite"
// job token. Returns *InsufficientSamplesError if the population for that
// job has fewer than 31 historical observations.
func (s *JobSizeSampler) Sample(ctx context.Context, db *sql.DB, job string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDistribution(ctx, db, job); err != nil {
		return 0, err
	}

	dist := s.distributions[job]
	index := int64(math.Floor(dist.Rand()))

	environment, testSuite, err := splitJob(job)
	if err != nil {
		return 0, err
	}

	var bytes int64
	err = db.QueryRowContext(ctx,
		`SELECT bytes FROM JobSizeSample WHERE environment=? AND testSuite=? ORDER BY id LIMIT 1 OFFSET ?`,
		environment, testSuite, index,
	).Scan(&bytes)
	if err != nil {
		return 0, &StoreUnavailableError{Err: err}
	}
	return bytes, nil
}
