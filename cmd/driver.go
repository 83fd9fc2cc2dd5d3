package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cachesim/cachesim/sim"
)

// runSpecifications replays every specification against a single shared
// event store, running them concurrently and writing each one's CSV series
// to its configured output path.
//
// databasePath is opened once; PopulateSizeSamples primes its size memo
// cache before any specification starts so concurrent runs never race on
// sampler randomness (see sim package's concurrency model). Each
// specification then gets its own PartitionedRNG seeded from the same
// master seed, matching the property that two runs using the same
// algorithm chain produce the same eviction decisions independent of
// storage limit or scheduling order.
func runSpecifications(ctx context.Context, databasePath string, seed uint64, specs []specification) error {
	masterRNG := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))

	dataSource, err := sim.OpenDataSource(databasePath, masterRNG)
	if err != nil {
		return fmt.Errorf("opening data source: %w", err)
	}
	defer dataSource.Close()

	logrus.Info("pre-populating pipeline size samples")
	totalSize, err := dataSource.PopulateSizeSamples(ctx)
	if err != nil {
		return fmt.Errorf("populating size samples: %w", err)
	}
	eventCount, err := dataSource.EventCount(ctx)
	if err != nil {
		return fmt.Errorf("counting events: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"totalBytes": totalSize,
		"events":     eventCount,
	}).Info("starting simulation batch")

	group, groupCtx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		spec := spec
		group.Go(func() error {
			return runOne(groupCtx, dataSource, seed, spec)
		})
	}
	return group.Wait()
}

func runOne(ctx context.Context, dataSource *sim.DataSource, seed uint64, spec specification) error {
	runID := uuid.New().String()
	log := logrus.WithFields(logrus.Fields{"run": spec.name, "runID": runID})

	runRNG := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
	policy, err := BuildPolicy(spec.algorithms, runRNG)
	if err != nil {
		return fmt.Errorf("run %s: %w", spec.name, err)
	}

	key := sim.PipelineRunKey{Label: spec.name, StorageLimit: spec.storageLimit}
	simulation := sim.NewSimulation(key, dataSource, policy)

	log.Info("run starting")
	if err := simulation.Run(ctx); err != nil {
		return fmt.Errorf("run %s: %w", spec.name, err)
	}

	if err := os.MkdirAll(filepath.Dir(spec.outputPath), 0o755); err != nil {
		return fmt.Errorf("run %s: creating output directory: %w", spec.name, err)
	}
	file, err := os.Create(spec.outputPath)
	if err != nil {
		return fmt.Errorf("run %s: creating output file: %w", spec.name, err)
	}
	defer file.Close()

	if err := simulation.Statistics().WriteCSV(file); err != nil {
		return fmt.Errorf("run %s: writing statistics: %w", spec.name, err)
	}

	simulation.Summary().Print()
	log.WithField("output", spec.outputPath).Info("run finished")
	return nil
}
