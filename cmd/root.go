// Package cmd implements the cachesim command-line surface: replaying a
// historical CI pipeline event log against configurable eviction policies
// and exporting ML training features from the same event log.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cachesim/cachesim/sim"
	"github.com/cachesim/cachesim/sim/mlexport"
)

var (
	seed              uint64
	databasePath      string
	outputDirectory   string
	logLevel          string
	oneShotFilename   string
	scoringConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "cachesim",
	Short: "Offline cache-eviction simulator for CI pipeline artifacts",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

var oneShotCmd = &cobra.Command{
	Use:   "one-shot <size-limit-gb> <algorithm>...",
	Short: "Run a single algorithm chain against a single storage limit",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sizeLimit, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid size-limit-gb %q: %w", args[0], err)
		}
		specs, err := oneShotSpecifications(sizeLimit, args[1:], outputDirectory, oneShotFilename)
		if err != nil {
			return err
		}
		return runSpecifications(cmd.Context(), databasePath, seed, specs)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <size-limit-gb> <definition>...",
	Short: "Run every algorithm definition against a single storage limit",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sizeLimit, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid size-limit-gb %q: %w", args[0], err)
		}
		specs, err := batchSpecifications(sizeLimit, args[1:], filepath.Join(outputDirectory, "batch"))
		if err != nil {
			return err
		}
		return runSpecifications(cmd.Context(), databasePath, seed, specs)
	},
}

var sizeRampCmd = &cobra.Command{
	Use:   "size-ramp <lower-exponent> <upper-exponent> <definition>...",
	Short: "Run every algorithm definition across a power-of-two range of storage limits",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		lower, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid lower-exponent %q: %w", args[0], err)
		}
		upper, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid upper-exponent %q: %w", args[1], err)
		}
		specs, err := sizeRampSpecifications(uint(lower), uint(upper), args[2:], filepath.Join(outputDirectory, "size-ramp"))
		if err != nil {
			return err
		}
		return runSpecifications(cmd.Context(), databasePath, seed, specs)
	},
}

var generateMLCmd = &cobra.Command{
	Use:   "generate-ml",
	Short: "Export replay-driven per-pipeline ML features",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return generateML(cmd.Context())
	},
}

var generateStaticMLCmd = &cobra.Command{
	Use:   "generate-static-ml",
	Short: "Export static per-pipeline ML features, independent of replay order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return generateStaticML(cmd.Context())
	},
}

func generateML(ctx context.Context) error {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
	dataSource, err := sim.OpenDataSource(databasePath, rng)
	if err != nil {
		return fmt.Errorf("opening data source: %w", err)
	}
	defer dataSource.Close()

	if err := os.MkdirAll(outputDirectory, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	file, err := os.Create(filepath.Join(outputDirectory, "ml-data-reduced.csv"))
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer file.Close()

	progress := NewProgress(os.Stderr, "Generating ML data")
	generator := mlexport.NewGenerator(dataSource)
	generated, err := generator.Generate(ctx, file, progress.Update)
	progress.Finish()
	if err != nil {
		return err
	}
	logrus.WithField("rows", generated).Info("ml export complete")
	return nil
}

func generateStaticML(ctx context.Context) error {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
	dataSource, err := sim.OpenDataSource(databasePath, rng)
	if err != nil {
		return fmt.Errorf("opening data source: %w", err)
	}
	defer dataSource.Close()

	if err := os.MkdirAll(outputDirectory, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	file, err := os.Create(filepath.Join(outputDirectory, "static-ml-data.csv"))
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer file.Close()

	progress := NewProgress(os.Stderr, "Generating static ML data")
	generator := mlexport.NewStaticGenerator(dataSource)
	generated, err := generator.Generate(ctx, file, progress.Update)
	progress.Finish()
	if err != nil {
		return err
	}
	logrus.WithField("rows", generated).Info("static ml export complete")
	return nil
}

// Execute runs the root command, exiting the process with a non-zero
// status on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Uint64VarP(&seed, "seed", "s", 1337, "seed for the simulation and any RNG-based policies")
	rootCmd.PersistentFlags().StringVarP(&databasePath, "database-path", "d", "data/simulation.db", "event store to replay")
	rootCmd.PersistentFlags().StringVarP(&outputDirectory, "output-directory", "o", "data/out/simulation", "directory in which to write CSV output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&scoringConfigPath, "scoring-config", "", "YAML file of scoring dimensions for the SCORE.CUSTOM algorithm")

	oneShotCmd.Flags().StringVarP(&oneShotFilename, "filename", "f", "one_shot.csv", "name of the output file")

	rootCmd.AddCommand(oneShotCmd, batchCmd, sizeRampCmd, generateMLCmd, generateStaticMLCmd)
}
