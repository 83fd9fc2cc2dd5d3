package cmd

import (
	"fmt"
	"strings"

	"github.com/cachesim/cachesim/sim"
)

// attemptAlgorithmFactories maps an algorithm token to a constructor for an
// AttemptPolicy: a policy allowed to decline, and therefore only valid
// anywhere but last in a "-"-joined algorithm chain.
var attemptAlgorithmFactories = map[string]func(rng *sim.PartitionedRNG, position int) sim.AttemptPolicy{
	"MERGED": func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewBranchMergedPolicy() },
	"LRU":    func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewLRUPolicy() },
	"MRU":    func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewMRUPolicy() },
	"MRU.2":  func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewMRURangedPolicy(2) },
	"MRU.4":  func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewMRURangedPolicy(4) },
	"MRU.8":  func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewMRURangedPolicy(8) },
	"MRU.16": func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewMRURangedPolicy(16) },
	"MRU.32": func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewMRURangedPolicy(32) },
	"MRU.64": func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewMRURangedPolicy(64) },
	"LF":     func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewLargestFirstPolicy() },
	"SF":     func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewSmallestFirstPolicy() },
	"STATUS": func(*sim.PartitionedRNG, int) sim.AttemptPolicy { return sim.NewStatusPolicy() },
}

// fallbackAlgorithmFactories maps an algorithm token to a constructor for a
// TotalPolicy: a policy that can never decline, so it is only valid as the
// last (or only) token in an algorithm chain.
var fallbackAlgorithmFactories = map[string]func(rng *sim.PartitionedRNG, position int) sim.TotalPolicy{
	"RAND":          func(rng *sim.PartitionedRNG, pos int) sim.TotalPolicy { return sim.NewRandomPolicy(rng, pos) },
	"LIFO":          func(*sim.PartitionedRNG, int) sim.TotalPolicy { return sim.NewLIFOPolicy() },
	"FIFO":          func(*sim.PartitionedRNG, int) sim.TotalPolicy { return sim.NewFIFOPolicy() },
	"SCORE.DEFAULT": func(*sim.PartitionedRNG, int) sim.TotalPolicy { return sim.NewDefaultAdditiveScorer() },
	"SCORE":         func(*sim.PartitionedRNG, int) sim.TotalPolicy { return sim.NewTunedAdditiveScorer() },
}

// BuildPolicy parses a "-"-joined algorithm chain such as "MERGED-LRU-FIFO"
// into a FallbackChain: every token but the last must name an
// AttemptPolicy, and the last must name a TotalPolicy. definition must name
// at least one algorithm. rng backs the RAND fallback and any other
// position-sensitive policy in the chain; the fallback gets position 0 and
// the attempts get positions 1, 2, ... left to right, so two such policies
// in the same chain draw from independent subsystems. A fallback token of "SCORE.CUSTOM" is read from
// the --scoring-config file instead of the built-in catalog.
func BuildPolicy(definition string, rng *sim.PartitionedRNG) (*sim.FallbackChain, error) {
	tokens := strings.Split(definition, "-")
	if len(tokens) == 0 || tokens[len(tokens)-1] == "" {
		return nil, fmt.Errorf("algorithm definition %q names no algorithms", definition)
	}

	fallbackToken := tokens[len(tokens)-1]
	var fallback sim.TotalPolicy
	if fallbackToken == "SCORE.CUSTOM" {
		scorer, err := customScorer()
		if err != nil {
			return nil, err
		}
		fallback = scorer
	} else {
		fallbackFactory, ok := fallbackAlgorithmFactories[fallbackToken]
		if !ok {
			return nil, fmt.Errorf("fallback algorithm %q not found", fallbackToken)
		}
		fallback = fallbackFactory(rng, 0)
	}

	attempts := make([]sim.AttemptPolicy, 0, len(tokens)-1)
	randomPosition := 1
	for _, token := range tokens[:len(tokens)-1] {
		factory, ok := attemptAlgorithmFactories[token]
		if !ok {
			return nil, fmt.Errorf("algorithm %q not found", token)
		}
		attempts = append(attempts, factory(rng, randomPosition))
		randomPosition++
	}

	return sim.NewFallbackChain(fallback, attempts...), nil
}

// customScorer loads and builds the AdditiveScorer named by --scoring-config.
func customScorer() (*sim.AdditiveScorer, error) {
	if scoringConfigPath == "" {
		return nil, fmt.Errorf("fallback algorithm \"SCORE.CUSTOM\" requires --scoring-config")
	}
	configs, err := sim.LoadScorerConfigs(scoringConfigPath)
	if err != nil {
		return nil, err
	}
	return sim.BuildAdditiveScorer(configs)
}
