package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run. Two runs
// with the same SimulationKey and identical configuration MUST produce
// byte-identical CSV output, provided PopulateSizeSamples ran before both
// (see DataSource.PopulateSizeSamples).
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a run-wide seed value.
func NewSimulationKey(seed uint64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemSampler is the RNG subsystem for the JobSizeSampler. Uses the
	// master seed directly, matching the original implementation's
	// JobSizeSampler::new(seed) which owned a single un-partitioned PRNG.
	SubsystemSampler = "sampler"
)

// SubsystemRandomPolicy returns the subsystem name for the Random eviction
// policy at the given position in an algorithm chain. Most chains only use
// one Random policy (position 0); the position disambiguates the
// pathological case of more than one.
func SubsystemRandomPolicy(position int) string {
	return fmt.Sprintf("policy:random:%d", position)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per
// subsystem, derived from a single run-wide seed.
//
// Derivation formula:
//   - For SubsystemSampler: uses the master seed directly (backward
//     compatible with the source's un-partitioned sampler PRNG).
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: ForSubsystem is safe for concurrent use. This matters
// because the sampler subsystem is shared across parallel simulation runs
// (see package sim's concurrency model); the shared instance must be
// mutex-guarded, not merely documented as single-threaded.
type PartitionedRNG struct {
	mu         sync.Mutex
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same subsystem name always returns the same *rand.Rand
// instance (cached). Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	p.mu.Lock()
	defer p.mu.Unlock()

	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	var derivedSeed int64
	if name == SubsystemSampler {
		derivedSeed = int64(p.key)
	} else {
		derivedSeed = int64(p.key) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
