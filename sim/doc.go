// Package sim implements an offline cache-eviction simulator for CI pipeline
// artifacts.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: the event types that drive replay (PipelineCreated, Access, ...)
//   - state.go: SimulationState.Process / Cleanup, the authoritative store model
//   - simulation.go: the event loop that ties DataSource, SimulationState and
//     Statistics together
//
// # Architecture
//
// A DataSource (datasource.go) is a read-through view over a SQLite-backed
// event store with memoized size/status lookups. A JobSizeSampler
// (sampler.go) deterministically maps job tokens to sampled byte sizes. A
// SimulationState owns the abstract resident set for one run and calls into
// an eviction TotalPolicy (policy.go) whenever it exceeds its storage limit.
// Concrete policies live in catalog.go and scoring.go. sim/mlexport reuses
// SimulationState and DataSource read-only to export ML training features,
// a separate concern from the core engine.
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - AttemptPolicy: may decline to pick an eviction candidate
//   - TotalPolicy: must always pick one when the store is non-empty
//
// FallbackChain and AdditiveScorer are themselves TotalPolicy implementations
// that compose other policies.
package sim
