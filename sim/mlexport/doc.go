// Package mlexport reconstructs two feature-extraction passes dropped from
// the distilled specification but present in the original implementation:
// a replay-driven export of per-pipeline features at every PipelineFinished
// event, and a static export over every pipeline independent of replay
// order. Both are read-only consumers of sim.DataSource and sim.SimulationState;
// neither ever triggers a real eviction decision.
package mlexport
