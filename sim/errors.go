package sim

import "fmt"

// DataIntegrityError reports a fatal data-quality problem in the event
// store: an unknown status token or a mandatory row that could not be
// found. The run must terminate rather than guess.
type DataIntegrityError struct {
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error: %s", e.Reason)
}

// InsufficientSamplesError reports that a job token's historical sample
// population is too small (< 31 rows) to draw a reproducible size from.
// This is non-fatal at the engine level: the owning pipeline is excluded
// from the simulation rather than aborting the run.
type InsufficientSamplesError struct {
	Job string
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("not enough size samples available for job %q", e.Job)
}

// StoreUnavailableError wraps a connection or I/O failure against the event
// store. Always fatal; the underlying error is preserved via Unwrap.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("event store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// PolicyLivelockError reports that Cleanup failed to shrink occupied
// storage below the configured limit after 10,000 eviction iterations.
// Safeguards against a policy that refuses to pick a removable candidate.
type PolicyLivelockError struct {
	Iterations int
}

func (e *PolicyLivelockError) Error() string {
	return fmt.Sprintf("policy did not manage to get below the storage limit after %d iterations", e.Iterations)
}
