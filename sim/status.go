package sim

import "fmt"

// PipelineStatus is the tagged status of a CI pipeline, derived by matching
// a lowercase token from the event store.
type PipelineStatus int

const (
	Pending PipelineStatus = iota
	Running
	Success
	Failed
	Cancelled
	Skipped
	Created
	Manual
)

func (s PipelineStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Cancelled:
		return "canceled"
	case Skipped:
		return "skipped"
	case Created:
		return "created"
	case Manual:
		return "manual"
	default:
		return fmt.Sprintf("PipelineStatus(%d)", int(s))
	}
}

// ParsePipelineStatus converts a raw status token from the event store into
// a PipelineStatus. Unknown tokens are a fatal data-quality error: the
// caller must not substitute a default, since that would silently bias
// every policy that branches on status.
func ParsePipelineStatus(source string) (PipelineStatus, error) {
	switch source {
	case "pending":
		return Pending, nil
	case "running":
		return Running, nil
	case "success":
		return Success, nil
	case "failed":
		return Failed, nil
	case "canceled":
		return Cancelled, nil
	case "skipped":
		return Skipped, nil
	case "created":
		return Created, nil
	case "manual":
		return Manual, nil
	default:
		return 0, &DataIntegrityError{Reason: fmt.Sprintf("unexpected pipeline status %q", source)}
	}
}
