// sim/event.go
package sim

import "fmt"

// EventKind tags which subsidiary table an Event's Key references. Values
// are fixed to match the external store's integer `kind` column.
type EventKind int

const (
	EventPipelineCreated  EventKind = 0
	EventPipelineFinished EventKind = 1
	EventMergeRequest     EventKind = 2
	EventAccess           EventKind = 3
)

func (k EventKind) String() string {
	switch k {
	case EventPipelineCreated:
		return "PipelineCreated"
	case EventPipelineFinished:
		return "PipelineFinished"
	case EventMergeRequest:
		return "MergeRequestEvent"
	case EventAccess:
		return "Access"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a single row of the replayed event log. Key references a row in
// the subsidiary table appropriate to Kind (see EventKind).
type Event struct {
	ID        int64
	Timestamp int64
	Kind      EventKind
	Key       int64
}
