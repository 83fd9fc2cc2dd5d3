package sim

// PipelineID identifies a CI pipeline row in the event store. Assigned
// externally and globally unique; monotonically increasing in practice,
// which is why insertion order and id order coincide in the source data.
type PipelineID = int64

// AccessLogEntryID identifies a row in the AccessLog table.
type AccessLogEntryID = int64

// MergeRequestEventID identifies a row in the MergeRequestEvent table.
type MergeRequestEventID = int64
