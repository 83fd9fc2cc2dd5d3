package sim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Pipeline is a row of the Pipeline table, queried lazily.
type Pipeline struct {
	ID        PipelineID
	Jobs      string // ";"-separated "environment:testSuite" tokens
	CreatedAt sql.NullInt64
	Duration  int64
	RawStatus string
	Ref       string
}

// MergeRequestEvent is a row of the MergeRequestEvent table.
type MergeRequestEvent struct {
	SourceBranch string
	Status       string // opened, closed, merged
	Action       string // merge, ...
}

// AccessLogEntry is a row of the AccessLog table.
type AccessLogEntry struct {
	Timestamp int64
	Pipeline  PipelineID
}

// DataSource is a thin, cacheable read view over the event store. It
// memoizes pipeline size and status lookups process-wide so repeated
// queries (e.g. from PolicyDataView during Cleanup) don't re-hit SQLite or
// re-consume sampler randomness.
type DataSource struct {
	db      *sql.DB
	sampler *JobSizeSampler

	mu     sync.Mutex
	sizes  map[PipelineID]int64
	status map[PipelineID]PipelineStatus
}

// OpenDataSource opens (and migrates, if needed) a SQLite-backed event
// store at path, using rng's sampler subsystem to seed the JobSizeSampler.
func OpenDataSource(path string, rng *PartitionedRNG) (*DataSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, &StoreUnavailableError{Err: err}
	}
	// Concurrent runs share this *sql.DB; database/sql's own pool handles
	// admitting that concurrency, so it is sized generously rather than
	// serialized to one connection.
	db.SetMaxOpenConns(64)

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, &StoreUnavailableError{Err: fmt.Errorf("running schema statement: %w", err)}
		}
	}

	return &DataSource{
		db:      db,
		sampler: NewJobSizeSampler(rng),
		sizes:   make(map[PipelineID]int64),
		status:  make(map[PipelineID]PipelineStatus),
	}, nil
}

// Close releases the underlying database connection pool.
func (d *DataSource) Close() error {
	return d.db.Close()
}

// EventCount returns the total number of rows in SimulationEvent.
func (d *DataSource) EventCount(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM SimulationEvent`).Scan(&count)
	if err != nil {
		return 0, &StoreUnavailableError{Err: err}
	}
	return count, nil
}

// Events returns a cursor over every event in ascending timestamp order,
// ties broken by the store's natural id order. The caller must call Close
// on the returned EventCursor.
func (d *DataSource) Events(ctx context.Context) (*EventCursor, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, timestamp, kind, key FROM SimulationEvent ORDER BY timestamp, id`)
	if err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}
	return &EventCursor{rows: rows}, nil
}

// EventCursor iterates a DataSource's event stream without loading it all
// into memory at once.
type EventCursor struct {
	rows *sql.Rows
}

// Next advances the cursor. It returns (event, true, nil) while rows
// remain, and (zero, false, nil) once exhausted.
func (c *EventCursor) Next() (Event, bool, error) {
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return Event{}, false, &StoreUnavailableError{Err: err}
		}
		return Event{}, false, nil
	}
	var e Event
	var kind int
	if err := c.rows.Scan(&e.ID, &e.Timestamp, &kind, &e.Key); err != nil {
		return Event{}, false, &StoreUnavailableError{Err: err}
	}
	e.Kind = EventKind(kind)
	return e, true, nil
}

// Close releases the underlying SQL rows.
func (c *EventCursor) Close() error {
	return c.rows.Close()
}

// MergeRequestEvent looks up a single MergeRequestEvent row by event id.
func (d *DataSource) MergeRequestEvent(ctx context.Context, id MergeRequestEventID) (MergeRequestEvent, error) {
	var e MergeRequestEvent
	err := d.db.QueryRowContext(ctx,
		`SELECT sourceBranch, status, action FROM MergeRequestEvent WHERE eventID=?`, id,
	).Scan(&e.SourceBranch, &e.Status, &e.Action)
	if err != nil {
		return MergeRequestEvent{}, &StoreUnavailableError{Err: err}
	}
	return e, nil
}

// AccessLogEntry looks up a single AccessLog row by id.
func (d *DataSource) AccessLogEntry(ctx context.Context, id AccessLogEntryID) (AccessLogEntry, error) {
	var e AccessLogEntry
	err := d.db.QueryRowContext(ctx,
		`SELECT timestamp, pipeline FROM AccessLog WHERE id=?`, id,
	).Scan(&e.Timestamp, &e.Pipeline)
	if err != nil {
		return AccessLogEntry{}, &StoreUnavailableError{Err: err}
	}
	return e, nil
}

// Pipeline looks up a single Pipeline row by id.
func (d *DataSource) Pipeline(ctx context.Context, id PipelineID) (Pipeline, error) {
	var p Pipeline
	err := d.db.QueryRowContext(ctx,
		`SELECT id, jobs, status, duration, createdAt, ref FROM Pipeline WHERE id=?`, id,
	).Scan(&p.ID, &p.Jobs, &p.RawStatus, &p.Duration, &p.CreatedAt, &p.Ref)
	if err != nil {
		return Pipeline{}, &StoreUnavailableError{Err: err}
	}
	return p, nil
}

// PipelinesForRef returns every pipeline whose ref (source branch) equals
// pipelineRef.
func (d *DataSource) PipelinesForRef(ctx context.Context, pipelineRef string) ([]Pipeline, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, jobs, status, duration, createdAt, ref FROM Pipeline WHERE ref=?`, pipelineRef)
	if err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}
	defer rows.Close()

	var pipelines []Pipeline
	for rows.Next() {
		var p Pipeline
		if err := rows.Scan(&p.ID, &p.Jobs, &p.RawStatus, &p.Duration, &p.CreatedAt, &p.Ref); err != nil {
			return nil, &StoreUnavailableError{Err: err}
		}
		pipelines = append(pipelines, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}
	return pipelines, nil
}

// PipelineIsPopulated reports whether a pipeline has metadata from the
// upstream store (a non-null createdAt) and a computable size. Filters out
// synthetic "phantom" pipelines inferred only from access-log rows.
func (d *DataSource) PipelineIsPopulated(ctx context.Context, id PipelineID) (bool, error) {
	var createdAt sql.NullInt64
	err := d.db.QueryRowContext(ctx, `SELECT createdAt FROM Pipeline WHERE id=?`, id).Scan(&createdAt)
	if err != nil {
		return false, &StoreUnavailableError{Err: err}
	}
	if !createdAt.Valid {
		return false, nil
	}

	_, err = d.SizeOfPipeline(ctx, id)
	if err == nil {
		return true, nil
	}
	var insufficient *InsufficientSamplesError
	if errors.As(err, &insufficient) {
		return false, nil
	}
	return false, err
}

// SizeOfPipeline returns the total sampled byte size of a pipeline, summed
// across its ";"-separated job tokens. Memoized process-wide: once computed
// successfully for an id the value never changes for the lifetime of the
// DataSource.
func (d *DataSource) SizeOfPipeline(ctx context.Context, id PipelineID) (int64, error) {
	d.mu.Lock()
	if size, ok := d.sizes[id]; ok {
		d.mu.Unlock()
		return size, nil
	}
	d.mu.Unlock()

	pipeline, err := d.Pipeline(ctx, id)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, job := range strings.Split(pipeline.Jobs, ";") {
		size, err := d.sampler.Sample(ctx, d.db, job)
		if err != nil {
			// Any job failing to sample makes the whole pipeline sizeless;
			// the caller (usually SimulationState.Process) must treat this
			// as "skip this pipeline", not retry with a partial total.
			return 0, err
		}
		total += size
	}

	d.mu.Lock()
	d.sizes[id] = total
	d.mu.Unlock()

	return total, nil
}

// StatusOfPipeline returns the cached PipelineStatus for id, parsing and
// caching the raw status token on first use.
func (d *DataSource) StatusOfPipeline(ctx context.Context, id PipelineID) (PipelineStatus, error) {
	d.mu.Lock()
	if status, ok := d.status[id]; ok {
		d.mu.Unlock()
		return status, nil
	}
	d.mu.Unlock()

	var raw string
	err := d.db.QueryRowContext(ctx, `SELECT status FROM Pipeline WHERE id=?`, id).Scan(&raw)
	if err != nil {
		return 0, &StoreUnavailableError{Err: err}
	}

	status, err := ParsePipelineStatus(raw)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	d.status[id] = status
	d.mu.Unlock()

	return status, nil
}

// AccessesAfterTimestamp returns relevant (non-irrelevant, non-automatic)
// access timestamps for id strictly after timestamp, descending. Used by
// sim/mlexport to compute whether a pipeline is "still needed" at a given
// point in the replay.
func (d *DataSource) AccessesAfterTimestamp(ctx context.Context, id PipelineID, timestamp int64) ([]int64, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT timestamp FROM AccessLog
		 WHERE pipeline=? AND timestamp>? AND isIrrelevant=0 AND isAutomatic=0
		 ORDER BY timestamp DESC`, id, timestamp)
	if err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}
	defer rows.Close()

	var timestamps []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, &StoreUnavailableError{Err: err}
		}
		timestamps = append(timestamps, ts)
	}
	return timestamps, rows.Err()
}

// AllPipelines returns every pipeline with createdAt > 0, for sim/mlexport's
// static (non-replayed) feature generator.
func (d *DataSource) AllPipelines(ctx context.Context) ([]Pipeline, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, jobs, status, duration, createdAt, ref FROM Pipeline WHERE createdAt > 0`)
	if err != nil {
		return nil, &StoreUnavailableError{Err: err}
	}
	defer rows.Close()

	var pipelines []Pipeline
	for rows.Next() {
		var p Pipeline
		if err := rows.Scan(&p.ID, &p.Jobs, &p.RawStatus, &p.Duration, &p.CreatedAt, &p.Ref); err != nil {
			return nil, &StoreUnavailableError{Err: err}
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, rows.Err()
}

// PopulateSizeSamples is the determinism primer: it scans every
// PipelineCreated/PipelineFinished event and forces SizeOfPipeline, so that
// every subsequent call hits the memo cache and never consumes sampler
// randomness. Must be called before any run starts when simulating multiple
// policies or size limits in parallel over the same DataSource (see
// package sim's concurrency model).
func (d *DataSource) PopulateSizeSamples(ctx context.Context) (int64, error) {
	cursor, err := d.Events(ctx)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	var total int64
	for {
		event, ok, err := cursor.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		switch event.Kind {
		case EventPipelineCreated, EventPipelineFinished:
			size, err := d.SizeOfPipeline(ctx, event.Key)
			if err == nil {
				total += size
			}
			// InsufficientSamplesError is expected and silently excluded
			// from the total; anything else is a real store problem.
			var insufficient *InsufficientSamplesError
			if err != nil && !errors.As(err, &insufficient) {
				return 0, err
			}
		}
	}
	return total, nil
}
