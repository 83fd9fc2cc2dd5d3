package sim

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestDataSource opens a fresh file-backed DataSource in t's scratch
// directory, migrated but otherwise empty. Using a real file (rather than
// ":memory:") avoids each pooled connection seeing its own private
// in-memory database.
func newTestDataSource(t *testing.T) *DataSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	rng := NewPartitionedRNG(NewSimulationKey(1))
	ds, err := OpenDataSource(path, rng)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds
}

// seedJobSizeSamples inserts n identical-size rows for the given job so
// SizeOfPipeline deterministically resolves to size regardless of which
// offset the sampler's uniform draw lands on.
func seedJobSizeSamples(t *testing.T, ds *DataSource, environment, testSuite string, size int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := ds.db.Exec(
			`INSERT INTO JobSizeSample (environment, testSuite, bytes) VALUES (?, ?, ?)`,
			environment, testSuite, size,
		)
		require.NoError(t, err)
	}
}

// seedPipeline inserts a Pipeline row. status and ref columns are always
// populated (never NULL) since Pipeline() scans them as plain strings.
func seedPipeline(t *testing.T, ds *DataSource, id PipelineID, jobs, status, ref string) {
	t.Helper()
	_, err := ds.db.Exec(
		`INSERT INTO Pipeline (id, jobs, status, ref, duration) VALUES (?, ?, ?, ?, 0)`,
		id, jobs, status, ref,
	)
	require.NoError(t, err)
}

// seedEvent inserts a SimulationEvent row.
func seedEvent(t *testing.T, ds *DataSource, id int64, timestamp int64, kind EventKind, key int64) {
	t.Helper()
	_, err := ds.db.Exec(
		`INSERT INTO SimulationEvent (id, timestamp, kind, key) VALUES (?, ?, ?, ?)`,
		id, timestamp, int(kind), key,
	)
	require.NoError(t, err)
}

// markPipelineCreatedAt sets a Pipeline's createdAt column so
// PipelineIsPopulated and AllPipelines recognize it as real (not a
// synthetic access-log-only row).
func markPipelineCreatedAt(t *testing.T, ds *DataSource, id PipelineID, createdAt int64) {
	t.Helper()
	_, err := ds.db.Exec(`UPDATE Pipeline SET createdAt=? WHERE id=?`, createdAt, id)
	require.NoError(t, err)
}

// seedMergeRequestEvent inserts a MergeRequestEvent row whose eventID is the
// value its SimulationEvent row carries in key.
func seedMergeRequestEvent(t *testing.T, ds *DataSource, eventID int64, sourceBranch, status, action string) {
	t.Helper()
	_, err := ds.db.Exec(
		`INSERT INTO MergeRequestEvent (eventID, sourceBranch, status, action) VALUES (?, ?, ?, ?)`,
		eventID, sourceBranch, status, action,
	)
	require.NoError(t, err)
}

// seedAccessLog inserts an AccessLog row whose id is the value its
// SimulationEvent row carries in key (AccessLogEntry is looked up by that
// key).
func seedAccessLog(t *testing.T, ds *DataSource, id int64, timestamp int64, pipeline PipelineID, irrelevant, automatic bool) {
	t.Helper()
	_, err := ds.db.Exec(
		`INSERT INTO AccessLog (id, timestamp, pipeline, isIrrelevant, isAutomatic) VALUES (?, ?, ?, ?, ?)`,
		id, timestamp, pipeline, boolToInt(irrelevant), boolToInt(automatic),
	)
	require.NoError(t, err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// noopPolicy is a TotalPolicy that always panics; used where a test
// constructs a SimulationState directly and never expects Cleanup to run.
type noopPolicy struct{}

func (noopPolicy) SelectPipeline(context.Context, *PolicyDataView) (PipelineID, error) {
	panic("noopPolicy: SelectPipeline should not be called in this test")
}
