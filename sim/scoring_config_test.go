package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScorerConfigsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	err := os.WriteFile(path, []byte(`
scorers:
  - name: age
    weight: 2
    threshold: 100
    scale: 10
  - name: status
    weight: 1
  - name: merged
    weight: 1
    bonus: 7
`), 0o644)
	require.NoError(t, err)

	configs, err := LoadScorerConfigs(path)
	require.NoError(t, err)
	require.Len(t, configs, 3)
	assert.Equal(t, "age", configs[0].Name)
	assert.Equal(t, int64(100), configs[0].Threshold)
	assert.Equal(t, 7.0, configs[2].Bonus)
}

func TestLoadScorerConfigsEmptyIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scorers: []\n"), 0o644))

	_, err := LoadScorerConfigs(path)
	assert.Error(t, err)
}

func TestBuildAdditiveScorerUnknownDimension(t *testing.T) {
	_, err := BuildAdditiveScorer([]ScorerConfig{{Name: "bogus", Weight: 1}})
	assert.Error(t, err)
}

func TestBuildAdditiveScorerAppliesDefaultsAndOverrides(t *testing.T) {
	ds := newTestDataSource(t)
	seedPipeline(t, ds, 1, "env:suite", "pending", "")
	seedPipeline(t, ds, 2, "env:suite", "success", "")

	state := NewSimulationState(ds, noopPolicy{}, 1<<62)
	state.storedPipelines.Insert(1)
	state.storedPipelines.Insert(2)
	state.latestEvent = &Event{Timestamp: 0}
	view := NewPolicyDataView(state, ds)

	scorer, err := BuildAdditiveScorer([]ScorerConfig{{Name: "status", Weight: 1}})
	require.NoError(t, err)

	id, err := scorer.SelectPipeline(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, PipelineID(2), id, "success (default score 10) outranks pending (default score 0)")
}
