package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedPipelineSetPreservesInsertionOrder(t *testing.T) {
	s := newOrderedPipelineSet()

	require.True(t, s.Insert(3))
	require.True(t, s.Insert(1))
	require.True(t, s.Insert(2))
	require.False(t, s.Insert(1), "re-inserting an existing id reports no change")

	assert.Equal(t, []PipelineID{3, 1, 2}, s.Ordered())
	first, ok := s.First()
	assert.True(t, ok)
	assert.Equal(t, PipelineID(3), first)
	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, PipelineID(2), last)
}

func TestOrderedPipelineSetRemove(t *testing.T) {
	s := newOrderedPipelineSet()
	s.Insert(1)
	s.Insert(2)
	s.Insert(3)

	assert.True(t, s.Remove(2))
	assert.False(t, s.Remove(2), "removing twice reports no change the second time")
	assert.Equal(t, []PipelineID{1, 3}, s.Ordered())
	assert.False(t, s.Contains(2))
	assert.Equal(t, 2, s.Len())
}

func TestOrderedPipelineSetEmpty(t *testing.T) {
	s := newOrderedPipelineSet()
	_, ok := s.First()
	assert.False(t, ok)
	_, ok = s.Last()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}
