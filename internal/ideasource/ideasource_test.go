package ideasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySourceHit(t *testing.T) {
	m := NewMemorySource(IdeaBody{IdeaRef: "i1", Text: "a lighthouse keeper"})

	got, err := m.GetIdea(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, "a lighthouse keeper", got.Text)
}

func TestMemorySourceMiss(t *testing.T) {
	m := NewMemorySource()
	_, err := m.GetIdea(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrIdeaNotFound)
}

func TestMemorySourcePut(t *testing.T) {
	m := NewMemorySource()
	m.Put("i2", "a sunken city")
	got, err := m.GetIdea(context.Background(), "i2")
	require.NoError(t, err)
	assert.Equal(t, "i2", got.IdeaRef)
	assert.Equal(t, "a sunken city", got.Text)
}
