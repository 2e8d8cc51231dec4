package ideasource

import (
	"context"
	"sync"
)

// MemorySource is an in-memory, map-backed IdeaSource used in tests and
// local runs where no real idea-ingestion service is available.
type MemorySource struct {
	mu    sync.RWMutex
	ideas map[string]IdeaBody
}

// NewMemorySource builds a MemorySource seeded with the given ideas,
// keyed by IdeaRef.
func NewMemorySource(seed ...IdeaBody) *MemorySource {
	m := &MemorySource{ideas: make(map[string]IdeaBody, len(seed))}
	for _, b := range seed {
		m.ideas[b.IdeaRef] = b
	}
	return m
}

// Put adds or replaces the idea stored under ideaRef.
func (m *MemorySource) Put(ideaRef, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ideas[ideaRef] = IdeaBody{IdeaRef: ideaRef, Text: text}
}

func (m *MemorySource) GetIdea(ctx context.Context, ideaRef string) (IdeaBody, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.ideas[ideaRef]
	if !ok {
		return IdeaBody{}, ErrIdeaNotFound
	}
	return b, nil
}
