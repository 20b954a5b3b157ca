package store

import (
	"sync"

	"github.com/parley-ai/parley/chatmodel"
)

type inMemory struct {
	mu      sync.RWMutex
	storage map[string][]chatmodel.Message
}

func NewMemoryStore() MessageStore {
	return &inMemory{}
}

func (m *inMemory) Messages(sessionID string) []chatmodel.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.storage == nil {
		return nil
	}
	// callers may append to the returned slice
	msgs := m.storage[sessionID]
	out := make([]chatmodel.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (m *inMemory) Add(sessionID string, msgs ...chatmodel.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]chatmodel.Message)
	}
	m.storage[sessionID] = append(m.storage[sessionID], msgs...)
	return nil
}

func (m *inMemory) Reset(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage != nil {
		delete(m.storage, sessionID)
	}
	return nil
}
