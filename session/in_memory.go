package session

import (
	"context"
	"sync"

	"github.com/umair-ds92/datawise-ai/core"
)

// InMemoryManager is a volatile Manager storing snapshots in a process-local
// map. Every stored and returned state is a clone, so callers can never
// mutate the manager's copy in place: a Save is the only way to publish a
// new snapshot, which is what makes saves atomic from a reader's view.
type InMemoryManager struct {
	mu       sync.RWMutex
	sessions map[string]*core.ConversationState
	*lease
}

// NewInMemoryManager constructs an empty in-memory manager.
func NewInMemoryManager() *InMemoryManager {
	return &InMemoryManager{
		sessions: make(map[string]*core.ConversationState),
		lease:    newLease(),
	}
}

// Create implements Manager.
func (m *InMemoryManager) Create(ctx context.Context, sessionID, query, dataRef string) (*core.ConversationState, error) {
	state := core.NewConversationState(sessionID, query, dataRef)
	m.mu.Lock()
	m.sessions[sessionID] = state.Clone()
	m.mu.Unlock()
	return state, nil
}

// Load implements Manager.
func (m *InMemoryManager) Load(ctx context.Context, sessionID string) (*core.ConversationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[sessionID]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return state.Clone(), nil
}

// Save implements Manager.
func (m *InMemoryManager) Save(ctx context.Context, state *core.ConversationState) error {
	snapshot := state.Clone()
	m.mu.Lock()
	m.sessions[state.ID] = snapshot
	m.mu.Unlock()
	return nil
}

// Delete implements Manager.
func (m *InMemoryManager) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}
