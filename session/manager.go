package session

import (
	"context"
	"sync"

	"github.com/umair-ds92/datawise-ai/core"
)

// Manager is the session state lifecycle contract.
type Manager interface {
	// Create allocates and persists a fresh conversation for the query.
	Create(ctx context.Context, sessionID, query, dataRef string) (*core.ConversationState, error)

	// Load returns the last saved snapshot, or core.ErrSessionNotFound.
	Load(ctx context.Context, sessionID string) (*core.ConversationState, error)

	// Save atomically replaces the stored snapshot. Concurrent saves for
	// the same session are serialized; a reader never observes a partial
	// write.
	Save(ctx context.Context, state *core.ConversationState) error

	// Delete removes the stored snapshot. Deleting a missing session is
	// not an error.
	Delete(ctx context.Context, sessionID string) error

	// Acquire takes exclusive logical ownership of the session for one
	// run, failing with core.ErrSessionBusy if already held.
	Acquire(sessionID string) error

	// Release gives up ownership taken by Acquire.
	Release(sessionID string)
}

// lease tracks in-process exclusive ownership of sessions. Ownership is
// per-run, not per-connection, so it lives beside the store rather than in
// it; both Manager implementations embed one.
type lease struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newLease() *lease { return &lease{held: make(map[string]struct{})} }

func (l *lease) Acquire(sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[sessionID]; busy {
		return core.ErrSessionBusy
	}
	l.held[sessionID] = struct{}{}
	return nil
}

func (l *lease) Release(sessionID string) {
	l.mu.Lock()
	delete(l.held, sessionID)
	l.mu.Unlock()
}
