// Package session persists conversation state across process boundaries.
// A Manager hands out snapshots (never aliases of its internals), saves
// atomically so a reader observes either the prior snapshot or the new one in
// full, and enforces exclusive logical ownership: while one orchestrator run
// holds a session's lease, a second acquirer fails with core.ErrSessionBusy
// instead of silently racing.
//
// InMemoryManager backs tests and ephemeral use; SQLiteManager gives durable
// snapshots using transactional wholesale rewrites.
package session
