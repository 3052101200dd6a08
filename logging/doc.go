// Package logging provides a small abstraction over slog so the rest of the
// module depends on a minimal Logger interface while callers can plug in any
// structured logger. A NoOpLogger keeps components dependency-free by
// default; ConversationLogger adds session/component context for the
// orchestrator's per-run logging.
package logging
