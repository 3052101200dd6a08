package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/umair-ds92/datawise-ai/core"
)

// SQLiteManager is a durable Manager backed by a SQLite file. Save rewrites
// the whole snapshot inside one transaction, which is what makes the
// prior-or-new-never-mixed guarantee hold across process crashes. sql.DB's
// connection pooling makes the manager safe for concurrent use.
type SQLiteManager struct {
	db *sql.DB
	*lease
}

// OpenSQLite opens or creates the database at path, creating parent
// directories as needed.
func OpenSQLite(path string) (*SQLiteManager, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session db directory: %w", err)
		}
	}
	return openSQLite(path)
}

// NewSQLiteInMemory creates a private in-memory database, useful for tests.
func NewSQLiteInMemory() (*SQLiteManager, error) {
	return openSQLite("file::memory:?cache=shared")
}

func openSQLite(dsn string) (*SQLiteManager, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	m := &SQLiteManager{db: db, lease: newLease()}
	if err := m.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize session schema: %w", err)
	}
	return m, nil
}

// Close closes the underlying database.
func (m *SQLiteManager) Close() error { return m.db.Close() }

func (m *SQLiteManager) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id     TEXT PRIMARY KEY,
			query          TEXT NOT NULL,
			data_ref       TEXT NOT NULL DEFAULT '',
			outcome_kind   TEXT,
			outcome_reason TEXT,
			outcome_at     INTEGER,
			created_at     INTEGER NOT NULL,
			updated_at     INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			session_id TEXT NOT NULL,
			seq        INTEGER NOT NULL,
			payload    TEXT NOT NULL,
			PRIMARY KEY (session_id, seq),
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session
		ON messages(session_id, seq);
	`
	_, err := m.db.Exec(schema)
	return err
}

// Create implements Manager.
func (m *SQLiteManager) Create(ctx context.Context, sessionID, query, dataRef string) (*core.ConversationState, error) {
	state := core.NewConversationState(sessionID, query, dataRef)
	if err := m.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Save implements Manager.
func (m *SQLiteManager) Save(ctx context.Context, state *core.ConversationState) error {
	snapshot := state.Clone()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	// Safe after Commit; becomes a no-op.
	defer func() { _ = tx.Rollback() }()

	var outcomeKind, outcomeReason sql.NullString
	var outcomeAt sql.NullInt64
	if o := snapshot.Outcome(); o != nil {
		outcomeKind = sql.NullString{String: string(o.Kind), Valid: true}
		outcomeReason = sql.NullString{String: o.Reason, Valid: true}
		outcomeAt = sql.NullInt64{Int64: o.DecidedAt.UnixNano(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (session_id, query, data_ref, outcome_kind, outcome_reason, outcome_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			query = excluded.query,
			data_ref = excluded.data_ref,
			outcome_kind = excluded.outcome_kind,
			outcome_reason = excluded.outcome_reason,
			outcome_at = excluded.outcome_at,
			updated_at = excluded.updated_at`,
		snapshot.ID, snapshot.Query, snapshot.DataRef,
		outcomeKind, outcomeReason, outcomeAt,
		snapshot.Created.UnixNano(), snapshot.Updated.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", snapshot.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO messages (session_id, seq, payload) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()

	for _, msg := range snapshot.Messages() {
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode message %d: %w", msg.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx, snapshot.ID, msg.Seq, string(payload)); err != nil {
			return fmt.Errorf("insert message %d: %w", msg.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load implements Manager.
func (m *SQLiteManager) Load(ctx context.Context, sessionID string) (*core.ConversationState, error) {
	var query, dataRef string
	var outcomeKind, outcomeReason sql.NullString
	var outcomeAt sql.NullInt64
	var createdAt, updatedAt int64

	err := m.db.QueryRowContext(ctx, `
		SELECT query, data_ref, outcome_kind, outcome_reason, outcome_at, created_at, updated_at
		FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&query, &dataRef, &outcomeKind, &outcomeReason, &outcomeAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	rows, err := m.db.QueryContext(ctx,
		"SELECT payload FROM messages WHERE session_id = ? ORDER BY seq", sessionID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var messages []core.Message
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		var msg core.Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	var outcome *core.Outcome
	if outcomeKind.Valid {
		outcome = &core.Outcome{
			Kind:      core.OutcomeKind(outcomeKind.String),
			Reason:    outcomeReason.String,
			DecidedAt: time.Unix(0, outcomeAt.Int64).UTC(),
		}
	}

	return core.RestoredConversationState(
		sessionID, query, dataRef,
		time.Unix(0, createdAt).UTC(), time.Unix(0, updatedAt).UTC(),
		messages, outcome,
	), nil
}

// Delete implements Manager.
func (m *SQLiteManager) Delete(ctx context.Context, sessionID string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return tx.Commit()
}
