package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"helmsman/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at dsn and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			turn_count INTEGER NOT NULL DEFAULT 0,
			last_summarized_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_text TEXT NOT NULL,
			assistant_text TEXT NOT NULL,
			category TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetOrCreate returns the session, creating an empty one when absent.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.Get(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if err != domain.ErrSessionNotFound {
		return nil, err
	}

	sess = &domain.Session{SessionID: sessionID, CreatedAt: time.Now().UTC()}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, created_at, turn_count) VALUES (?, ?, 0)`,
		sess.SessionID, sess.CreatedAt); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns the session with its full turn log, or ErrSessionNotFound.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var sess domain.Session
	var lastSummarized sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, created_at, turn_count, last_summarized_at FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&sess.SessionID, &sess.CreatedAt, &sess.TurnCount, &lastSummarized)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastSummarized.Valid {
		sess.LastSummarizedAt = &lastSummarized.Time
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT turn_id, user_text, assistant_text, category, created_at FROM turns WHERE session_id = ? ORDER BY created_at ASC, turn_id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Turn
		var category string
		if err := rows.Scan(&t.TurnID, &t.UserText, &t.Assistant, &category, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Category = domain.Category(category)
		sess.Turns = append(sess.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sess, nil
}

// AppendTurn inserts the turn and bumps the session's turn count in one
// transaction.
func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error {
	if turn.TurnID == "" {
		turn.TurnID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET turn_count = turn_count + 1 WHERE session_id = ?`,
		sessionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (turn_id, session_id, user_text, assistant_text, category, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		turn.TurnID, sessionID, turn.UserText, turn.Assistant, string(turn.Category), turn.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// Clear removes the session and its turns. Idempotent.
func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}
