// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
)

// SQLiteStore persists sessions in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
// The path ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store requires a path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps ":memory:"
	// databases alive for the store's lifetime.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load reads a session and its transcript.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*session.Snapshot, error) {
	var (
		snap             session.Snapshot
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, backend_greeting, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.ConversationID, &snap.BackendGreeting, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	snap.CreatedAt = time.Unix(0, created)
	snap.UpdatedAt = time.Unix(0, updated)

	msgs, err := s.loadMessages(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	snap.Messages = msgs
	return &snap, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) loadMessages(ctx context.Context, q querier, sessionID string) ([]*model.Message, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, role, content, blocks, is_error, created_at FROM messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	msgs := []*model.Message{}
	for rows.Next() {
		var (
			m       model.Message
			role    string
			blocks  string
			isError int
			created int64
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &blocks, &isError, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = model.Role(role)
		m.IsError = isError != 0
		m.Timestamp = time.Unix(0, created)
		if blocks != "" {
			if err := json.Unmarshal([]byte(blocks), &m.Blocks); err != nil {
				return nil, fmt.Errorf("failed to decode blocks of %s: %w", m.ID, err)
			}
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// Save upserts the session row and inserts transcript entries not yet
// stored.
func (s *SQLiteStore) Save(ctx context.Context, snap *session.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO sessions (id, conversation_id, backend_greeting, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    conversation_id = excluded.conversation_id,
    backend_greeting = excluded.backend_greeting,
    updated_at = excluded.updated_at`,
		snap.ID, snap.ConversationID, snap.BackendGreeting, snap.CreatedAt.UnixNano(), snap.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	stored, err := s.loadMessages(ctx, tx, snap.ID)
	if err != nil {
		return err
	}
	if err := checkAppendOnly(stored, snap.Messages); err != nil {
		return err
	}

	for seq := len(stored); seq < len(snap.Messages); seq++ {
		m := snap.Messages[seq]
		blocks := ""
		if len(m.Blocks) > 0 {
			data, err := json.Marshal(m.Blocks)
			if err != nil {
				return fmt.Errorf("failed to encode blocks: %w", err)
			}
			blocks = string(data)
		}
		isError := 0
		if m.IsError {
			isError = 1
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, seq, id, role, content, blocks, is_error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, seq, m.ID, string(m.Role), m.Content, blocks, isError, m.Timestamp.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to save message %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// List returns a summary per session, most recent first.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT s.id, s.conversation_id, s.created_at, s.updated_at,
       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
       COALESCE((SELECT m.content FROM messages m
                 WHERE m.session_id = s.id AND m.role = 'user'
                 ORDER BY m.seq LIMIT 1), '')
FROM sessions s
ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum              Summary
			created, updated int64
			first            string
		)
		if err := rows.Scan(&sum.ID, &sum.ConversationID, &created, &updated, &sum.MessageCount, &first); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sum.CreatedAt = time.Unix(0, created)
		sum.UpdatedAt = time.Unix(0, updated)
		sum.Preview = preview([]*model.Message{model.NewUserMessage(first)})
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a session and its messages.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
