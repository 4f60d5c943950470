// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/morganforge/loom/internal/model"
)

// ErrNotFound is returned when loading a session that does not exist.
var ErrNotFound = errors.New("session not found")

// =============================================================================
// STORE
// =============================================================================

// Store persists conversations in a sqlite database. One row per
// conversation, one row per message; block content travels as JSON.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	created_at      INTEGER NOT NULL,
	blocks          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, seq);
`

// Open opens (creating if needed) the session database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open session database: %w", err)
	}
	// sqlite allows one writer; a second connection would just contend.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE / LOAD / LIST / DELETE
// =============================================================================

// Save writes the conversation and its full message history, replacing any
// previous snapshot under the same ID.
func (s *Store) Save(conv *model.Conversation) error {
	messages := conv.Snapshot()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("cannot begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO conversations (id, title, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			model = excluded.model,
			updated_at = excluded.updated_at`,
		conv.ID, conv.GetTitle(), conv.GetModel(),
		conv.CreatedAt.UnixMilli(), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("cannot save conversation: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("cannot replace messages: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (id, conversation_id, seq, role, created_at, blocks)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cannot prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range messages {
		blocks, err := json.Marshal(msg.Blocks)
		if err != nil {
			return fmt.Errorf("cannot encode message %s: %w", msg.ID, err)
		}
		if _, err := stmt.Exec(msg.ID, conv.ID, i, msg.Role.String(), msg.Timestamp.UnixMilli(), string(blocks)); err != nil {
			return fmt.Errorf("cannot save message %s: %w", msg.ID, err)
		}
	}

	return tx.Commit()
}

// Load reads a conversation back, messages in original order.
func (s *Store) Load(id string) (*model.Conversation, error) {
	conv := &model.Conversation{ID: id}

	var createdMs, updatedMs int64
	err := s.db.QueryRow(`
		SELECT title, model, created_at, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&conv.Title, &conv.Model, &createdMs, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load conversation: %w", err)
	}
	conv.CreatedAt = time.UnixMilli(createdMs)
	conv.UpdatedAt = time.UnixMilli(updatedMs)

	rows, err := s.db.Query(`
		SELECT id, role, created_at, blocks
		FROM messages WHERE conversation_id = ?
		ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("cannot load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.Message
		var role string
		var tsMs int64
		var blocks string
		if err := rows.Scan(&msg.ID, &role, &tsMs, &blocks); err != nil {
			return nil, fmt.Errorf("cannot scan message: %w", err)
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.UnixMilli(tsMs)
		if err := json.Unmarshal([]byte(blocks), &msg.Blocks); err != nil {
			return nil, fmt.Errorf("cannot decode message %s: %w", msg.ID, err)
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot iterate messages: %w", err)
	}
	return conv, nil
}

// Meta is a listing row: enough to pick a session without loading it.
type Meta struct {
	ID           string
	Title        string
	Model        string
	UpdatedAt    time.Time
	MessageCount int
}

// List returns session metadata, most recently updated first.
func (s *Store) List() ([]Meta, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.title, c.model, c.updated_at, COUNT(m.id)
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("cannot list sessions: %w", err)
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		var m Meta
		var updatedMs int64
		if err := rows.Scan(&m.ID, &m.Title, &m.Model, &updatedMs, &m.MessageCount); err != nil {
			return nil, fmt.Errorf("cannot scan session row: %w", err)
		}
		m.UpdatedAt = time.UnixMilli(updatedMs)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a session and its messages.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("cannot delete session: %w", err)
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
