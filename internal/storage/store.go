// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/util"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store saves and loads session snapshots.
type Store interface {
	// Load returns the snapshot for id, or ErrNotFound.
	Load(ctx context.Context, id string) (*session.Snapshot, error)

	// Save persists snap. Transcripts are append-only: entries already stored
	// for the session are kept and only newer ones are written.
	Save(ctx context.Context, snap *session.Snapshot) error

	// List returns summaries of stored sessions, most recent first.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes a session, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases resources held by the store.
	Close() error
}

// Summary describes a stored session for listings.
type Summary struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	MessageCount   int       `json:"message_count"`
	Preview        string    `json:"preview"` // first user message, truncated
}

// Store kinds accepted by Open.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
	KindFile   = "file"
)

// Options configures Open.
type Options struct {
	Kind string
	// Path is the database file for sqlite or the directory for file stores.
	Path string
	// TTL is the idle expiry for memory stores.
	TTL time.Duration
}

// Open creates the store described by opts.
func Open(opts Options) (Store, error) {
	switch opts.Kind {
	case KindMemory, "":
		return NewMemoryStore(opts.TTL), nil
	case KindSQLite:
		return OpenSQLite(opts.Path)
	case KindFile:
		return NewFileStore(opts.Path)
	default:
		return nil, fmt.Errorf("unknown store kind %q", opts.Kind)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned when a session doesn't exist.
var ErrNotFound = errors.New("session not found")

// ErrConflict is returned when a save would rewrite stored transcript
// entries.
var ErrConflict = errors.New("stored transcript diverges from snapshot")

// =============================================================================
// HELPERS
// =============================================================================

// previewLen bounds Summary.Preview in runes.
const previewLen = 80

func summarize(snap *session.Snapshot) Summary {
	return Summary{
		ID:             snap.ID,
		ConversationID: snap.ConversationID,
		CreatedAt:      snap.CreatedAt,
		UpdatedAt:      snap.UpdatedAt,
		MessageCount:   len(snap.Messages),
		Preview:        preview(snap.Messages),
	}
}

func preview(msgs []*model.Message) string {
	for _, m := range msgs {
		if m.IsUser() && m.Content != "" {
			return util.TruncateRunes(util.SingleLine(m.Content), previewLen)
		}
	}
	return ""
}

func sortSummaries(s []Summary) {
	sort.Slice(s, func(i, j int) bool {
		return s[i].UpdatedAt.After(s[j].UpdatedAt)
	})
}

// checkAppendOnly verifies that next extends stored without changing any
// entry already stored.
func checkAppendOnly(stored, next []*model.Message) error {
	if len(next) < len(stored) {
		return fmt.Errorf("%w: %d stored entries, snapshot has %d", ErrConflict, len(stored), len(next))
	}
	for i := range stored {
		if stored[i].ID != next[i].ID {
			return fmt.Errorf("%w: entry %d changed", ErrConflict, i)
		}
	}
	return nil
}

func cloneSnapshot(snap *session.Snapshot) *session.Snapshot {
	c := *snap
	c.Messages = make([]*model.Message, len(snap.Messages))
	for i, m := range snap.Messages {
		c.Messages[i] = m.Clone()
	}
	return &c
}
