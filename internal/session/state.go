// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/chatdesk/internal/model"
)

// DefaultGreeting is the first assistant entry of a new session.
const DefaultGreeting = "Wie kann ich dir helfen?"

// ErrConversationSet is returned when a session already holds a different
// conversation id.
var ErrConversationSet = errors.New("session already bound to a conversation")

// =============================================================================
// STATE
// =============================================================================

// State is everything a session remembers between turns: its id, the backend
// conversation id and the transcript. All methods are safe for concurrent use.
type State struct {
	mu sync.Mutex

	id             string
	conversationID string
	greeting       string // greeting sent by the backend, if any
	transcript     model.Transcript
	createdAt      time.Time
	updatedAt      time.Time
}

// Init returns a fresh session whose transcript holds a single assistant
// greeting. An empty greeting falls back to DefaultGreeting.
func Init(greeting string) *State {
	if greeting == "" {
		greeting = DefaultGreeting
	}
	now := time.Now()
	s := &State{
		id:        uuid.NewString(),
		createdAt: now,
		updatedAt: now,
	}
	s.transcript.Append(model.NewAssistantMessage([]string{greeting}))
	return s
}

// ID returns the session id.
func (s *State) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// ConversationID returns the cached conversation id, or "" before the first
// turn.
func (s *State) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// BackendGreeting returns the greeting the backend sent when the
// conversation was started.
func (s *State) BackendGreeting() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.greeting
}

// SetConversation binds the session to a conversation. Setting the same id
// again is a no-op; a different id is rejected.
func (s *State) SetConversation(id, greeting string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversationID != "" {
		if s.conversationID == id {
			return nil
		}
		return ErrConversationSet
	}
	s.conversationID = id
	s.greeting = greeting
	s.updatedAt = time.Now()
	return nil
}

// Append adds msg to the transcript.
func (s *State) Append(msg *model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript.Append(msg)
	s.updatedAt = time.Now()
}

// Messages returns copies of the transcript entries.
func (s *State) Messages() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Messages()
}

// Len returns the number of transcript entries.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Len()
}

// Last returns a copy of the latest transcript entry.
func (s *State) Last() *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Last()
}

// Pending reports whether the latest entry still awaits an assistant reply.
func (s *State) Pending() bool {
	last := s.Last()
	return last != nil && !last.IsAssistant()
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Snapshot is the serializable form of a State.
type Snapshot struct {
	ID              string           `json:"id"`
	ConversationID  string           `json:"conversation_id,omitempty"`
	BackendGreeting string           `json:"backend_greeting,omitempty"`
	Messages        []*model.Message `json:"messages"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Snapshot captures the current state.
func (s *State) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Snapshot{
		ID:              s.id,
		ConversationID:  s.conversationID,
		BackendGreeting: s.greeting,
		Messages:        s.transcript.Messages(),
		CreatedAt:       s.createdAt,
		UpdatedAt:       s.updatedAt,
	}
}

// Restore rebuilds a State from a snapshot.
func Restore(snap *Snapshot) *State {
	s := &State{
		id:             snap.ID,
		conversationID: snap.ConversationID,
		greeting:       snap.BackendGreeting,
		createdAt:      snap.CreatedAt,
		updatedAt:      snap.UpdatedAt,
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	for _, m := range snap.Messages {
		s.transcript.Append(m)
	}
	return s
}
