// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// BlockSeparator joins rendered blocks into a message's content.
const BlockSeparator = "\n"

// Message is a single transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Blocks are the rendered markdown blocks an assistant message was built
	// from. Content is always strings.Join(Blocks, BlockSeparator) when set.
	Blocks []string `json:"blocks,omitempty"`

	// IsError marks an assistant entry that describes a failed turn.
	IsError bool `json:"is_error,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant message from rendered blocks.
func NewAssistantMessage(blocks []string) *Message {
	msg := NewMessage(RoleAssistant, strings.Join(blocks, BlockSeparator))
	msg.Blocks = append([]string(nil), blocks...)
	return msg
}

// NewErrorMessage creates an assistant message describing a failed turn.
func NewErrorMessage(text string) *Message {
	msg := NewMessage(RoleAssistant, text)
	msg.IsError = true
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// IsUser returns true if this is a user message.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true if this is an assistant message.
func (m *Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// Preview returns a single-line prefix of the content, at most maxLen runes.
func (m *Message) Preview(maxLen int) string {
	text := strings.Join(strings.Fields(m.Content), " ")
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	if m.Blocks != nil {
		c.Blocks = append([]string(nil), m.Blocks...)
	}
	return &c
}

func generateID() string {
	return "msg_" + uuid.NewString()
}
