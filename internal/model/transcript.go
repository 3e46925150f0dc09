// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "encoding/json"

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is an append-only, ordered list of messages.
// Entries are never edited or removed once appended.
// The zero value is an empty transcript ready for use.
type Transcript struct {
	messages []*Message
}

// NewTranscript creates a transcript holding copies of msgs.
func NewTranscript(msgs ...*Message) *Transcript {
	t := &Transcript{messages: make([]*Message, 0, len(msgs))}
	for _, m := range msgs {
		t.Append(m)
	}
	return t
}

// Append adds a copy of msg to the end of the transcript.
// Nil messages are ignored.
func (t *Transcript) Append(msg *Message) {
	if msg == nil {
		return
	}
	t.messages = append(t.messages, msg.Clone())
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// At returns a copy of the entry at index i, or nil when out of range.
func (t *Transcript) At(i int) *Message {
	if i < 0 || i >= len(t.messages) {
		return nil
	}
	return t.messages[i].Clone()
}

// Last returns a copy of the most recent entry, or nil if empty.
func (t *Transcript) Last() *Message {
	return t.At(len(t.messages) - 1)
}

// Messages returns copies of all entries in order.
func (t *Transcript) Messages() []*Message {
	out := make([]*Message, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.Clone()
	}
	return out
}

// Since returns copies of the entries from index i onwards.
func (t *Transcript) Since(i int) []*Message {
	if i < 0 {
		i = 0
	}
	if i >= len(t.messages) {
		return nil
	}
	out := make([]*Message, 0, len(t.messages)-i)
	for _, m := range t.messages[i:] {
		out = append(out, m.Clone())
	}
	return out
}

// MarshalJSON encodes the transcript as an array of messages.
func (t *Transcript) MarshalJSON() ([]byte, error) {
	if t.messages == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.messages)
}

// UnmarshalJSON decodes an array of messages.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	var msgs []*Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	t.messages = t.messages[:0]
	for _, m := range msgs {
		t.Append(m)
	}
	return nil
}
