// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want 'user'", msg.Role)
	}
	if msg.Content != "Hello" {
		t.Errorf("Content = %q, want 'Hello'", msg.Content)
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID = %q, want msg_ prefix", msg.ID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestNewAssistantMessage_JoinsBlocks(t *testing.T) {
	blocks := []string{"Answer", "### 1. One", "### 2. Two"}
	msg := NewAssistantMessage(blocks)

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want 'assistant'", msg.Role)
	}
	if want := "Answer\n### 1. One\n### 2. Two"; msg.Content != want {
		t.Errorf("Content = %q, want %q", msg.Content, want)
	}
	blocks[0] = "changed"
	if msg.Blocks[0] != "Answer" {
		t.Error("Blocks should not alias the caller's slice")
	}
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("backend failed")
	if !msg.IsError || !msg.IsAssistant() {
		t.Errorf("got IsError=%v role=%q, want error assistant entry", msg.IsError, msg.Role)
	}
}

func TestMessageIDsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewUserMessage("x").ID
		if seen[id] {
			t.Fatalf("duplicate ID %q", id)
		}
		seen[id] = true
	}
}

func TestMessage_Preview(t *testing.T) {
	tests := []struct {
		content string
		max     int
		want    string
	}{
		{"short", 10, "short"},
		{"line one\nline two", 0, "line one line two"},
		{"abcdefghij", 6, "abc..."},
		{"äöüäöüäöü", 5, "äö..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		msg := NewUserMessage(tt.content)
		if got := msg.Preview(tt.max); got != tt.want {
			t.Errorf("Preview(%q, %d) = %q, want %q", tt.content, tt.max, got, tt.want)
		}
	}
}

func TestRole_DisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" || RoleAssistant.DisplayName() != "Assistant" {
		t.Error("unexpected display names")
	}
	if Role("other").Valid() {
		t.Error("unknown role should not be valid")
	}
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscript_AppendOnly(t *testing.T) {
	var tr Transcript
	if tr.Len() != 0 || tr.Last() != nil {
		t.Fatal("zero transcript should be empty")
	}

	tr.Append(NewUserMessage("a"))
	tr.Append(nil)
	tr.Append(NewAssistantMessage([]string{"b"}))

	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}
	if tr.Last().Content != "b" {
		t.Errorf("Last().Content = %q, want 'b'", tr.Last().Content)
	}

	// Mutating returned copies must not change stored entries.
	msgs := tr.Messages()
	msgs[0].Content = "edited"
	tr.At(1).Content = "edited"
	if tr.At(0).Content != "a" || tr.At(1).Content != "b" {
		t.Error("transcript entries were modified through a copy")
	}
	if tr.At(5) != nil || tr.At(-1) != nil {
		t.Error("out of range At should return nil")
	}
}

func TestTranscript_Since(t *testing.T) {
	tr := NewTranscript(NewUserMessage("a"), NewUserMessage("b"), NewUserMessage("c"))

	if got := tr.Since(1); len(got) != 2 || got[0].Content != "b" {
		t.Errorf("Since(1) = %v", got)
	}
	if got := tr.Since(3); got != nil {
		t.Errorf("Since(3) = %v, want nil", got)
	}
	if got := tr.Since(-2); len(got) != 3 {
		t.Errorf("Since(-2) returned %d entries, want 3", len(got))
	}
}

func TestTranscript_JSON(t *testing.T) {
	var empty Transcript
	data, err := json.Marshal(&empty)
	if err != nil || string(data) != "[]" {
		t.Fatalf("Marshal(empty) = %s, %v", data, err)
	}

	tr := NewTranscript(NewUserMessage("q"), NewErrorMessage("failed"))
	data, err = json.Marshal(tr)
	if err != nil {
		t.Fatal(err)
	}

	var back Transcript
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Len() != 2 || !back.At(1).IsError || back.At(0).Content != "q" {
		t.Errorf("decoded transcript = %+v", back.Messages())
	}
}
