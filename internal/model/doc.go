// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for transcripts and messages.
//
// # Key Types
//
//   - Message: single transcript entry with role, content, blocks and error flag
//   - Role: message role enumeration (user, assistant)
//   - Transcript: append-only ordered list of messages
//
// # Usage
//
//	var t model.Transcript
//	t.Append(model.NewUserMessage("How do I reset my password?"))
//	t.Append(model.NewAssistantMessage([]string{"Here is how.", "### 1. Reset"}))
//	last := t.Last()
package model
