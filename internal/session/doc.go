// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds per-session chat state and runs turns against the
// chat backend.
//
// A State owns the transcript and the backend conversation id. It starts
// with a single assistant greeting and only ever grows. The Shell drives a
// turn: it appends the user's text, starts a conversation on first use,
// posts the message, formats the reply and appends exactly one assistant
// entry, which is an error entry when the request fails.
//
// # Key Types
//
//   - State: conversation id and append-only transcript
//   - Snapshot: serializable copy of a State for storage
//   - Shell: runs turns using a Backend and a Renderer
//
// # Usage
//
//	st := session.Init(session.DefaultGreeting)
//	sh := session.NewShell(session.ShellConfig{Backend: client, Renderer: formatter})
//	reply, err := sh.Turn(ctx, st, "How do I reset my password?")
package session
