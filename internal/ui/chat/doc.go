// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the terminal chat screen.
//
// The screen shows the transcript of one session in a scrolling viewport,
// a single-line input and a status bar. Submitting a prompt appends the user
// entry at once and runs the backend request as a tea.Cmd; the input is
// disabled until the reply (or error entry) arrives. Esc cancels the request.
//
// # Key Types
//
//   - Model: the Bubble Tea model
//   - Config: collaborators and UI settings for New
//   - KeyMap: keyboard bindings
//
// # Commands
//
// Lines starting with "/" are commands: /help, /upload, /export, /clear,
// /session and /quit. See commandHelp for the full list.
//
// # Usage
//
//	m := chat.New(chat.Config{Shell: shell, State: st, UI: cfg.UI, Theme: theme})
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	_, err := p.Run()
package chat
