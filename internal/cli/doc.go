// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the chatdesk command line.
//
// # Commands
//
//   - chat (default): terminal chat UI, or a line-mode REPL with --plain
//   - serve: browser chat UI
//   - ask: one question, answer on stdout
//   - upload: send documents to a conversation
//   - export: write a stored session to markdown, JSON or HTML
//   - sessions: list or delete stored sessions
//   - init-assets: write the default resource files and config
//   - version: print build information
//
// # Usage
//
//	os.Exit(cli.Execute())
package cli
