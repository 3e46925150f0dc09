// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/export"
	"github.com/jeranaias/chatdesk/internal/session"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// commandHelp lists the slash commands in display order.
var commandHelp = []struct {
	Usage string
	Desc  string
}{
	{"/help", "show keys and commands"},
	{"/upload <file>...", "send documents to the conversation"},
	{"/export [path]", "write the transcript (.md, .json or .html)"},
	{"/clear", "clear the screen (the transcript is kept)"},
	{"/session", "show session and conversation ids"},
	{"/quit", "leave chatdesk"},
}

// parseCommand splits "/name arg..." into a lower-cased name and arguments.
func parseCommand(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	return name, fields[1:]
}

// runCommand executes a slash command.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, args := parseCommand(line)

	switch name {
	case "help", "h", "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "quit", "exit", "q":
		m.cancelMgr.cancel()
		return m, tea.Quit

	case "clear":
		m.clearedAt = m.sess.Len()
		m.setStatus("Screen cleared. The transcript is kept for export.", false)
		m.updateViewport()
		return m, nil

	case "session":
		conv := m.sess.ConversationID()
		if conv == "" {
			conv = "(not started)"
		}
		m.setStatus(fmt.Sprintf("session %s, conversation %s", m.sess.ID(), conv), false)
		return m, nil

	case "upload":
		if len(args) == 0 {
			m.setStatus("Usage: /upload <file>...", true)
			return m, nil
		}
		m.busy = true
		m.busyLabel = "Uploading..."
		m.input.Blur()
		ctx := m.cancelMgr.start()
		return m, tea.Batch(m.spinner.Tick, uploadCmd(ctx, m.shell, m.sess, args))

	case "export":
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return m, exportCmd(m.sess, path, m.exportOpts)

	default:
		m.setStatus(fmt.Sprintf("Unknown command /%s. Type /help.", name), true)
		return m, nil
	}
}

// uploadCmd reads the files and posts them as one upload.
func uploadCmd(ctx context.Context, shell *session.Shell, st *session.State, paths []string) tea.Cmd {
	return func() tea.Msg {
		docs, names, err := backend.ReadDocuments(paths)
		if err != nil {
			return UploadCompleteMsg{Files: names, Err: err}
		}
		reply, err := shell.Upload(ctx, st, docs)
		return UploadCompleteMsg{Files: names, Reply: reply, Err: err}
	}
}

// exportCmd writes the transcript. The format follows the path extension.
func exportCmd(st *session.State, path string, opts *export.Options) tea.Cmd {
	return func() tea.Msg {
		exp, err := export.New(export.FormatForPath(path), opts)
		if err != nil {
			return ExportCompleteMsg{Err: err}
		}
		written, err := export.ExportToFile(st.Snapshot(), exp, path, opts)
		return ExportCompleteMsg{Path: written, Err: err}
	}
}
