// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/export"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/ui/styles"
)

var titleStyle = lipgloss.NewStyle().
	Foreground(styles.Purple).
	Bold(true)

// =============================================================================
// INPUT
// =============================================================================

// prompter reads one line of user input.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// linePrompter provides line editing and history for the REPL.
type linePrompter struct {
	line        *liner.State
	historyFile string
}

func newLinePrompter() *linePrompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	p := &linePrompter{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(p.historyFile); err == nil {
		p.line.ReadHistory(f)
		f.Close()
	}
	return p
}

// Prompt reads a line; non-empty input is added to the history.
func (p *linePrompter) Prompt(prompt string) (string, error) {
	input, err := p.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		p.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history and restores the terminal.
func (p *linePrompter) Close() error {
	if err := os.MkdirAll(filepath.Dir(p.historyFile), 0755); err == nil {
		if f, err := os.OpenFile(p.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			p.line.WriteHistory(f)
			f.Close()
		}
	}
	return p.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

const replHelp = `Commands:
  /upload <file>...  send documents to this conversation
  /export [path]     write the transcript (.md, .json or .html)
  /session           show the session id
  /help              show this help
  /quit              leave`

// runREPL runs the line-mode chat until EOF, Ctrl+C or /quit.
func runREPL(ctx context.Context, a *app, st *session.State, in prompter, out io.Writer) error {
	pr := newPrinter(out, false, a.cfg.UI.Theme)
	fmt.Fprintln(out, titleStyle.Render(a.cfg.UI.Title))
	fmt.Fprintln(out)
	pr.transcript(st)

	if st.Pending() {
		pr.status(a.cfg.UI.BusyText)
		msg, err := a.shell.Respond(ctx, st)
		a.save(ctx, st)
		a.printReply(pr, msg, err)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := in.Prompt("> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if quit := a.replCommand(ctx, st, input, pr); quit {
				return nil
			}
			continue
		}

		pr.status(a.cfg.UI.BusyText)
		msg, err := a.shell.Turn(ctx, st, input)
		a.save(ctx, st)
		a.printReply(pr, msg, err)
	}
}

func (a *app) printReply(pr *printer, msg *model.Message, err error) {
	if err != nil {
		pr.failure(err)
	} else if msg != nil {
		pr.message(msg)
	}
	fmt.Fprintln(pr.out)
}

// replCommand runs a slash command and reports whether to quit.
func (a *app) replCommand(ctx context.Context, st *session.State, input string, pr *printer) bool {
	fields := strings.Fields(strings.TrimPrefix(input, "/"))
	name := ""
	if len(fields) > 0 {
		name = strings.ToLower(fields[0])
	}
	args := fields[min(1, len(fields)):]

	switch name {
	case "quit", "exit", "q":
		return true

	case "help", "?":
		fmt.Fprintln(pr.out, replHelp)

	case "session":
		fmt.Fprintf(pr.out, "Session:      %s\n", st.ID())
		conv := st.ConversationID()
		if conv == "" {
			conv = "(not started)"
		}
		fmt.Fprintf(pr.out, "Conversation: %s\n", conv)

	case "upload":
		if len(args) == 0 {
			fmt.Fprintln(pr.out, styles.RenderWarning("Usage: /upload <file>..."))
			return false
		}
		docs, names, err := backend.ReadDocuments(args)
		if err != nil {
			fmt.Fprintln(pr.out, styles.RenderError(err.Error()))
			return false
		}
		pr.status(a.cfg.UI.BusyText)
		reply, err := a.shell.Upload(ctx, st, docs)
		if err != nil {
			pr.failure(err)
			return false
		}
		a.save(ctx, st)
		fmt.Fprintln(pr.out, styles.RenderSuccess(fmt.Sprintf("Uploaded %s", strings.Join(names, ", "))))
		if reply != "" {
			fmt.Fprintln(pr.out, reply)
		}

	case "export":
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		written, err := a.export(st, path, "")
		if err != nil {
			fmt.Fprintln(pr.out, styles.RenderError(err.Error()))
			return false
		}
		fmt.Fprintln(pr.out, styles.RenderSuccess("Exported to "+written))

	default:
		fmt.Fprintln(pr.out, styles.RenderWarning(fmt.Sprintf("Unknown command /%s. Type /help.", name)))
	}
	return false
}

// save persists st; failures are logged.
func (a *app) save(ctx context.Context, st *session.State) {
	if err := a.store.Save(ctx, st.Snapshot()); err != nil {
		a.log.Error().Err(err).Str("session", st.ID()).Msg("failed to save session")
	}
}

// export writes st to path. An empty format follows the path extension.
func (a *app) export(st *session.State, path, format string) (string, error) {
	f := export.FormatForPath(path)
	if format != "" {
		var err error
		if f, err = export.ParseFormat(format); err != nil {
			return "", &UsageError{Message: err.Error()}
		}
	}
	opts := export.DefaultOptions()
	opts.Title = a.cfg.UI.Title
	exp, err := export.New(f, opts)
	if err != nil {
		return "", err
	}
	return export.ExportToFile(st.Snapshot(), exp, path, opts)
}
