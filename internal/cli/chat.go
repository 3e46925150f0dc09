// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/ui/chat"
)

// chatOptions are the flags of the chat command.
type chatOptions struct {
	plain  bool
	resume string
}

func newChatCommand(g *globalFlags) *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the terminal chat (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, g, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "line-mode chat without the full-screen UI")
	cmd.Flags().StringVar(&opts.resume, "resume", "", "continue the stored session with this id")
	return cmd
}

func runChat(cmd *cobra.Command, g *globalFlags, opts *chatOptions) error {
	// Both modes own the terminal, so logs go to the log file.
	a, err := g.open(logging.ToFile)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	st, err := a.sessionFor(ctx, opts.resume)
	if err != nil {
		return err
	}

	if opts.plain || !IsTTY() || !IsStdoutTTY() {
		in := newLinePrompter()
		defer in.Close()
		return runREPL(ctx, a, st, in, cmd.OutOrStdout())
	}
	return runTUI(ctx, a, st)
}

// sessionFor resumes id, or starts a new session when id is empty.
func (a *app) sessionFor(ctx context.Context, id string) (*session.State, error) {
	if id == "" {
		return a.newState(ctx), nil
	}
	return a.loadState(ctx, id)
}

func runTUI(ctx context.Context, a *app, st *session.State) error {
	m := chat.New(chat.Config{
		Shell:      a.shell,
		State:      st,
		Store:      a.store,
		UI:         a.cfg.UI,
		BackendURL: a.baseURL,
		Logger:     a.log.Logger,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
