// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/markdown"
	"github.com/jeranaias/chatdesk/internal/model"
)

// ErrEmptyPrompt is returned by Turn for blank input.
var ErrEmptyPrompt = errors.New("empty prompt")

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the subset of the backend client used by the shell.
type Backend interface {
	StartConversation(ctx context.Context, conversationType string) (*backend.Conversation, error)
	Chat(ctx context.Context, conversationID, message string) (string, error)
	UploadDocuments(ctx context.Context, conversationID string, docs []backend.Document) (string, error)
}

// Renderer turns a raw reply into display blocks.
type Renderer interface {
	Render(raw string) markdown.Rendering
}

// =============================================================================
// SHELL
// =============================================================================

// ShellConfig configures a Shell.
type ShellConfig struct {
	Backend          Backend
	Renderer         Renderer
	ConversationType string // defaults to backend.DefaultConversationType
	Logger           zerolog.Logger
}

// Shell runs chat turns against the backend for a given State.
// A Shell is stateless and may be shared between sessions; callers must run
// one turn at a time per State.
type Shell struct {
	backend          Backend
	renderer         Renderer
	conversationType string
	logger           zerolog.Logger
}

// NewShell creates a shell.
func NewShell(cfg ShellConfig) *Shell {
	convType := cfg.ConversationType
	if convType == "" {
		convType = backend.DefaultConversationType
	}
	return &Shell{
		backend:          cfg.Backend,
		renderer:         cfg.Renderer,
		conversationType: convType,
		logger:           cfg.Logger.With().Str("component", "session").Logger(),
	}
}

// EnsureConversation returns the session's conversation id, starting a new
// conversation on first use.
func (sh *Shell) EnsureConversation(ctx context.Context, st *State) (string, error) {
	if id := st.ConversationID(); id != "" {
		return id, nil
	}

	conv, err := sh.backend.StartConversation(ctx, sh.conversationType)
	if err != nil {
		return "", err
	}
	if err := st.SetConversation(conv.ID, conv.Greeting); err != nil {
		return "", err
	}
	sh.logger.Info().Str("session", st.ID()).Str("conversation_id", conv.ID).Msg("conversation bound")
	return conv.ID, nil
}

// NewState creates a session. With useBackendGreeting the conversation is
// started immediately and the backend's greeting replaces greeting when it
// sent one. If that start fails the session falls back to greeting and the
// error is returned with it; the conversation is started again on the first
// turn.
func (sh *Shell) NewState(ctx context.Context, greeting string, useBackendGreeting bool) (*State, error) {
	if !useBackendGreeting {
		return Init(greeting), nil
	}

	conv, err := sh.backend.StartConversation(ctx, sh.conversationType)
	if err != nil {
		sh.logger.Warn().Err(err).Msg("backend greeting unavailable")
		return Init(greeting), err
	}
	if conv.Greeting != "" {
		greeting = conv.Greeting
	}
	st := Init(greeting)
	if err := st.SetConversation(conv.ID, conv.Greeting); err != nil {
		return st, err
	}
	return st, nil
}

// Send posts message to the backend and formats the reply.
// Transport errors are returned unchanged.
func (sh *Shell) Send(ctx context.Context, st *State, message string) ([]string, error) {
	convID, err := sh.EnsureConversation(ctx, st)
	if err != nil {
		return nil, err
	}

	raw, err := sh.backend.Chat(ctx, convID, message)
	if err != nil {
		return nil, err
	}

	r := sh.renderer.Render(raw)
	if r.Outcome.Degraded() {
		sh.logger.Warn().Err(r.Err).Str("outcome", r.Outcome.String()).Msg("reply shown without formatting")
	}
	return r.Blocks, nil
}

// Turn appends prompt as a user entry and, when a reply is pending, appends
// exactly one assistant entry: the formatted reply, or an error entry holding
// the error text verbatim when the request failed. The returned message is the appended assistant entry;
// the error, if any, is returned alongside it.
func (sh *Shell) Turn(ctx context.Context, st *State, prompt string) (*model.Message, error) {
	prompt = NormalizeInput(prompt)
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	st.Append(model.NewUserMessage(prompt))
	return sh.Respond(ctx, st)
}

// Respond answers the latest user entry. It does nothing and returns nil
// when the transcript already ends with an assistant entry.
func (sh *Shell) Respond(ctx context.Context, st *State) (*model.Message, error) {
	last := st.Last()
	if last == nil || last.IsAssistant() {
		return nil, nil
	}

	blocks, err := sh.Send(ctx, st, last.Content)
	if err != nil {
		sh.logger.Error().Err(err).Str("session", st.ID()).Msg("turn failed")
		msg := model.NewErrorMessage(err.Error())
		st.Append(msg)
		return msg, err
	}

	msg := model.NewAssistantMessage(blocks)
	st.Append(msg)
	return msg, nil
}

// Upload forwards docs to the session's conversation and returns the
// backend reply verbatim.
func (sh *Shell) Upload(ctx context.Context, st *State, docs []backend.Document) (string, error) {
	convID, err := sh.EnsureConversation(ctx, st)
	if err != nil {
		return "", err
	}
	return sh.backend.UploadDocuments(ctx, convID, docs)
}

// =============================================================================
// HELPERS
// =============================================================================

// NormalizeInput returns s in Unicode normalization form C.
func NormalizeInput(s string) string {
	return norm.NFC.String(s)
}

// DescribeError returns a short explanation of a failed turn for status
// lines. Transcript entries keep the error text itself.
func DescribeError(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Request canceled."
	}

	var ce *backend.ClientError
	if errors.As(err, &ce) {
		switch ce.Type {
		case backend.ErrTypeNotConfigured:
			return "The chat backend address is not configured. Set CHAT_URL and CHAT_PORT."
		case backend.ErrTypeConnection:
			return "Could not reach the chat backend."
		case backend.ErrTypeTimeout:
			return "The chat backend did not answer in time."
		case backend.ErrTypeStatus:
			return fmt.Sprintf("The chat backend returned an error (HTTP %d).", ce.StatusCode)
		case backend.ErrTypeInvalidResponse:
			return "The chat backend sent an unexpected reply."
		}
	}
	return "Something went wrong: " + err.Error()
}
