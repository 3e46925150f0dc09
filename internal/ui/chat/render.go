// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// messageRenderer renders transcript entries for one width. Entries are
// immutable once appended, so rendered output is cached by message id.
type messageRenderer struct {
	theme  *styles.Theme
	logger zerolog.Logger

	width int
	term  *glamour.TermRenderer
	cache map[string]string
}

func newMessageRenderer(theme *styles.Theme, logger zerolog.Logger) *messageRenderer {
	return &messageRenderer{
		theme:  theme,
		logger: logger,
		cache:  make(map[string]string),
	}
}

// setWidth drops the cache when the wrap width changes.
func (r *messageRenderer) setWidth(width int) {
	if width == r.width {
		return
	}
	r.width = width
	r.term = nil
	r.cache = make(map[string]string)
}

func (r *messageRenderer) markdown(src string) string {
	if r.term == nil {
		term, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.theme.MarkdownStyle),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			r.logger.Warn().Err(err).Msg("markdown renderer unavailable")
			return src
		}
		r.term = term
	}
	out, err := r.term.Render(src)
	if err != nil {
		r.logger.Warn().Err(err).Msg("markdown render failed")
		return src
	}
	return strings.Trim(out, "\n")
}

// entry renders one transcript entry with its label line.
func (r *messageRenderer) entry(msg *model.Message) string {
	if out, ok := r.cache[msg.ID]; ok {
		return out
	}

	var label, body string
	ts := r.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	switch {
	case msg.IsError:
		label = r.theme.StatusError.Render(styles.StatusIndicators.Error+" "+msg.Role.DisplayName()) + " " + ts
		body = r.theme.ErrorBubble.Width(r.width).Render(msg.Content)
	case msg.IsUser():
		label = r.theme.UserLabel.Render(msg.Role.DisplayName()) + " " + ts
		body = r.theme.UserBubble.Width(r.width - 4).Render(msg.Content)
	default:
		label = r.theme.AssistantLabel.Render(msg.Role.DisplayName()) + " " + ts
		src := msg.Content
		if len(msg.Blocks) > 0 {
			src = strings.Join(msg.Blocks, "\n\n")
		}
		body = r.theme.AssistantBody.Render(r.markdown(src))
	}

	out := lipgloss.JoinVertical(lipgloss.Left, label, body)
	r.cache[msg.ID] = out
	return out
}

// transcript renders msgs separated by blank lines.
func (r *messageRenderer) transcript(msgs []*model.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, r.entry(msg))
	}
	return strings.Join(parts, "\n\n")
}
