// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/util"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown with YAML front matter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a snapshot to Markdown.
func (e *MarkdownExporter) Export(snap *session.Snapshot) ([]byte, error) {
	if err := validate(snap); err != nil {
		return nil, err
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(e.options.Title))
		fmt.Fprintf(&sb, "session: %s\n", escapeYAML(snap.ID))
		if snap.ConversationID != "" {
			fmt.Fprintf(&sb, "conversation: %s\n", escapeYAML(snap.ConversationID))
		}
		if !snap.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "created: %s\n", snap.CreatedAt.Format(time.RFC3339))
		}
		if !snap.UpdatedAt.IsZero() {
			fmt.Fprintf(&sb, "updated: %s\n", snap.UpdatedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(snap.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
		sb.WriteString("generator: chatdesk\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(util.SingleLine(e.options.Title)))

	for i, msg := range snap.Messages {
		label := roleLabel(msg)
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		sb.WriteString(messageMarkdown(msg))
		sb.WriteString("\n\n")

		if i < len(snap.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func roleLabel(msg *model.Message) string {
	if msg.IsError {
		return "[Error]"
	}
	if !msg.Role.Valid() {
		return "[Unknown]"
	}
	return "[" + msg.Role.DisplayName() + "]"
}

// messageMarkdown returns the body of one entry. Assistant blocks are kept
// apart by a blank line so each renders as its own section. Error text is
// quoted in a fence so it is shown literally.
func messageMarkdown(msg *model.Message) string {
	if msg.IsError {
		return "```\n" + strings.TrimSpace(msg.Content) + "\n```"
	}
	if len(msg.Blocks) > 0 {
		blocks := make([]string, len(msg.Blocks))
		for i, b := range msg.Blocks {
			blocks[i] = strings.TrimSpace(b)
		}
		return strings.Join(blocks, "\n\n")
	}
	return strings.TrimSpace(msg.Content)
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes a scalar when it contains YAML syntax or line breaks.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
