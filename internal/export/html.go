// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/jeranaias/chatdesk/internal/markdown"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

//go:embed transcript.html.tmpl
var transcriptTemplate string

var htmlPage = template.Must(template.New("transcript").Parse(transcriptTemplate))

// HTMLExporter exports transcripts to a standalone HTML page. Message bodies
// are rendered from markdown and sanitised.
type HTMLExporter struct {
	options  *Options
	renderer *markdown.HTMLRenderer
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, renderer: markdown.NewHTMLRenderer()}
}

type htmlMessage struct {
	Class string
	Label string
	Time  string
	Body  template.HTML
}

type htmlData struct {
	Title           string
	IncludeMetadata bool
	SessionID       string
	ConversationID  string
	Created         string
	Exported        string
	Messages        []htmlMessage
}

// Export converts a snapshot to HTML.
func (e *HTMLExporter) Export(snap *session.Snapshot) ([]byte, error) {
	if err := validate(snap); err != nil {
		return nil, err
	}

	data := htmlData{
		Title:           e.options.Title,
		IncludeMetadata: e.options.IncludeMetadata,
		SessionID:       snap.ID,
		ConversationID:  snap.ConversationID,
		Exported:        e.options.now().Format("January 2, 2006 at 3:04 PM"),
	}
	if !snap.CreatedAt.IsZero() {
		data.Created = formatTimestamp(snap.CreatedAt)
	}

	for _, msg := range snap.Messages {
		body, err := e.renderBody(msg)
		if err != nil {
			return nil, fmt.Errorf("render message %s: %w", msg.ID, err)
		}
		m := htmlMessage{
			Class: messageClass(msg),
			Label: roleLabel(msg),
			// Sanitised by the renderer policy.
			Body: template.HTML(body),
		}
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			m.Time = formatShortTimestamp(msg.Timestamp)
		}
		data.Messages = append(data.Messages, m)
	}

	var buf bytes.Buffer
	if err := htmlPage.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *HTMLExporter) renderBody(msg *model.Message) (string, error) {
	if msg.IsError {
		return "<pre>" + template.HTMLEscapeString(msg.Content) + "</pre>", nil
	}
	if len(msg.Blocks) > 0 {
		return e.renderer.RenderBlocks(msg.Blocks)
	}
	return e.renderer.Render(msg.Content)
}

func messageClass(msg *model.Message) string {
	if msg.IsError {
		return "error"
	}
	if msg.IsUser() {
		return "user"
	}
	return "assistant"
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}
