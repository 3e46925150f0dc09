// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// =============================================================================
// HTML RENDERING
// =============================================================================

// BreakSeparator joins rendered blocks for display.
const BreakSeparator = "\n<br>"

// HTMLRenderer converts chat markdown to sanitised HTML.
//
// Templates and replies may contain raw HTML (the image grid is a table), so
// goldmark passes it through and bluemonday strips anything unsafe afterwards.
type HTMLRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewHTMLRenderer creates a renderer with GitHub flavoured markdown enabled.
func NewHTMLRenderer() *HTMLRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("width", "height", "align", "valign").OnElements("img", "td", "th", "table")
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &HTMLRenderer{md: md, policy: policy}
}

// Render converts one markdown block.
func (r *HTMLRenderer) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// RenderBlocks renders each block and joins them with BreakSeparator.
func (r *HTMLRenderer) RenderBlocks(blocks []string) (string, error) {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		h, err := r.Render(b)
		if err != nil {
			return "", err
		}
		out = append(out, h)
	}
	return strings.Join(out, BreakSeparator), nil
}

// Sanitize applies the renderer's HTML policy to already rendered markup.
func (r *HTMLRenderer) Sanitize(s string) string {
	return r.policy.Sanitize(s)
}
