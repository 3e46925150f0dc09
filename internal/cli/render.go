// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/ui/styles"
)

var userLabelStyle = lipgloss.NewStyle().
	Foreground(styles.Cyan).
	Bold(true)

// printer writes transcript entries to a line-oriented output. Markdown is
// rendered with glamour only when the output is a terminal.
type printer struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

func newPrinter(out io.Writer, raw bool, themeMode string) *printer {
	p := &printer{out: out}
	if raw || !isTerminal(out) {
		return p
	}
	theme := styles.NewTheme(themeMode)
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.MarkdownStyle),
		glamour.WithWordWrap(terminalWidth(out)-2),
	)
	if err == nil {
		p.renderer = r
	}
	return p
}

// markdown renders content, falling back to the text itself.
func (p *printer) markdown(content string) string {
	if p.renderer == nil {
		return content
	}
	out, err := p.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// message prints one entry. Error entries show the description and the
// stored error text.
func (p *printer) message(msg *model.Message) {
	switch {
	case msg.IsUser():
		fmt.Fprintf(p.out, "%s %s\n", userLabelStyle.Render("You:"), msg.Content)
	case msg.IsError:
		fmt.Fprintln(p.out, styles.RenderError(msg.Content))
	default:
		fmt.Fprintln(p.out, p.markdown(msg.Content))
	}
}

// transcript prints every entry of st.
func (p *printer) transcript(st *session.State) {
	for _, m := range st.Messages() {
		p.message(m)
		fmt.Fprintln(p.out)
	}
}

func (p *printer) status(text string) {
	fmt.Fprintln(p.out, styles.RenderInfo(text))
}

func (p *printer) failure(err error) {
	fmt.Fprintln(p.out, styles.RenderError(session.DescribeError(err)))
}
