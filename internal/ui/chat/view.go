// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdesk/internal/util"
)

// View implements tea.Model.
func (m Model) View() string {
	body := m.viewport.View()
	if m.showHelp {
		body = m.renderHelp()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// =============================================================================
// LAYOUT PIECES
// =============================================================================

func (m Model) renderHeader() string {
	target := m.backendURL
	if target == "" {
		target = "backend not configured"
	}
	meta := m.theme.HeaderMeta.Render(target)
	title := m.theme.HeaderTitle.Render(m.ui.Title)

	width := m.width - 2
	if width < 20 {
		width = 20
	}
	gap := width - 4 - lipgloss.Width(title) - lipgloss.Width(meta)
	if gap < 1 {
		meta = m.theme.HeaderMeta.Render(util.TruncateWidth(target, width-8-lipgloss.Width(title)))
		gap = 1
	}
	line := title + strings.Repeat(" ", gap) + meta
	return m.theme.Header.Width(width).Render(line)
}

func (m Model) renderInput() string {
	if m.busy {
		label := m.busyLabel
		if label == "" {
			label = m.ui.BusyText
		}
		return m.theme.InputContainer.Render(m.spinner.View() + " " + label)
	}
	return m.theme.InputContainer.Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	right := m.theme.ShortcutKey.Render("F1") + m.theme.ShortcutDsc.Render(" help ") +
		m.theme.ShortcutKey.Render("C-c") + m.theme.ShortcutDsc.Render(" quit")

	left := m.status
	style := m.theme.StatusOK
	switch {
	case m.statusErr:
		style = m.theme.StatusError
	case m.busy:
		style = m.theme.StatusBusy
	}
	if left == "" {
		conv := m.sess.ConversationID()
		if conv == "" {
			left = "ready"
		} else {
			left = "conversation " + util.TruncateWidth(conv, 24)
		}
	}

	avail := width - 2 - lipgloss.Width(right) - 1
	if avail < 0 {
		avail = 0
	}
	left = style.Render(util.TruncateWidth(util.SingleLine(left), avail))
	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(m.help.FullHelpView(m.keyMap.FullHelp()))
	sb.WriteString("\n\n")
	for _, c := range commandHelp {
		fmt.Fprintf(&sb, "%-20s %s\n", c.Usage, c.Desc)
	}
	out := m.theme.Help.Render(strings.TrimRight(sb.String(), "\n"))

	if h := m.viewport.Height; h > 0 {
		if pad := h - lipgloss.Height(out); pad > 0 {
			out += strings.Repeat("\n", pad)
		}
	}
	return out
}
