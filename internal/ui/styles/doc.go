// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and lipgloss styles of the chat screen.

All colors are lipgloss AdaptiveColor values, so they follow the terminal
background unless a theme mode forces one.

# Colors (colors.go)

	Purple, Cyan    - assistant and user accents
	Emerald, Amber  - success and busy states
	Rose            - errors and error entries
	TextPrimary     - body text, with TextSecondary and TextMuted below it

# Theme (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme)
	if theme.IsDark {
		// dark background detected or forced
	}
	renderer, _ := glamour.NewTermRenderer(glamour.WithStandardStyle(theme.MarkdownStyle))
*/
package styles
