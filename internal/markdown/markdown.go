// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"fmt"
	"strings"
)

// =============================================================================
// INLINE ELEMENTS
// =============================================================================

// Link returns a markdown hyperlink.
// Text and url are inserted verbatim; brackets or parentheses in either will
// break the link.
func Link(text, url string) string {
	return "[" + text + "](" + url + ")"
}

// Image returns a markdown image embed.
func Image(url, alt string) string {
	return "![" + alt + "](" + url + ")"
}

// =============================================================================
// BLOCK ELEMENTS
// =============================================================================

// List returns items as a markdown list, one item per line.
// Numbered lists count from 1.
func List(items []string, numbered bool) string {
	lines := make([]string, len(items))
	for i, item := range items {
		if numbered {
			lines[i] = fmt.Sprintf("%d. %s", i+1, item)
		} else {
			lines[i] = "- " + item
		}
	}
	return strings.Join(lines, "\n")
}

// RowGrid lays cells out as a single-row markdown table.
// The header labels columns "Image 1", "Image 2", ... and every column is
// centered. An empty cell list yields the empty string rather than a table
// without columns.
func RowGrid(cells []string) string {
	if len(cells) == 0 {
		return ""
	}

	header := make([]string, len(cells))
	separator := make([]string, len(cells))
	for i := range cells {
		header[i] = fmt.Sprintf("Image %d", i+1)
		separator[i] = ":-:"
	}

	return strings.Join([]string{
		"|" + strings.Join(header, "|") + "|",
		"|" + strings.Join(separator, "|") + "|",
		"|" + strings.Join(cells, "|") + "|",
	}, "\n")
}

// ImageGrid embeds each url as an image and lays them out with RowGrid.
// Alt texts follow the column labels.
func ImageGrid(urls []string) string {
	cells := make([]string, len(urls))
	for i, url := range urls {
		cells[i] = Image(url, fmt.Sprintf("Image %d", i+1))
	}
	return RowGrid(cells)
}
