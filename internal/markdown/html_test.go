// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLRendererBasics(t *testing.T) {
	r := NewHTMLRenderer()

	out, err := r.Render("**bold** and [docs](https://example.com/docs)")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, `href="https://example.com/docs"`)
}

func TestHTMLRendererImageGrid(t *testing.T) {
	r := NewHTMLRenderer()

	out, err := r.Render(ImageGrid([]string{"https://img/a.png", "https://img/b.png"}))
	require.NoError(t, err)
	assert.Contains(t, out, "<table")
	assert.Contains(t, out, `src="https://img/a.png"`)
	assert.Contains(t, out, `src="https://img/b.png"`)
}

func TestHTMLRendererStripsScripts(t *testing.T) {
	r := NewHTMLRenderer()

	out, err := r.Render("hello <script>alert('x')</script> <a href=\"javascript:alert(1)\">x</a>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "hello")
}

func TestHTMLRendererBlocks(t *testing.T) {
	r := NewHTMLRenderer()

	out, err := r.RenderBlocks([]string{"first", "second"})
	require.NoError(t, err)
	parts := strings.Split(out, BreakSeparator)
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "first")
	assert.Contains(t, parts[1], "second")

	empty, err := r.RenderBlocks(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
