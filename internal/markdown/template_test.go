// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleFields = Fields{
	Index:    2,
	Headline: "Reset password",
	Summary:  "Use the self-service portal.",
	URL:      "[http://x](http://x)",
	Images:   "",
}

// =============================================================================
// BRACE TEMPLATE TESTS
// =============================================================================

func TestParseBrace_Render(t *testing.T) {
	tmpl, err := ParseBrace("t.md", "## {index}. {headline}\n{summary}\n{url}{images}")
	require.NoError(t, err)

	out, err := tmpl.Render(sampleFields)
	require.NoError(t, err)
	assert.Equal(t, "## 2. Reset password\nUse the self-service portal.\n[http://x](http://x)", out)
	assert.Equal(t, "t.md", tmpl.Name())
}

func TestParseBrace_RepeatedAndSpacedPlaceholders(t *testing.T) {
	tmpl, err := ParseBrace("t.md", "{ headline } / {headline}")
	require.NoError(t, err)

	out, err := tmpl.Render(sampleFields)
	require.NoError(t, err)
	assert.Equal(t, "Reset password / Reset password", out)
}

func TestParseBrace_EscapedBraces(t *testing.T) {
	tmpl, err := ParseBrace("t.md", "{{literal}} {index}")
	require.NoError(t, err)

	out, err := tmpl.Render(sampleFields)
	require.NoError(t, err)
	assert.Equal(t, "{literal} 2", out)
}

func TestParseBrace_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unknown placeholder", "{title}"},
		{"unclosed brace", "{index"},
		{"stray closing brace", "index}"},
		{"positional placeholder", "{0}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBrace("bad.md", tt.text)
			require.Error(t, err)

			var tmplErr *TemplateError
			assert.True(t, errors.As(err, &tmplErr))
			assert.Equal(t, "bad.md", tmplErr.Name)
		})
	}
}

// =============================================================================
// GO TEMPLATE TESTS
// =============================================================================

func TestParseGo_RenderWithSprig(t *testing.T) {
	tmpl, err := ParseGo("t.tmpl", "{{ .Index }}. {{ .Headline | upper }}{{ if .Images }}\n{{ .Images }}{{ end }}")
	require.NoError(t, err)

	out, err := tmpl.Render(sampleFields)
	require.NoError(t, err)
	assert.Equal(t, "2. RESET PASSWORD", out)
}

func TestParseGo_ParseError(t *testing.T) {
	_, err := ParseGo("t.tmpl", "{{ .Index ")
	require.Error(t, err)

	var tmplErr *TemplateError
	require.True(t, errors.As(err, &tmplErr))
	assert.NotNil(t, tmplErr.Unwrap())
}

func TestParseGo_RenderError(t *testing.T) {
	tmpl, err := ParseGo("t.tmpl", "{{ .Missing }}")
	require.NoError(t, err)

	_, err = tmpl.Render(sampleFields)
	assert.Error(t, err)
}

// =============================================================================
// LOADING TESTS
// =============================================================================

func TestParseTemplate_SelectsSyntaxByExtension(t *testing.T) {
	brace, err := ParseTemplate("solution.md", "{headline}")
	require.NoError(t, err)
	assert.IsType(t, &BraceTemplate{}, brace)

	goTmpl, err := ParseTemplate("solution.TMPL", "{{ .Headline }}")
	require.NoError(t, err)
	assert.IsType(t, &GoTemplate{}, goTmpl)

	goTmpl, err = ParseTemplate("solution.gotmpl", "{{ .Headline }}")
	require.NoError(t, err)
	assert.IsType(t, &GoTemplate{}, goTmpl)
}

func TestLoadTemplate_Missing(t *testing.T) {
	_, err := LoadTemplate(filepath.Join(t.TempDir(), "nope.md"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateMissing))
}

func TestLoadTemplate_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "troubleshooting_template.md")
	require.NoError(t, os.WriteFile(path, []byte("# {headline}"), 0o644))

	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "troubleshooting_template.md", tmpl.Name())

	out, err := tmpl.Render(sampleFields)
	require.NoError(t, err)
	assert.Equal(t, "# Reset password", out)
}

func TestDefaultTemplate(t *testing.T) {
	tmpl := DefaultTemplate()

	out, err := tmpl.Render(sampleFields)
	require.NoError(t, err)
	assert.Contains(t, out, "2. Reset password")
	assert.Contains(t, out, "Use the self-service portal.")
	assert.Contains(t, out, "[http://x](http://x)")
}
