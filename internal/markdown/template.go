// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrTemplateMissing is returned when the solution template file does not exist.
var ErrTemplateMissing = errors.New("solution template not found")

// TemplateError reports a template that could not be parsed or rendered.
type TemplateError struct {
	Name    string
	Message string
	Cause   error
}

func (e *TemplateError) Error() string {
	msg := "template " + strconv.Quote(e.Name) + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// =============================================================================
// TEMPLATE CONTRACT
// =============================================================================

// Fields are the values available to a solution template.
type Fields struct {
	Index    int    // 1-based position of the solution
	Headline string // solution headline, verbatim
	Summary  string // solution summary, verbatim
	URL      string // markdown link to the solution source
	Images   string // markdown image grid, empty when there are no images
}

// Template renders a single solution block.
type Template interface {
	Name() string
	Render(f Fields) (string, error)
}

// Placeholder names understood by BraceTemplate.
const (
	FieldIndex    = "index"
	FieldHeadline = "headline"
	FieldSummary  = "summary"
	FieldURL      = "url"
	FieldImages   = "images"
)

func (f Fields) lookup(name string) string {
	switch name {
	case FieldIndex:
		return strconv.Itoa(f.Index)
	case FieldHeadline:
		return f.Headline
	case FieldSummary:
		return f.Summary
	case FieldURL:
		return f.URL
	case FieldImages:
		return f.Images
	}
	return ""
}

func knownField(name string) bool {
	switch name {
	case FieldIndex, FieldHeadline, FieldSummary, FieldURL, FieldImages:
		return true
	}
	return false
}

// =============================================================================
// BRACE TEMPLATE
// =============================================================================

// segment is either literal text or a placeholder name.
type segment struct {
	text  string
	field string
}

// BraceTemplate substitutes {name} placeholders. "{{" and "}}" produce
// literal braces.
type BraceTemplate struct {
	name     string
	segments []segment
}

// ParseBrace parses text as a brace template. Unknown placeholder names and
// unbalanced braces are rejected.
func ParseBrace(name, text string) (*BraceTemplate, error) {
	t := &BraceTemplate{name: name}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, &TemplateError{Name: name, Message: fmt.Sprintf("unclosed '{' at offset %d", i)}
			}
			field := strings.TrimSpace(text[i+1 : i+1+end])
			if !knownField(field) {
				return nil, &TemplateError{Name: name, Message: fmt.Sprintf("unknown placeholder {%s}", field)}
			}
			flush()
			t.segments = append(t.segments, segment{field: field})
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, &TemplateError{Name: name, Message: fmt.Sprintf("single '}' at offset %d", i)}
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return t, nil
}

// Name returns the template name, usually its file name.
func (t *BraceTemplate) Name() string {
	return t.name
}

// Render substitutes f into the template.
func (t *BraceTemplate) Render(f Fields) (string, error) {
	var sb strings.Builder
	for _, seg := range t.segments {
		if seg.field != "" {
			sb.WriteString(f.lookup(seg.field))
		} else {
			sb.WriteString(seg.text)
		}
	}
	return sb.String(), nil
}

// =============================================================================
// GO TEMPLATE
// =============================================================================

// GoTemplate renders solutions with text/template and the sprig function map.
type GoTemplate struct {
	tmpl *template.Template
}

// ParseGo parses text as a Go template. Field references use the Fields
// names (.Index, .Headline, .Summary, .URL, .Images).
func ParseGo(name, text string) (*GoTemplate, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, &TemplateError{Name: name, Message: "parse failed", Cause: err}
	}
	return &GoTemplate{tmpl: tmpl}, nil
}

// Name returns the template name.
func (t *GoTemplate) Name() string {
	return t.tmpl.Name()
}

// Render executes the template with f.
func (t *GoTemplate) Render(f Fields) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, f); err != nil {
		return "", &TemplateError{Name: t.tmpl.Name(), Message: "render failed", Cause: err}
	}
	return buf.String(), nil
}

// =============================================================================
// LOADING
// =============================================================================

//go:embed default_template.md
var defaultTemplate string

// DefaultTemplateText returns the built-in solution template source.
func DefaultTemplateText() string {
	return defaultTemplate
}

// DefaultTemplate returns the built-in solution template.
func DefaultTemplate() Template {
	t, err := ParseBrace("default_template.md", defaultTemplate)
	if err != nil {
		panic("markdown: built-in template is invalid: " + err.Error())
	}
	return t
}

// ParseTemplate picks the template syntax from the file name: ".tmpl" and
// ".gotmpl" are Go templates, everything else uses brace placeholders.
func ParseTemplate(name, text string) (Template, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tmpl", ".gotmpl":
		t, err := ParseGo(name, text)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		t, err := ParseBrace(name, text)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// LoadTemplate reads and parses the template at path.
// A missing file yields an error wrapping ErrTemplateMissing.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateMissing, path)
		}
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return ParseTemplate(filepath.Base(path), string(data))
}
