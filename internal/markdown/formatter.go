// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// =============================================================================
// REPLY TYPES
// =============================================================================

// Envelope is the structured reply produced by the chat backend.
type Envelope struct {
	GeneralAnswer *string    `json:"general_answer"`
	Message       *string    `json:"message"`
	Solutions     []Solution `json:"solutions"`
}

// Solution is one candidate answer.
type Solution struct {
	Headline string          `json:"headline"`
	Summary  string          `json:"summary"`
	URL      string          `json:"url"`
	Images   []SolutionImage `json:"images"`
}

// SolutionImage references a picture attached to a solution.
type SolutionImage struct {
	ImageURL string `json:"image_url"`
}

// text returns the top-level answer, preferring general_answer over message.
func (e *Envelope) text() (string, bool) {
	if e.GeneralAnswer != nil {
		return *e.GeneralAnswer, true
	}
	if e.Message != nil {
		return *e.Message, true
	}
	return "", false
}

// =============================================================================
// RENDERING RESULT
// =============================================================================

// Outcome describes how a reply was turned into blocks.
type Outcome int

const (
	// OutcomeSolutions means the general answer and every solution were rendered.
	OutcomeSolutions Outcome = iota
	// OutcomeGeneralAnswer means there were no solutions; only the answer text is shown.
	OutcomeGeneralAnswer
	// OutcomePlainText means the reply was not a JSON object and is shown verbatim.
	OutcomePlainText
	// OutcomeNoTemplate means solutions were present but no template was loaded.
	OutcomeNoTemplate
	// OutcomeTemplateError means the template failed for at least one solution.
	OutcomeTemplateError
)

// String returns the outcome name used in logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeSolutions:
		return "solutions"
	case OutcomeGeneralAnswer:
		return "general_answer"
	case OutcomePlainText:
		return "plain_text"
	case OutcomeNoTemplate:
		return "no_template"
	case OutcomeTemplateError:
		return "template_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Degraded reports whether the reply fell back to verbatim display.
func (o Outcome) Degraded() bool {
	return o == OutcomePlainText || o == OutcomeNoTemplate || o == OutcomeTemplateError
}

// Rendering is the result of formatting one reply.
type Rendering struct {
	Blocks  []string
	Outcome Outcome
	// Err explains a degraded outcome. It is nil for OutcomeSolutions and
	// OutcomeGeneralAnswer.
	Err error
}

// =============================================================================
// FORMATTER
// =============================================================================

// Formatter converts raw backend replies into markdown blocks.
// A Formatter holds no mutable state and is safe for concurrent use.
type Formatter struct {
	tmpl   Template
	logger zerolog.Logger
}

// NewFormatter creates a formatter. A nil template puts the formatter in
// degraded mode: replies with solutions are shown verbatim.
func NewFormatter(tmpl Template, logger zerolog.Logger) *Formatter {
	if tmpl == nil {
		logger.Warn().Msg("no solution template loaded; structured replies will be shown raw")
	}
	return &Formatter{tmpl: tmpl, logger: logger}
}

// HasTemplate reports whether a solution template is loaded.
func (f *Formatter) HasTemplate() bool {
	return f.tmpl != nil
}

// Format returns the display blocks for raw. It never fails; see Render for
// the outcome details.
func (f *Formatter) Format(raw string) []string {
	return f.Render(raw).Blocks
}

// Render converts raw into blocks.
//
// Non-JSON input, or JSON that is not an object, is returned as a single
// verbatim block. Without solutions the result is the general answer alone.
// Otherwise the general answer comes first, followed by one templated block
// per solution in reply order.
func (f *Formatter) Render(raw string) Rendering {
	env, err := parseEnvelope(raw)
	if err != nil {
		f.logger.Debug().Err(err).Msg("reply is not a structured envelope")
		return Rendering{Blocks: []string{raw}, Outcome: OutcomePlainText, Err: err}
	}

	answer, hasAnswer := env.text()
	if len(env.Solutions) == 0 {
		if !hasAnswer {
			err := fmt.Errorf("reply has neither general_answer nor solutions")
			return Rendering{Blocks: []string{raw}, Outcome: OutcomePlainText, Err: err}
		}
		return Rendering{Blocks: []string{answer}, Outcome: OutcomeGeneralAnswer}
	}

	if f.tmpl == nil {
		return Rendering{Blocks: []string{raw}, Outcome: OutcomeNoTemplate, Err: ErrTemplateMissing}
	}

	blocks := make([]string, 0, len(env.Solutions)+1)
	blocks = append(blocks, answer)
	for i, sol := range env.Solutions {
		block, err := f.tmpl.Render(solutionFields(i, sol))
		if err != nil {
			f.logger.Error().Err(err).Int("solution", i+1).Str("template", f.tmpl.Name()).Msg("solution template failed")
			return Rendering{Blocks: []string{raw}, Outcome: OutcomeTemplateError, Err: err}
		}
		blocks = append(blocks, block)
	}

	return Rendering{Blocks: blocks, Outcome: OutcomeSolutions}
}

// solutionFields builds the template values for the solution at position i.
func solutionFields(i int, sol Solution) Fields {
	urls := make([]string, len(sol.Images))
	for j, img := range sol.Images {
		urls[j] = img.ImageURL
	}
	return Fields{
		Index:    i + 1,
		Headline: sol.Headline,
		Summary:  sol.Summary,
		URL:      Link(sol.URL, sol.URL),
		Images:   ImageGrid(urls),
	}
}

// parseEnvelope decodes raw when it is a JSON object.
func parseEnvelope(raw string) (*Envelope, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("reply is not valid JSON")
	}
	if !gjson.Parse(raw).IsObject() {
		return nil, fmt.Errorf("reply is JSON but not an object")
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	return &env, nil
}
