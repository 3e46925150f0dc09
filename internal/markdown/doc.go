// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown turns chat backend replies into displayable markdown blocks.
//
// The backend answers with a JSON document carrying a general answer and an
// optional list of solutions. The Formatter converts that document into an
// ordered list of markdown strings: the general answer first, then one block
// per solution rendered through an external Template.
//
// # Key Types
//
//   - Formatter: converts a raw reply into blocks (Format) or a Rendering (Render)
//   - Template: renders one solution; BraceTemplate and GoTemplate implement it
//   - Fields: the values substituted into a Template
//   - HTMLRenderer: goldmark + bluemonday conversion for the web UI and exports
//
// # Usage
//
//	tmpl, err := markdown.LoadTemplate("resources/troubleshooting_template.md")
//	if err != nil {
//	    logger.Warn().Err(err).Msg("running without solution template")
//	}
//	f := markdown.NewFormatter(tmpl, logger)
//	for _, block := range f.Format(reply) {
//	    fmt.Println(block)
//	}
//
// The helpers Link, Image, List and RowGrid are pure string builders. They do
// not escape markdown metacharacters in their arguments.
package markdown
