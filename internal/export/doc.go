// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to files.
//
// # Key Types
//
//   - Exporter: converts a session.Snapshot to one format
//   - Format: markdown, json or html
//   - Options: title, output directory and metadata switches
//
// # Supported Formats
//
//   - Markdown: YAML front matter (session, conversation, dates) and one
//     section per entry
//   - JSON: the snapshot itself, readable back into session.Snapshot
//   - HTML: a standalone page with sanitised, rendered message bodies
//
// # Usage
//
//	exp, err := export.New(export.FormatForPath(path), export.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	written, err := export.ExportToFile(state.Snapshot(), exp, path, nil)
package export
