// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/jeranaias/chatdesk/internal/session"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the snapshot as indented JSON. The output can be read
// back with json.Unmarshal into a session.Snapshot.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a snapshot to JSON. Options do not filter the output.
func (e *JSONExporter) Export(snap *session.Snapshot) ([]byte, error) {
	if err := validate(snap); err != nil {
		return nil, err
	}
	return json.MarshalIndent(snap, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
