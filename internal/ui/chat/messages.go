// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/chatdesk/internal/model"

// =============================================================================
// ASYNC RESULT MESSAGES
// =============================================================================

// TurnCompleteMsg carries the assistant entry appended by a finished turn.
// Err is set when the entry is an error entry.
type TurnCompleteMsg struct {
	Message *model.Message
	Err     error
}

// UploadCompleteMsg reports a finished document upload.
type UploadCompleteMsg struct {
	Files []string
	Reply string
	Err   error
}

// ExportCompleteMsg reports a finished transcript export.
type ExportCompleteMsg struct {
	Path string
	Err  error
}

// SavedMsg reports that the session was written to the store.
type SavedMsg struct {
	Err error
}
