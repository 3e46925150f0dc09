// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// DefaultConversationType is the conversation kind opened by default.
const DefaultConversationType = "Q_AND_A"

// MessageTypeUser marks a message written by the user.
const MessageTypeUser = "user"

// FormFieldDocuments is the multipart field name for uploaded files.
const FormFieldDocuments = "documents"

// StartConversationRequest is the request body for /startConversation.
type StartConversationRequest struct {
	ConversationType string `json:"conversation_type"`
}

// ChatRequest is the request body for /chat.
type ChatRequest struct {
	ChatMessage ChatMessage `json:"chat_message"`
}

// ChatMessage is a single user message sent to the backend.
type ChatMessage struct {
	ConversationID string `json:"conversationId"`
	CorrelationID  string `json:"correlationId"`
	Message        string `json:"message"`
	Type           string `json:"type"`         // always "user"
	CreationDate   int64  `json:"creationDate"` // backend assigns the real timestamp
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// Conversation is the result of starting a conversation.
type Conversation struct {
	ID string
	// Greeting is the first history message, if the backend sent one.
	Greeting string
}

// Document is a file to upload.
type Document struct {
	Name    string
	Content io.Reader
}

// ReadDocuments loads files from disk for upload. Each document is named
// after the file's base name; names lists them in order, including the
// files read before an error.
func ReadDocuments(paths []string) (docs []Document, names []string, err error) {
	docs = make([]Document, 0, len(paths))
	names = make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, names, fmt.Errorf("read %s: %w", p, err)
		}
		name := filepath.Base(p)
		names = append(names, name)
		docs = append(docs, Document{Name: name, Content: bytes.NewReader(data)})
	}
	return docs, names, nil
}
