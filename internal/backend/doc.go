// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend talks to the conversational chat backend over HTTP.
//
// The backend exposes three endpoints: one that opens a conversation, one
// that answers a user message, and one that accepts documents for a
// conversation. Every call is made once, without retries, and failures are
// reported as *ClientError values whose Type tells callers how to react.
//
// # Key Types
//
//   - Client: HTTP client for the backend
//   - ClientConfig: base URL, timeout and correlation id
//   - ClientError: categorized failure (connection, status, timeout ...)
//
// # Usage
//
//	client := backend.NewClient(backend.ClientConfig{
//	    BaseURL: backend.BuildBaseURL("http", "chat-backend", "8080"),
//	})
//	conv, err := client.StartConversation(ctx, backend.DefaultConversationType)
//	reply, err := client.Chat(ctx, conv.ID, "How do I reset my password?")
package backend
