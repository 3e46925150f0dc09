// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the chat backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int    // set for ErrTypeStatus
	Body       string // response excerpt for ErrTypeStatus
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotConfigured
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeStatus
	ErrTypeInvalidResponse
)

// String returns the error type name.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeNotConfigured:
		return "not_configured"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeStatus:
		return "status"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrNotConfigured = &ClientError{Type: ErrTypeNotConfigured, Message: "chat backend address is not configured"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// IsType reports whether err is a *ClientError of type t.
func IsType(err error, t ErrorType) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == t
}

// maxErrorBody bounds how much of a failed response is kept on the error.
const maxErrorBody = 512

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Endpoint paths on the chat backend.
const (
	PathStartConversation = "/startConversation"
	PathChat              = "/chat"
	PathUploadMultiple    = "/document/uploadMultiple/"
)

// DefaultCorrelationID tags every chat request sent by this client.
const DefaultCorrelationID = "chatdesk"

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend base URL, e.g. http://chat-backend:8080.
	// An empty BaseURL is allowed; requests then fail with ErrNotConfigured.
	BaseURL string

	// Timeout for each request. Zero means no client-side timeout.
	Timeout time.Duration

	// CorrelationID is sent with every chat message.
	CorrelationID string

	// HTTPClient overrides the default http.Client (used by tests).
	HTTPClient *http.Client

	// Logger receives request logs. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// BuildBaseURL joins scheme, host and port into a base URL.
// It returns "" when host is empty so that misconfiguration surfaces on the
// first request rather than at startup.
func BuildBaseURL(scheme, host, port string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if scheme == "" {
		scheme = "http"
	}
	if port == "" {
		return scheme + "://" + host
	}
	return scheme + "://" + host + ":" + port
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend. It is safe for concurrent use.
// Every call is attempted exactly once.
type Client struct {
	baseURL       string
	correlationID string
	httpClient    *http.Client
	logger        zerolog.Logger
}

// NewClient creates a backend client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	correlationID := cfg.CorrelationID
	if correlationID == "" {
		correlationID = DefaultCorrelationID
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "backend").Logger()
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		correlationID: correlationID,
		httpClient:    httpClient,
		logger:        logger,
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// CONVERSATION
// =============================================================================

// StartConversation opens a new conversation of the given type.
func (c *Client) StartConversation(ctx context.Context, conversationType string) (*Conversation, error) {
	body, err := json.Marshal(StartConversationRequest{ConversationType: conversationType})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to encode request", Cause: err}
	}

	data, err := c.do(ctx, http.MethodPost, PathStartConversation, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(data) {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "start conversation reply is not JSON"}
	}
	id := gjson.GetBytes(data, "conversationId")
	if !id.Exists() || id.String() == "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "start conversation reply has no conversationId"}
	}

	conv := &Conversation{
		ID:       id.String(),
		Greeting: gjson.GetBytes(data, "history.0.message").String(),
	}
	c.logger.Info().Str("conversation_id", conv.ID).Msg("started conversation")
	return conv, nil
}

// Chat posts a user message and returns the reply payload.
//
// The payload is the reply's "message" field, which is normally itself a
// JSON document. When the reply has no string "message" field the raw body
// is returned instead.
func (c *Client) Chat(ctx context.Context, conversationID, message string) (string, error) {
	req := ChatRequest{ChatMessage: ChatMessage{
		ConversationID: conversationID,
		CorrelationID:  c.correlationID,
		Message:        message,
		Type:           MessageTypeUser,
		CreationDate:   0,
	}}
	body, err := json.Marshal(req)
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to encode request", Cause: err}
	}

	data, err := c.do(ctx, http.MethodPost, PathChat, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	if gjson.ValidBytes(data) {
		if msg := gjson.GetBytes(data, "message"); msg.Type == gjson.String {
			return msg.String(), nil
		}
	}
	c.logger.Debug().Int("bytes", len(data)).Msg("chat reply has no message field, passing body through")
	return string(data), nil
}

// =============================================================================
// DOCUMENT UPLOAD
// =============================================================================

// UploadDocuments sends files to the conversation's document store.
// Each file is sent as a "documents" form part. The reply body is returned
// verbatim.
func (c *Client) UploadDocuments(ctx context.Context, conversationID string, docs []Document) (string, error) {
	if len(docs) == 0 {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "no documents to upload"}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, doc := range docs {
		part, err := writer.CreateFormFile(FormFieldDocuments, doc.Name)
		if err != nil {
			return "", &ClientError{Type: ErrTypeConnection, Message: "failed to build upload form", Cause: err}
		}
		if _, err := io.Copy(part, doc.Content); err != nil {
			return "", &ClientError{Type: ErrTypeConnection, Message: "failed to read " + doc.Name, Cause: err}
		}
	}
	if err := writer.Close(); err != nil {
		return "", &ClientError{Type: ErrTypeConnection, Message: "failed to build upload form", Cause: err}
	}

	path := PathUploadMultiple + url.PathEscape(conversationID)
	data, err := c.do(ctx, http.MethodPost, path, writer.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	c.logger.Info().Str("conversation_id", conversationID).Int("documents", len(docs)).Msg("uploaded documents")
	return string(data), nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: "request to " + path + " timed out", Cause: err}
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "request to " + path + " failed", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to read response", Cause: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt := string(data)
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return nil, &ClientError{
			Type:       ErrTypeStatus,
			Message:    fmt.Sprintf("%s %s returned %s", method, path, resp.Status),
			StatusCode: resp.StatusCode,
			Body:       excerpt,
		}
	}

	return data, nil
}
