// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"bytes"
	"html/template"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jeranaias/chatdesk/internal/assets"
	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
)

// =============================================================================
// VIEWS
// =============================================================================

// MessageView is a transcript entry prepared for the browser.
type MessageView struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	HTML      string    `json:"html"`
	IsError   bool      `json:"is_error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryResponse is returned by GET /api/history.
type HistoryResponse struct {
	SessionID      string         `json:"session_id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Messages       []*MessageView `json:"messages"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by POST /api/chat. On a failed turn Reply holds
// the error entry and Error a short description.
type ChatResponse struct {
	User  *MessageView `json:"user"`
	Reply *MessageView `json:"reply"`
	Error string       `json:"error,omitempty"`
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	Files []string `json:"files"`
	Reply string   `json:"reply,omitempty"`
	Error string   `json:"error,omitempty"`
}

// view renders msg. The user's own text and assistant blocks go through the
// markdown renderer; error entries are shown as escaped text.
func (s *Server) view(msg *model.Message) *MessageView {
	v := &MessageView{
		ID:        msg.ID,
		Role:      msg.Role.String(),
		Content:   msg.Content,
		IsError:   msg.IsError,
		Timestamp: msg.Timestamp,
	}

	var (
		out string
		err error
	)
	switch {
	case msg.IsError:
		out = "<pre>" + template.HTMLEscapeString(msg.Content) + "</pre>"
	case msg.IsAssistant() && len(msg.Blocks) > 0:
		out, err = s.html.RenderBlocks(msg.Blocks)
	default:
		out, err = s.html.Render(msg.Content)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("message", msg.ID).Msg("markdown render failed")
		out = "<p>" + template.HTMLEscapeString(msg.Content) + "</p>"
	}
	v.HTML = out
	return v
}

func (s *Server) views(msgs []*model.Message) []*MessageView {
	out := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.view(m))
	}
	return out
}

// =============================================================================
// PAGE
// =============================================================================

type pageData struct {
	Title       string
	Style       template.HTML
	Placeholder string
	BusyText    string
	HasAvatar   bool
	Messages    []pageMessage
}

type pageMessage struct {
	Role    string
	IsError bool
	HTML    template.HTML
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	st, release, err := s.acquire(c)
	if err != nil {
		return err
	}
	defer release()
	s.resume(c.UserContext(), st)

	data := pageData{
		Title:       s.ui.Title,
		Style:       template.HTML(s.assets.Style),
		Placeholder: s.ui.Placeholder,
		BusyText:    s.ui.BusyText,
		HasAvatar:   s.assets.Avatar != nil,
	}
	for _, v := range s.views(st.Messages()) {
		data.Messages = append(data.Messages, pageMessage{
			Role:    v.Role,
			IsError: v.IsError,
			HTML:    template.HTML(v.HTML), // sanitized by the renderer
		})
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"backend": s.backend,
	})
}

// =============================================================================
// API
// =============================================================================

func (s *Server) handleHistory(c *fiber.Ctx) error {
	st, release, err := s.acquire(c)
	if err != nil {
		return err
	}
	defer release()
	s.resume(c.UserContext(), st)

	return c.JSON(HistoryResponse{
		SessionID:      st.ID(),
		ConversationID: st.ConversationID(),
		Messages:       s.views(st.Messages()),
	})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Message must not be empty.")
	}

	st, release, err := s.acquire(c)
	if err != nil {
		return err
	}
	defer release()

	ctx := c.UserContext()
	reply, turnErr := s.shell.Turn(ctx, st, req.Message)
	s.save(ctx, st)

	msgs := st.Messages()
	resp := ChatResponse{User: s.view(msgs[len(msgs)-2])}
	if reply != nil {
		resp.Reply = s.view(reply)
	}
	if turnErr != nil {
		resp.Error = session.DescribeError(turnErr)
		return c.Status(fiber.StatusBadGateway).JSON(resp)
	}
	return c.JSON(resp)
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Expected a multipart form.")
	}
	files := form.File["documents"]
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "No documents uploaded.")
	}

	docs, names, err := openDocuments(files)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Could not read the uploaded files.")
	}
	defer closeDocuments(docs)

	st, release, err := s.acquire(c)
	if err != nil {
		return err
	}
	defer release()

	ctx := c.UserContext()
	reply, err := s.shell.Upload(ctx, st, docs)
	if err != nil {
		s.logger.Error().Err(err).Str("session", st.ID()).Strs("files", names).Msg("upload failed")
		return c.Status(fiber.StatusBadGateway).JSON(UploadResponse{
			Files: names,
			Error: session.DescribeError(err),
		})
	}
	// Upload may have bound the conversation.
	s.save(ctx, st)
	s.logger.Info().Str("session", st.ID()).Strs("files", names).Msg("documents uploaded")
	return c.JSON(UploadResponse{Files: names, Reply: reply})
}

func openDocuments(files []*multipart.FileHeader) ([]backend.Document, []string, error) {
	docs := make([]backend.Document, 0, len(files))
	names := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			closeDocuments(docs)
			return nil, nil, err
		}
		docs = append(docs, backend.Document{Name: fh.Filename, Content: f})
		names = append(names, fh.Filename)
	}
	return docs, names, nil
}

func closeDocuments(docs []backend.Document) {
	for _, d := range docs {
		if cl, ok := d.Content.(io.Closer); ok {
			cl.Close()
		}
	}
}

// =============================================================================
// STATIC ASSETS
// =============================================================================

func (s *Server) handleAvatar(c *fiber.Ctx) error {
	if s.assets.Avatar == nil {
		return fiber.ErrNotFound
	}
	c.Set(fiber.HeaderContentType, s.assets.Avatar.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(s.assets.Avatar.Data)
}

func (s *Server) handleFavicon(c *fiber.Ctx) error {
	icon := s.assets.Favicon
	if len(icon) == 0 {
		icon = assets.DefaultFavicon()
	}
	c.Set(fiber.HeaderContentType, assets.FaviconContentType(icon))
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(icon)
}
