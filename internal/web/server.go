// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/assets"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/markdown"
	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/storage"
)

//go:embed index.html.tmpl
var pageFS embed.FS

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// =============================================================================
// SERVER
// =============================================================================

// Config configures a Server.
type Config struct {
	Shell  *session.Shell
	Store  storage.Store
	Assets *assets.Bundle
	UI     config.UIConfig
	Web    config.WebConfig
	// BackendURL is shown by /health.
	BackendURL string
	Logger     zerolog.Logger
}

// Server is the browser chat UI.
type Server struct {
	app     *fiber.App
	shell   *session.Shell
	store   storage.Store
	assets  *assets.Bundle
	ui      config.UIConfig
	web     config.WebConfig
	backend string
	page    *template.Template
	html    *markdown.HTMLRenderer
	limiter *rateLimiter
	locks   *sessionLocks
	logger  zerolog.Logger
}

// New creates the server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Shell == nil {
		return nil, errors.New("web: shell is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("web: store is required")
	}
	if cfg.Assets == nil {
		cfg.Assets = &assets.Bundle{Favicon: assets.DefaultFavicon()}
	}

	page, err := template.ParseFS(pageFS, "index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	s := &Server{
		shell:   cfg.Shell,
		store:   cfg.Store,
		assets:  cfg.Assets,
		ui:      cfg.UI,
		web:     cfg.Web,
		backend: cfg.BackendURL,
		page:    page,
		html:    markdown.NewHTMLRenderer(),
		limiter: newRateLimiter(cfg.Web.RatePerMinute, cfg.Web.RateBurst, cfg.Web.SessionTTL()),
		locks:   newSessionLocks(),
		logger:  cfg.Logger.With().Str("component", "web").Logger(),
	}

	bodyLimit := cfg.Web.MaxUploadBytes()
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "chatdesk",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(requestLogger(s.logger))
	s.app.Use(securityHeaders())

	s.app.Get("/", s.handleIndex)
	s.app.Get("/health", s.handleHealth)

	api := s.app.Group("/api")
	api.Get("/history", s.handleHistory)
	api.Post("/chat", s.rateLimit, s.handleChat)
	api.Post("/upload", s.rateLimit, s.handleUpload)

	static := s.app.Group("/assets")
	static.Get("/avatar", s.handleAvatar)
	static.Get("/favicon.ico", s.handleFavicon)
	s.app.Get("/favicon.ico", s.handleFavicon)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = s.web.Listen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()
	s.logger.Info().Str("addr", addr).Str("backend", s.backend).Msg("web UI listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down web UI")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// =============================================================================
// ERRORS
// =============================================================================

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		s.logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(code).JSON(errorBody{Error: msg})
}

// rateLimit rejects callers that exceed the per-session request rate.
func (s *Server) rateLimit(c *fiber.Ctx) error {
	key := sessionID(c)
	if key == "" {
		key = "ip:" + c.IP()
	}
	if !s.limiter.allow(key) {
		c.Set(fiber.HeaderRetryAfter, s.limiter.retryAfter())
		return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests. Please wait a moment.")
	}
	return c.Next()
}
