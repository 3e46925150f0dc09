// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/storage"
)

// SessionCookie holds the browser's session id.
const SessionCookie = "chatdesk_session"

// sessionID returns the id from the request cookie, or "" when the cookie
// is absent or malformed.
func sessionID(c *fiber.Ctx) string {
	// Cookie values alias the request buffer.
	id := strings.Clone(c.Cookies(SessionCookie))
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

// acquire loads the caller's session, or creates one and sets the cookie.
// The session stays locked until the returned release is called.
func (s *Server) acquire(c *fiber.Ctx) (*session.State, func(), error) {
	ctx := c.UserContext()

	if id := sessionID(c); id != "" {
		release := s.locks.lock(id)
		snap, err := s.store.Load(ctx, id)
		if err == nil {
			return session.Restore(snap), release, nil
		}
		release()
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("load session: %w", err)
		}
	}

	st, err := s.shell.NewState(ctx, s.ui.Greeting, s.ui.UseBackendGreeting)
	if err != nil {
		// The fallback state is usable; the conversation starts on the first turn.
		s.logger.Warn().Err(err).Msg("starting session without backend greeting")
	}
	release := s.locks.lock(st.ID())
	if err := s.store.Save(ctx, st.Snapshot()); err != nil {
		release()
		return nil, nil, fmt.Errorf("save session: %w", err)
	}
	s.setCookie(c, st.ID())
	s.logger.Info().Str("session", st.ID()).Msg("session created")
	return st, release, nil
}

// resume answers a user entry left without a reply, e.g. after the browser
// was closed mid-turn.
func (s *Server) resume(ctx context.Context, st *session.State) {
	if !st.Pending() {
		return
	}
	if _, err := s.shell.Respond(ctx, st); err != nil {
		s.logger.Warn().Err(err).Str("session", st.ID()).Msg("resumed turn failed")
	}
	s.save(ctx, st)
}

// save persists st and logs failures; the reply already reached the caller.
func (s *Server) save(ctx context.Context, st *session.State) {
	if err := s.store.Save(ctx, st.Snapshot()); err != nil {
		s.logger.Error().Err(err).Str("session", st.ID()).Msg("failed to save session")
	}
}

func (s *Server) setCookie(c *fiber.Ctx, id string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.web.SessionTTL() / time.Second),
		Secure:   s.web.SecureCookie,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
