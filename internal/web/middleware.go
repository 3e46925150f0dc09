// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ============================================================================
// SECURITY HEADERS
// ============================================================================

// securityHeaders sets conservative response headers. Images from the
// backend's solution templates are external, so img-src allows https.
func securityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Content-Security-Policy",
			"default-src 'self'; img-src 'self' https: data:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'")
		return c.Next()
	}
}

// ============================================================================
// REQUEST LOGGING
// ============================================================================

// logWriter feeds fiber's access log lines into zerolog.
type logWriter struct {
	logger zerolog.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.logger.Info().Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func requestLogger(l zerolog.Logger) fiber.Handler {
	return logger.New(logger.Config{
		Format:     "${status} ${latency} ${method} ${path}\n",
		TimeFormat: time.RFC3339,
		Output:     logWriter{logger: l.With().Str("component", "http").Logger()},
	})
}

// ============================================================================
// RATE LIMITING
// ============================================================================

// rateLimiter keeps one token bucket per session. Idle buckets expire with
// the session TTL.
type rateLimiter struct {
	perMin  int
	limit   rate.Limit
	burst   int
	buckets *gocache.Cache
	mu      sync.Mutex
}

func newRateLimiter(perMinute, burst int, idle time.Duration) *rateLimiter {
	if idle <= 0 {
		idle = time.Hour
	}
	return &rateLimiter{
		perMin:  perMinute,
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		buckets: gocache.New(idle, idle),
	}
}

// allow reports whether key may make a request now.
func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var lim *rate.Limiter
	if v, ok := rl.buckets.Get(key); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(rl.limit, rl.burst)
	}
	rl.buckets.SetDefault(key, lim)
	return lim.Allow()
}

// retryAfter returns the Retry-After header value in seconds.
func (rl *rateLimiter) retryAfter() string {
	if rl.perMin <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(60 / float64(rl.perMin))))
}

// ============================================================================
// SESSION LOCKS
// ============================================================================

// sessionLocks serialises requests per session id.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// lock blocks until id is free and returns the unlock function.
func (s *sessionLocks) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}
