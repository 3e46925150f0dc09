// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdesk/internal/assets"
	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/markdown"
	"github.com/jeranaias/chatdesk/internal/model"
	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/storage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type testBackend struct {
	status  int
	reply   string
	chats   atomic.Int32
	uploads atomic.Int32
	files   []string
	mu      sync.Mutex
}

func (b *testBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(backend.PathStartConversation, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"conversationId":"conv-1","history":[{"message":"Servus"}]}`)
	})
	mux.HandleFunc(backend.PathChat, func(w http.ResponseWriter, r *http.Request) {
		b.chats.Add(1)
		if b.status != 0 {
			w.WriteHeader(b.status)
			return
		}
		_, _ = io.WriteString(w, b.reply)
	})
	mux.HandleFunc(backend.PathUploadMultiple, func(w http.ResponseWriter, r *http.Request) {
		b.uploads.Add(1)
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			b.mu.Lock()
			for _, fh := range r.MultipartForm.File[backend.FormFieldDocuments] {
				b.files = append(b.files, fh.Filename)
			}
			b.mu.Unlock()
		}
		_, _ = io.WriteString(w, "documents stored")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	srv     *Server
	store   storage.Store
	backend *testBackend
}

func newFixture(t *testing.T, b *testBackend, mutate func(*Config)) *fixture {
	t.Helper()
	upstream := b.server(t)
	shell := session.NewShell(session.ShellConfig{
		Backend:  backend.NewClient(backend.ClientConfig{BaseURL: upstream.URL}),
		Renderer: markdown.NewFormatter(markdown.DefaultTemplate(), zerolog.Nop()),
		Logger:   zerolog.Nop(),
	})
	store := storage.NewMemoryStore(0)
	t.Cleanup(func() { store.Close() })

	defaults := config.Default()
	cfg := Config{
		Shell:      shell,
		Store:      store,
		Assets:     &assets.Bundle{Favicon: assets.DefaultFavicon(), Style: "<style>.x{}</style>"},
		UI:         defaults.UI,
		Web:        defaults.Web,
		BackendURL: upstream.URL,
		Logger:     zerolog.Nop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	return &fixture{srv: srv, store: store, backend: b}
}

func (f *fixture) do(t *testing.T, req *http.Request, cookie *http.Cookie) *http.Response {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := f.srv.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

func chatRequest(message string) *http.Request {
	body, _ := json.Marshal(ChatRequest{Message: message})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// =============================================================================
// PAGE AND HISTORY
// =============================================================================

func TestIndex_NewSession(t *testing.T) {
	f := newFixture(t, &testBackend{}, nil)

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)
	assert.Contains(t, page, "OneCX Chatbot")
	assert.Contains(t, page, "Wie kann ich dir helfen?")
	assert.Contains(t, page, `placeholder="Ihre Nachricht"`)
	assert.Contains(t, page, "<style>.x{}</style>")

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	snap, err := f.store.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Len(t, snap.Messages, 1)
}

func TestHistory_ReusesCookieSession(t *testing.T) {
	f := newFixture(t, &testBackend{}, nil)

	first := f.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil), nil)
	cookie := sessionCookie(first)
	require.NotNil(t, cookie)
	h1 := decode[HistoryResponse](t, first)

	second := f.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil), cookie)
	assert.Nil(t, sessionCookie(second), "existing session must not be replaced")
	h2 := decode[HistoryResponse](t, second)

	assert.Equal(t, h1.SessionID, h2.SessionID)
	require.Len(t, h2.Messages, 1)
	assert.Equal(t, "assistant", h2.Messages[0].Role)
}

func TestHistory_UnknownCookieStartsNewSession(t *testing.T) {
	f := newFixture(t, &testBackend{}, nil)

	stale := &http.Cookie{Name: SessionCookie, Value: "1b4e28ba-2fa1-11d2-883f-0016d3cca427"}
	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil), stale)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.NotEqual(t, stale.Value, cookie.Value)
}

func TestHistory_BackendGreeting(t *testing.T) {
	f := newFixture(t, &testBackend{}, func(c *Config) {
		c.UI.UseBackendGreeting = true
	})

	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil), nil)
	h := decode[HistoryResponse](t, resp)
	assert.Equal(t, "conv-1", h.ConversationID)
	require.Len(t, h.Messages, 1)
	assert.Equal(t, "Servus", h.Messages[0].Content)
}

func TestHistory_ResumesPendingTurn(t *testing.T) {
	b := &testBackend{reply: "Erledigt"}
	f := newFixture(t, b, nil)

	st := session.Init("Hallo")
	st.Append(model.NewUserMessage("Noch da?"))
	require.NoError(t, f.store.Save(context.Background(), st.Snapshot()))

	cookie := &http.Cookie{Name: SessionCookie, Value: st.ID()}
	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil), cookie)
	h := decode[HistoryResponse](t, resp)

	require.Len(t, h.Messages, 3)
	assert.Equal(t, "Erledigt", h.Messages[2].Content)
	assert.Equal(t, int32(1), b.chats.Load())
}

// =============================================================================
// CHAT
// =============================================================================

func TestChat_Turn(t *testing.T) {
	b := &testBackend{reply: "**Hallo** Welt"}
	f := newFixture(t, b, nil)

	first := f.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil), nil)
	cookie := sessionCookie(first)

	resp := f.do(t, chatRequest("Guten Tag"), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chat := decode[ChatResponse](t, resp)

	require.NotNil(t, chat.User)
	require.NotNil(t, chat.Reply)
	assert.Equal(t, "Guten Tag", chat.User.Content)
	assert.Equal(t, "user", chat.User.Role)
	assert.Contains(t, chat.Reply.HTML, "<strong>Hallo</strong>")
	assert.Empty(t, chat.Error)

	snap, err := f.store.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Len(t, snap.Messages, 3)
	assert.Equal(t, "conv-1", snap.ConversationID)
}

func TestChat_BackendFailure(t *testing.T) {
	b := &testBackend{status: http.StatusInternalServerError}
	f := newFixture(t, b, nil)

	resp := f.do(t, chatRequest("Hilfe"), nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	chat := decode[ChatResponse](t, resp)

	require.NotNil(t, chat.Reply)
	assert.True(t, chat.Reply.IsError)
	assert.Contains(t, chat.Reply.HTML, "<pre>")
	assert.Contains(t, chat.Error, "HTTP 500")
}

func TestChat_EscapesErrorText(t *testing.T) {
	f := newFixture(t, &testBackend{}, nil)
	v := f.srv.view(model.NewErrorMessage("<b>boom</b>"))
	assert.Equal(t, "<pre>&lt;b&gt;boom&lt;/b&gt;</pre>", v.HTML)
}

func TestChat_RejectsEmpty(t *testing.T) {
	b := &testBackend{reply: "x"}
	f := newFixture(t, b, nil)

	resp := f.do(t, chatRequest("   \n"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decode[errorBody](t, resp)
	assert.NotEmpty(t, e.Error)
	assert.Equal(t, int32(0), b.chats.Load())
}

func TestChat_RejectsMalformedBody(t *testing.T) {
	f := newFixture(t, &testBackend{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := f.do(t, req, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChat_RateLimited(t *testing.T) {
	b := &testBackend{reply: "ok"}
	f := newFixture(t, b, func(c *Config) {
		c.Web.RatePerMinute = 1
		c.Web.RateBurst = 2
	})

	first := f.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil), nil)
	cookie := sessionCookie(first)

	assert.Equal(t, http.StatusOK, f.do(t, chatRequest("eins"), cookie).StatusCode)
	assert.Equal(t, http.StatusOK, f.do(t, chatRequest("zwei"), cookie).StatusCode)

	resp := f.do(t, chatRequest("drei"), cookie)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, int32(2), b.chats.Load())
}

// =============================================================================
// UPLOAD
// =============================================================================

func TestUpload(t *testing.T) {
	b := &testBackend{}
	f := newFixture(t, b, nil)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, name := range []string{"a.txt", "b.pdf"} {
		part, err := w.CreateFormFile("documents", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("content of " + name))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := f.do(t, req, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	up := decode[UploadResponse](t, resp)
	assert.Equal(t, []string{"a.txt", "b.pdf"}, up.Files)
	assert.Equal(t, "documents stored", up.Reply)
	assert.Equal(t, int32(1), b.uploads.Load())
	b.mu.Lock()
	assert.Equal(t, []string{"a.txt", "b.pdf"}, b.files)
	b.mu.Unlock()
}

func TestUpload_NoFiles(t *testing.T) {
	f := newFixture(t, &testBackend{}, nil)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("note", "x"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := f.do(t, req, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// ASSETS
// =============================================================================

func TestAvatar(t *testing.T) {
	f := newFixture(t, &testBackend{}, nil)
	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/assets/avatar", nil), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	png := assets.DefaultAvatar()
	f = newFixture(t, &testBackend{}, func(c *Config) {
		c.Assets.Avatar = &assets.Avatar{Data: png, ContentType: "image/png", Width: 64, Height: 64}
	})
	resp = f.do(t, httptest.NewRequest(http.MethodGet, "/assets/avatar", nil), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestFavicon(t *testing.T) {
	f := newFixture(t, &testBackend{}, nil)
	for _, path := range []string{"/favicon.ico", "/assets/favicon.ico"} {
		resp := f.do(t, httptest.NewRequest(http.MethodGet, path, nil), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "image/x-icon", resp.Header.Get("Content-Type"), path)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, &testBackend{}, nil)
	resp := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	h := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", h["status"])
}

// =============================================================================
// HELPERS
// =============================================================================

func TestSessionLocks_Release(t *testing.T) {
	l := newSessionLocks()
	release := l.lock("a")
	assert.Len(t, l.locks, 1)
	release()
	assert.Empty(t, l.locks)
}

func TestRateLimiter_PerKey(t *testing.T) {
	rl := newRateLimiter(1, 1, 0)
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))
	assert.Equal(t, "60", rl.retryAfter())
}
