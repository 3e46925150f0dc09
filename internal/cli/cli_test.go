// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/storage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func fakeBackend(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(backend.PathStartConversation, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"conversationId":"conv-9","history":[]}`)
	})
	mux.HandleFunc(backend.PathChat, func(w http.ResponseWriter, r *http.Request) {
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		_, _ = io.WriteString(w, reply)
	})
	mux.HandleFunc(backend.PathUploadMultiple, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "documents stored")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	dir    string
	config string
	flags  []string
}

// newTestEnv writes a config using a file store under a temp dir and
// points CHAT_URL at chatURL.
func newTestEnv(t *testing.T, chatURL string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Resources.Dir = filepath.Join(dir, "resources")
	cfg.Store.Kind = storage.KindFile
	cfg.Store.Path = filepath.Join(dir, "sessions")
	cfg.Log.Level = "error"
	cfg.Log.Format = "json"
	cfg.Log.File = filepath.Join(dir, "chatdesk.log")
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.SaveTOML(cfg, path))

	for _, key := range []string{
		config.EnvChatPort, config.EnvScheme, config.EnvConversationType,
		config.EnvResources, config.EnvLogLevel, config.EnvListen,
		config.EnvStore, config.EnvTimeout,
	} {
		t.Setenv(key, "")
	}
	t.Setenv(config.EnvChatURL, chatURL)

	return &testEnv{
		dir:    dir,
		config: path,
		flags:  []string{"--config", path, "--env-file", filepath.Join(dir, "missing.env")},
	}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, e.flags...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) sessions(t *testing.T) []storage.Summary {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(e.dir, "sessions"))
	require.NoError(t, err)
	defer store.Close()
	list, err := store.List(context.Background())
	require.NoError(t, err)
	return list
}

type scriptedPrompter struct {
	lines []string
}

func (s *scriptedPrompter) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestVersion(t *testing.T) {
	env := newTestEnv(t, "")
	out, err := env.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "chatdesk "+Version)
}

func TestAsk(t *testing.T) {
	srv := fakeBackend(t, 0, "Antwort **fett**")
	env := newTestEnv(t, srv.URL)

	out, err := env.run(t, "ask", "Wie", "geht's?")
	require.NoError(t, err)
	assert.Contains(t, out, "Antwort **fett**")

	list := env.sessions(t)
	require.Len(t, list, 1)
	assert.Equal(t, "conv-9", list[0].ConversationID)
	assert.Equal(t, "Wie geht's?", list[0].Preview)
}

func TestAsk_BackendError(t *testing.T) {
	srv := fakeBackend(t, http.StatusBadGateway, "")
	env := newTestEnv(t, srv.URL)

	_, err := env.run(t, "ask", "Hallo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
	assert.Equal(t, ExitNetworkError, ExitCode(err))
}

func TestAsk_NotConfigured(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.run(t, "ask", "Hallo")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

func TestInvalidLogLevel(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.run(t, "sessions", "--log-level", "loud")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

func TestUpload(t *testing.T) {
	srv := fakeBackend(t, 0, "")
	env := newTestEnv(t, srv.URL)

	a := filepath.Join(env.dir, "a.txt")
	b := filepath.Join(env.dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("beta"), 0644))

	out, err := env.run(t, "upload", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded a.txt, b.txt")
	assert.Contains(t, out, "documents stored")

	list := env.sessions(t)
	require.Len(t, list, 1)
	assert.Equal(t, "conv-9", list[0].ConversationID)
}

func TestUpload_MissingFile(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.run(t, "upload", filepath.Join(env.dir, "nope.pdf"))
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestExportAndSessions(t *testing.T) {
	srv := fakeBackend(t, 0, "Neu starten hilft.")
	env := newTestEnv(t, srv.URL)

	_, err := env.run(t, "ask", "Was tun?")
	require.NoError(t, err)
	list := env.sessions(t)
	require.Len(t, list, 1)
	id := list[0].ID

	out, err := env.run(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Was tun?")

	target := filepath.Join(env.dir, "out.md")
	out, err = env.run(t, "export", id, "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported to")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Was tun?")
	assert.Contains(t, string(data), "Neu starten hilft.")

	jsonTarget := filepath.Join(env.dir, "out.txt")
	_, err = env.run(t, "export", id, "-o", jsonTarget, "--format", "json")
	require.NoError(t, err)
	data, err = os.ReadFile(jsonTarget)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"conversation_id": "conv-9"`)

	out, err = env.run(t, "sessions", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted")
	assert.Empty(t, env.sessions(t))
}

func TestExport_UnknownSession(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.run(t, "export", "d4f8e0a2-0000-4000-8000-000000000000")
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, ExitCode(err))
}

func TestInitAssets(t *testing.T) {
	env := newTestEnv(t, "")
	res := filepath.Join(env.dir, "res")
	t.Setenv(config.EnvResources, res)

	cfgPath := filepath.Join(env.dir, "fresh", "config.toml")
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"init-assets", "--config", cfgPath, "--env-file", filepath.Join(env.dir, "missing.env")})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.FileExists(t, cfgPath)
	for _, name := range []string{"troubleshooting_template.md", "assistant_avatar.png", "style.html", "favicon.ico"} {
		assert.FileExists(t, filepath.Join(res, name))
	}

	out2, err := env.run(t, "init-assets", "--no-config")
	require.NoError(t, err)
	assert.NotContains(t, out2, "Wrote "+env.config)
}

// =============================================================================
// REPL
// =============================================================================

func openTestApp(t *testing.T, env *testEnv) *app {
	t.Helper()
	g := &globalFlags{configPath: env.config, envFile: filepath.Join(env.dir, "missing.env")}
	a, err := g.open(logging.ToStderr)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestREPL(t *testing.T) {
	srv := fakeBackend(t, 0, "Probier es nochmal.")
	env := newTestEnv(t, srv.URL)
	a := openTestApp(t, env)

	ctx := context.Background()
	st := a.newState(ctx)
	in := &scriptedPrompter{lines: []string{"", "Es geht nicht", "/session", "/frobnicate", "/help", "/quit", "never read"}}
	var out bytes.Buffer
	require.NoError(t, runREPL(ctx, a, st, in, &out))

	text := out.String()
	assert.Contains(t, text, "Wie kann ich dir helfen?")
	assert.Contains(t, text, "Probier es nochmal.")
	assert.Contains(t, text, "Session:      "+st.ID())
	assert.Contains(t, text, "Conversation: conv-9")
	assert.Contains(t, text, "Unknown command /frobnicate")
	assert.Contains(t, text, "/upload <file>...")
	assert.Equal(t, []string{"never read"}, in.lines)

	assert.Equal(t, 3, st.Len())
	snap, err := a.store.Load(ctx, st.ID())
	require.NoError(t, err)
	assert.Len(t, snap.Messages, 3)
}

func TestREPL_FailedTurn(t *testing.T) {
	srv := fakeBackend(t, http.StatusInternalServerError, "")
	env := newTestEnv(t, srv.URL)
	a := openTestApp(t, env)

	ctx := context.Background()
	st := a.newState(ctx)
	var out bytes.Buffer
	require.NoError(t, runREPL(ctx, a, st, &scriptedPrompter{lines: []string{"Hilfe"}}, &out))

	assert.Contains(t, out.String(), "HTTP 500")
	last := st.Last()
	require.NotNil(t, last)
	assert.True(t, last.IsError)
}

func TestREPL_UploadAndExport(t *testing.T) {
	srv := fakeBackend(t, 0, "ok")
	env := newTestEnv(t, srv.URL)
	a := openTestApp(t, env)

	doc := filepath.Join(env.dir, "log.txt")
	require.NoError(t, os.WriteFile(doc, []byte("stack trace"), 0644))
	target := filepath.Join(env.dir, "chat.html")

	ctx := context.Background()
	st := a.newState(ctx)
	in := &scriptedPrompter{lines: []string{
		"/upload",
		"/upload " + doc,
		"/export " + target,
	}}
	var out bytes.Buffer
	require.NoError(t, runREPL(ctx, a, st, in, &out))

	text := out.String()
	assert.Contains(t, text, "Usage: /upload")
	assert.Contains(t, text, "Uploaded log.txt")
	assert.Contains(t, text, "Exported to "+target)
	assert.FileExists(t, target)
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("x"), ExitGeneralError},
		{"config", &ConfigError{Err: errors.New("bad")}, ExitConfigError},
		{"usage", &UsageError{Message: "bad"}, ExitUsageError},
		{"not found", fmt.Errorf("session x: %w", storage.ErrNotFound), ExitNotFoundError},
		{"timeout", describe(&backend.ClientError{Type: backend.ErrTypeTimeout}), ExitTimeoutError},
		{"connection", &backend.ClientError{Type: backend.ErrTypeConnection}, ExitNetworkError},
		{"not configured", &backend.ClientError{Type: backend.ErrTypeNotConfigured}, ExitConfigError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
