// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and clears the variables Load reads.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, key := range []string{EnvChatURL, EnvChatPort, EnvScheme, EnvConversationType,
		EnvResources, EnvLogLevel, EnvListen, EnvStore, EnvTimeout} {
		t.Setenv(key, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Q_AND_A", cfg.Backend.ConversationType)
	assert.Equal(t, "Wie kann ich dir helfen?", cfg.UI.Greeting)
	assert.Equal(t, "Tippe...", cfg.UI.BusyText)
	assert.Equal(t, "troubleshooting_template.md", cfg.Resources.Template)
	assert.Empty(t, cfg.Backend.Host, "no host by default")
	assert.Zero(t, cfg.Backend.Timeout())
}

func TestLoad_NoFiles(t *testing.T) {
	isolate(t)
	cfg, err := Load(LoadOptions{SkipDotEnv: true})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// =============================================================================
// PRECEDENCE
// =============================================================================

func TestLoad_TOMLFile(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".chatdesk", "config.toml"), `
[backend]
host = "toml-host"
port = "7000"
timeout_secs = 30

[ui]
greeting = "Hello!"
`)

	cfg, err := Load(LoadOptions{SkipDotEnv: true})
	require.NoError(t, err)
	assert.Equal(t, "toml-host", cfg.Backend.Host)
	assert.Equal(t, "7000", cfg.Backend.Port)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout())
	assert.Equal(t, "Hello!", cfg.UI.Greeting)
	// Unset fields keep defaults.
	assert.Equal(t, "Tippe...", cfg.UI.BusyText)
	assert.Equal(t, "http", cfg.Backend.Scheme)
}

func TestLoad_Precedence(t *testing.T) {
	home := isolate(t)
	cfgPath := filepath.Join(home, "custom.toml")
	writeFile(t, cfgPath, "[backend]\nhost = \"toml-host\"\nport = \"7000\"\n")

	dotenv := filepath.Join(home, ".env")
	writeFile(t, dotenv, "CHAT_URL=dotenv-host\nCHAT_PORT=8000\n")
	// godotenv does not override variables that are already set, so unset
	// the blanks left by isolate.
	os.Unsetenv(EnvChatURL)
	os.Unsetenv(EnvChatPort)
	t.Cleanup(func() {
		os.Unsetenv(EnvChatURL)
		os.Unsetenv(EnvChatPort)
	})

	cfg, err := Load(LoadOptions{Path: cfgPath, DotEnv: dotenv})
	require.NoError(t, err)
	assert.Equal(t, "dotenv-host", cfg.Backend.Host, ".env overrides the config file")
	assert.Equal(t, "8000", cfg.Backend.Port)

	t.Setenv(EnvChatPort, "9000")
	cfg, err = Load(LoadOptions{Path: cfgPath, DotEnv: dotenv})
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Backend.Port, "process environment overrides .env")
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	isolate(t)
	_, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "nope.toml"), SkipDotEnv: true})
	require.Error(t, err)
}

func TestLoad_BadTOML(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".chatdesk", "config.toml"), "[backend\nhost=")
	_, err := Load(LoadOptions{SkipDotEnv: true})
	require.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv(EnvChatPort, "99999")
	t.Setenv(EnvStore, "redis")

	_, err := Load(LoadOptions{SkipDotEnv: true})
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	assert.True(t, fields["backend.port"])
	assert.True(t, fields["store.kind"])
}

func TestLoadDotEnv_Missing(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvChatURL:          "chat-backend",
		EnvChatPort:         "8080",
		EnvConversationType: "SUPPORT",
		EnvResources:        "/srv/res",
		EnvLogLevel:         "debug",
		EnvListen:           "127.0.0.1:9000",
		EnvStore:            "sqlite",
		EnvTimeout:          "15",
	}
	cfg := Default()
	cfg.ApplyEnvOverrides(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "chat-backend", cfg.Backend.Host)
	assert.Equal(t, "8080", cfg.Backend.Port)
	assert.Equal(t, "SUPPORT", cfg.Backend.ConversationType)
	assert.Equal(t, "/srv/res", cfg.Resources.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:9000", cfg.Web.Listen)
	assert.Equal(t, "sqlite", cfg.Store.Kind)
	assert.Equal(t, 15, cfg.Backend.TimeoutSecs)
}

func TestApplyEnvOverrides_URLWithScheme(t *testing.T) {
	tests := []struct {
		env                map[string]string
		scheme, host, port string
	}{
		{map[string]string{EnvChatURL: "https://chat.example.org"}, "https", "chat.example.org", ""},
		{map[string]string{EnvChatURL: "http://chat:7000"}, "http", "chat", "7000"},
		{map[string]string{EnvChatURL: "http://chat:7000", EnvChatPort: "8000"}, "http", "chat", "8000"},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.ApplyEnvOverrides(func(k string) (string, bool) {
			v, ok := tt.env[k]
			return v, ok
		})
		assert.Equal(t, tt.scheme, cfg.Backend.Scheme, "%v", tt.env)
		assert.Equal(t, tt.host, cfg.Backend.Host, "%v", tt.env)
		assert.Equal(t, tt.port, cfg.Backend.Port, "%v", tt.env)
	}
}

func TestApplyEnvOverrides_BlankIgnored(t *testing.T) {
	cfg := Default()
	cfg.Backend.Host = "keep"
	cfg.ApplyEnvOverrides(func(k string) (string, bool) { return "  ", true })
	assert.Equal(t, "keep", cfg.Backend.Host)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad scheme", func(c *Config) { c.Backend.Scheme = "ftp" }, "backend.scheme"},
		{"port not a number", func(c *Config) { c.Backend.Port = "http" }, "backend.port"},
		{"port zero", func(c *Config) { c.Backend.Port = "0" }, "backend.port"},
		{"host with path", func(c *Config) { c.Backend.Host = "host/path" }, "backend.host"},
		{"negative timeout", func(c *Config) { c.Backend.TimeoutSecs = -1 }, "backend.timeout_secs"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"zero burst", func(c *Config) { c.Web.RateBurst = 0 }, "web.rate_burst"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			verrs, ok := err.(ValidateErrors)
			require.True(t, ok)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidate_MissingHostAllowed(t *testing.T) {
	cfg := Default()
	cfg.Backend.Host = ""
	cfg.Backend.Port = ""
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// HELPERS
// =============================================================================

func TestResourcesPath(t *testing.T) {
	r := ResourcesConfig{Dir: "res"}
	assert.Equal(t, filepath.Join("res", "style.html"), r.Path("style.html"))
	abs := filepath.Join(t.TempDir(), "t.md")
	assert.Equal(t, abs, r.Path(abs))
	assert.Equal(t, "", r.Path(""))
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "config.toml")
	cfg := Default()
	cfg.Backend.Host = "saved-host"
	require.NoError(t, SaveTOML(cfg, path))

	loaded := Default()
	require.NoError(t, LoadTOML(loaded, path))
	assert.Equal(t, cfg, loaded)
}
