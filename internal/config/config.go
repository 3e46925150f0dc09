// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and validation for chatdesk.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/chatdesk/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chatdesk configuration.
type Config struct {
	Backend   BackendConfig   `toml:"backend"`
	UI        UIConfig        `toml:"ui"`
	Resources ResourcesConfig `toml:"resources"`
	Web       WebConfig       `toml:"web"`
	Store     StoreConfig     `toml:"store"`
	Log       LogConfig       `toml:"log"`
}

// BackendConfig locates the chat backend.
type BackendConfig struct {
	// Scheme is "http" or "https".
	Scheme string `toml:"scheme"`
	// Host of the chat backend (CHAT_URL). Empty is allowed; requests then
	// fail on first use.
	Host string `toml:"host"`
	// Port of the chat backend (CHAT_PORT).
	Port string `toml:"port"`
	// ConversationType is sent when a conversation is started.
	ConversationType string `toml:"conversation_type"`
	// CorrelationID tags every chat message.
	CorrelationID string `toml:"correlation_id"`
	// TimeoutSecs bounds each request (0 = no timeout).
	TimeoutSecs int `toml:"timeout_secs"`
}

// UIConfig contains presentation settings shared by the terminal and web UIs.
type UIConfig struct {
	Title    string `toml:"title"`
	Greeting string `toml:"greeting"`
	BusyText string `toml:"busy_text"`
	// Placeholder is shown in the empty input field.
	Placeholder string `toml:"placeholder"`
	// UseBackendGreeting replaces the configured greeting with the one the
	// backend returns when a conversation starts.
	UseBackendGreeting bool `toml:"use_backend_greeting"`
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme"`
}

// ResourcesConfig names the files under the resources directory.
type ResourcesConfig struct {
	Dir      string `toml:"dir"`
	Template string `toml:"template"`
	Avatar   string `toml:"avatar"`
	Style    string `toml:"style"`
	Favicon  string `toml:"favicon"`
}

// WebConfig contains settings for `chatdesk serve`.
type WebConfig struct {
	Listen string `toml:"listen"`
	// RatePerMinute is the sustained chat requests allowed per session.
	RatePerMinute int `toml:"rate_per_minute"`
	RateBurst     int `toml:"rate_burst"`
	// SessionTTLMinutes expires idle sessions in the memory store.
	SessionTTLMinutes int  `toml:"session_ttl_minutes"`
	MaxUploadMB       int  `toml:"max_upload_mb"`
	SecureCookie      bool `toml:"secure_cookie"`
}

// StoreConfig selects where sessions are kept.
type StoreConfig struct {
	// Kind is "memory", "sqlite" or "file".
	Kind string `toml:"kind"`
	// Path is the database file (sqlite) or directory (file). Empty uses a
	// location under ConfigDir.
	Path string `toml:"path"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level"`
	// File receives logs from the terminal UI. Empty uses ConfigDir/chatdesk.log.
	File string `toml:"file"`
	// Format is "auto", "console" or "json" for commands that log to stderr.
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Scheme:           "http",
			ConversationType: "Q_AND_A",
			CorrelationID:    "chatdesk",
			TimeoutSecs:      0,
		},
		UI: UIConfig{
			Title:       "💬 OneCX Chatbot",
			Greeting:    "Wie kann ich dir helfen?",
			BusyText:    "Tippe...",
			Placeholder: "Ihre Nachricht",
			Theme:       "auto",
		},
		Resources: ResourcesConfig{
			Dir:      "./resources",
			Template: "troubleshooting_template.md",
			Avatar:   "assistant_avatar.png",
			Style:    "style.html",
			Favicon:  "favicon.ico",
		},
		Web: WebConfig{
			Listen:            ":8501",
			RatePerMinute:     30,
			RateBurst:         5,
			SessionTTLMinutes: 120,
			MaxUploadMB:       20,
		},
		Store: StoreConfig{
			Kind: "memory",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Timeout returns the backend request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// Path returns the path of a resource file name.
func (r ResourcesConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.Dir, name)
}

// SessionTTL returns the idle expiry for web sessions.
func (w WebConfig) SessionTTL() time.Duration {
	return time.Duration(w.SessionTTLMinutes) * time.Minute
}

// MaxUploadBytes returns the upload size limit in bytes.
func (w WebConfig) MaxUploadBytes() int {
	return w.MaxUploadMB << 20
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the chatdesk configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatdesk"), nil
}

// ConfigPath returns the path to the default TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultStorePath returns the store location used when Store.Path is empty.
func DefaultStorePath(kind string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if kind == "file" {
		return filepath.Join(dir, "sessions"), nil
	}
	return filepath.Join(dir, "sessions.db"), nil
}

// DefaultLogPath returns the log file used when Log.File is empty.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chatdesk.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// Path is an explicit config file. When empty the default path is used
	// and a missing file is not an error.
	Path string
	// DotEnv is the .env file to read (default ".env"). Missing is fine.
	DotEnv string
	// SkipDotEnv disables .env loading.
	SkipDotEnv bool
}

// Load builds the configuration: defaults, then the TOML file, then the
// .env file, then environment variables. The result is validated.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path := opts.Path
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if err := LoadTOML(cfg, path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if !opts.SkipDotEnv {
		dotenv := opts.DotEnv
		if dotenv == "" {
			dotenv = ".env"
		}
		if err := LoadDotEnv(dotenv); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides(os.LookupEnv)
	fillDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv exports the variables in a .env file into the process
// environment. Variables that are already set keep their value. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// fillDefaults fills in values a partial config file left empty.
func fillDefaults(cfg *Config) {
	d := Default()

	if cfg.Backend.Scheme == "" {
		cfg.Backend.Scheme = d.Backend.Scheme
	}
	if cfg.Backend.ConversationType == "" {
		cfg.Backend.ConversationType = d.Backend.ConversationType
	}
	if cfg.Backend.CorrelationID == "" {
		cfg.Backend.CorrelationID = d.Backend.CorrelationID
	}

	if cfg.UI.Title == "" {
		cfg.UI.Title = d.UI.Title
	}
	if cfg.UI.Greeting == "" {
		cfg.UI.Greeting = d.UI.Greeting
	}
	if cfg.UI.BusyText == "" {
		cfg.UI.BusyText = d.UI.BusyText
	}
	if cfg.UI.Placeholder == "" {
		cfg.UI.Placeholder = d.UI.Placeholder
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = d.UI.Theme
	}

	if cfg.Resources.Dir == "" {
		cfg.Resources.Dir = d.Resources.Dir
	}
	if cfg.Resources.Template == "" {
		cfg.Resources.Template = d.Resources.Template
	}
	if cfg.Resources.Avatar == "" {
		cfg.Resources.Avatar = d.Resources.Avatar
	}
	if cfg.Resources.Style == "" {
		cfg.Resources.Style = d.Resources.Style
	}
	if cfg.Resources.Favicon == "" {
		cfg.Resources.Favicon = d.Resources.Favicon
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = d.Web.Listen
	}
	if cfg.Web.RatePerMinute == 0 {
		cfg.Web.RatePerMinute = d.Web.RatePerMinute
	}
	if cfg.Web.RateBurst == 0 {
		cfg.Web.RateBurst = d.Web.RateBurst
	}
	if cfg.Web.SessionTTLMinutes == 0 {
		cfg.Web.SessionTTLMinutes = d.Web.SessionTTLMinutes
	}
	if cfg.Web.MaxUploadMB == 0 {
		cfg.Web.MaxUploadMB = d.Web.MaxUploadMB
	}

	if cfg.Store.Kind == "" {
		cfg.Store.Kind = d.Store.Kind
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = d.Log.Format
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// Environment variables read by ApplyEnvOverrides.
const (
	EnvChatURL          = "CHAT_URL"
	EnvChatPort         = "CHAT_PORT"
	EnvScheme           = "CHATDESK_SCHEME"
	EnvConversationType = "CHATDESK_CONVERSATION_TYPE"
	EnvResources        = "CHATDESK_RESOURCES"
	EnvLogLevel         = "CHATDESK_LOG_LEVEL"
	EnvListen           = "CHATDESK_LISTEN"
	EnvStore            = "CHATDESK_STORE"
	EnvTimeout          = "CHATDESK_TIMEOUT_SECS"
)

// ApplyEnvOverrides applies environment variable overrides using lookup
// (normally os.LookupEnv).
//
// CHAT_URL may be a bare host or a URL with a scheme, e.g.
// "https://chat.example.org"; an explicit port in the URL is used unless
// CHAT_PORT is also set.
func (c *Config) ApplyEnvOverrides(lookup func(string) (string, bool)) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvChatURL); ok {
		c.Backend.Host = v
		if strings.Contains(v, "://") {
			if u, err := url.Parse(v); err == nil && u.Hostname() != "" {
				c.Backend.Scheme = u.Scheme
				c.Backend.Host = u.Hostname()
				if u.Port() != "" {
					c.Backend.Port = u.Port()
				}
			}
		}
	}
	if v, ok := get(EnvChatPort); ok {
		c.Backend.Port = v
	}
	if v, ok := get(EnvScheme); ok {
		c.Backend.Scheme = v
	}
	if v, ok := get(EnvConversationType); ok {
		c.Backend.ConversationType = v
	}
	if v, ok := get(EnvTimeout); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backend.TimeoutSecs = n
		}
	}
	if v, ok := get(EnvResources); ok {
		c.Resources.Dir = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := get(EnvListen); ok {
		c.Web.Listen = v
	}
	if v, ok := get(EnvStore); ok {
		c.Store.Kind = v
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with a short header.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# chatdesk configuration file\n")
	buf.WriteString("# Environment variables (CHAT_URL, CHAT_PORT, CHATDESK_*) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration. A missing backend host is allowed.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Backend.Scheme {
	case "http", "https":
	default:
		add("backend.scheme", "invalid scheme '%s', must be http or https", c.Backend.Scheme)
	}
	if c.Backend.Port != "" {
		port, err := strconv.Atoi(c.Backend.Port)
		if err != nil || port < 1 || port > 65535 {
			add("backend.port", "invalid port '%s', must be 1-65535", c.Backend.Port)
		}
	}
	if strings.ContainsAny(c.Backend.Host, "/ ") {
		add("backend.host", "invalid host '%s'", c.Backend.Host)
	}
	if c.Backend.TimeoutSecs < 0 {
		add("backend.timeout_secs", "must not be negative")
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}

	if c.Web.RatePerMinute < 0 {
		add("web.rate_per_minute", "must not be negative")
	}
	if c.Web.RateBurst < 1 {
		add("web.rate_burst", "must be at least 1")
	}
	if c.Web.MaxUploadMB < 1 {
		add("web.max_upload_mb", "must be at least 1")
	}

	switch c.Store.Kind {
	case "memory", "sqlite", "file":
	default:
		add("store.kind", "invalid store '%s', must be one of: memory, sqlite, file", c.Store.Kind)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "auto", "console", "json":
	default:
		add("log.format", "invalid format '%s', must be one of: auto, console, json", c.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
