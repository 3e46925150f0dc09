// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/assets"
	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/markdown"
	"github.com/jeranaias/chatdesk/internal/session"
	"github.com/jeranaias/chatdesk/internal/storage"
	"github.com/jeranaias/chatdesk/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), styles.RenderError(err.Error()))
		return ExitCode(err)
	}
	return ExitSuccess
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	chatOpts := &chatOptions{}
	root := &cobra.Command{
		Use:           "chatdesk",
		Short:         "Chat with the OneCX troubleshooting assistant",
		Long:          "chatdesk talks to a conversational backend from the terminal or the browser.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, g, chatOpts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (default ~/.chatdesk/config.toml)")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file read before the environment")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newChatCommand(g),
		newServeCommand(g),
		newAskCommand(g),
		newUploadCommand(g),
		newExportCommand(g),
		newSessionsCommand(g),
		newInitAssetsCommand(g),
		newVersionCommand(),
	)
	return root
}

// =============================================================================
// WIRING
// =============================================================================

// app holds the collaborators built from configuration.
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	bundle  *assets.Bundle
	client  *backend.Client
	shell   *session.Shell
	store   storage.Store
	baseURL string
}

// loadConfig reads the configuration and applies flag overrides.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{Path: g.configPath, DotEnv: g.envFile})
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if g.logLevel != "" {
		if _, err := logging.ParseLevel(g.logLevel); err != nil {
			return nil, &ConfigError{Err: err}
		}
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

// open builds the app. Logs go to dest; the terminal UI logs to a file.
func (g *globalFlags) open(dest logging.Destination) (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}

	logOpts := logging.Options{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		File:        cfg.Log.File,
		Destination: dest,
	}
	if dest == logging.ToFile && logOpts.File == "" {
		if logOpts.File, err = config.DefaultLogPath(); err != nil {
			return nil, err
		}
	}
	log, err := logging.Setup(logOpts)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	bundle := assets.Load(cfg.Resources, log.Logger)
	baseURL := backend.BuildBaseURL(cfg.Backend.Scheme, cfg.Backend.Host, cfg.Backend.Port)
	client := backend.NewClient(backend.ClientConfig{
		BaseURL:       baseURL,
		Timeout:       cfg.Backend.Timeout(),
		CorrelationID: cfg.Backend.CorrelationID,
		Logger:        &log.Logger,
	})
	shell := session.NewShell(session.ShellConfig{
		Backend:          client,
		Renderer:         markdown.NewFormatter(bundle.Template, log.Logger),
		ConversationType: cfg.Backend.ConversationType,
		Logger:           log.Logger,
	})

	storePath := cfg.Store.Path
	if storePath == "" && cfg.Store.Kind != storage.KindMemory {
		if storePath, err = config.DefaultStorePath(cfg.Store.Kind); err != nil {
			log.Close()
			return nil, err
		}
	}
	store, err := storage.Open(storage.Options{
		Kind: cfg.Store.Kind,
		Path: storePath,
		TTL:  cfg.Web.SessionTTL(),
	})
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	log.Debug().Str("backend", baseURL).Str("store", cfg.Store.Kind).Msg("chatdesk ready")
	return &app{
		cfg:     cfg,
		log:     log,
		bundle:  bundle,
		client:  client,
		shell:   shell,
		store:   store,
		baseURL: baseURL,
	}, nil
}

// Close releases the store and the log file.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close session store")
	}
	a.log.Close()
}

// newState creates a session using the configured greeting.
func (a *app) newState(ctx context.Context) *session.State {
	st, err := a.shell.NewState(ctx, a.cfg.UI.Greeting, a.cfg.UI.UseBackendGreeting)
	if err != nil {
		a.log.Warn().Err(err).Msg("using configured greeting")
	}
	return st
}

// loadState restores a stored session.
func (a *app) loadState(ctx context.Context, id string) (*session.State, error) {
	snap, err := a.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return session.Restore(snap), nil
}
