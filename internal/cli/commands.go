// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/chatdesk/internal/assets"
	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/config"
	"github.com/jeranaias/chatdesk/internal/logging"
	"github.com/jeranaias/chatdesk/internal/ui/styles"
	"github.com/jeranaias/chatdesk/internal/util"
	"github.com/jeranaias/chatdesk/internal/web"
)

// =============================================================================
// ASK
// =============================================================================

func newAskCommand(g *globalFlags) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(logging.ToStderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			st := a.newState(ctx)
			msg, err := a.shell.Turn(ctx, st, strings.Join(args, " "))
			a.save(ctx, st)
			if err != nil {
				return describe(err)
			}
			newPrinter(cmd.OutOrStdout(), raw, a.cfg.UI.Theme).message(msg)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal rendering")
	return cmd
}

// =============================================================================
// UPLOAD
// =============================================================================

func newUploadCommand(g *globalFlags) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents to a conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, names, err := backend.ReadDocuments(args)
			if err != nil {
				return &UsageError{Message: err.Error()}
			}

			a, err := g.open(logging.ToStderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			st, err := a.sessionFor(ctx, sessionID)
			if err != nil {
				return err
			}
			reply, err := a.shell.Upload(ctx, st, docs)
			if err != nil {
				return describe(err)
			}
			a.save(ctx, st)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styles.RenderSuccess(fmt.Sprintf("Uploaded %s", strings.Join(names, ", "))))
			fmt.Fprintf(out, "Session: %s\n", st.ID())
			if reply != "" {
				fmt.Fprintln(out, reply)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "stored session to upload into (default: a new one)")
	return cmd
}

// =============================================================================
// EXPORT
// =============================================================================

func newExportCommand(g *globalFlags) *cobra.Command {
	var output, format string
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a stored session to markdown, JSON or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(logging.ToStderr)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.loadState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			written, err := a.export(st, output, format)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Exported to "+written))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: generated name in the current directory)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "markdown, json or html (default: from the output extension)")
	return cmd
}

// =============================================================================
// SESSIONS
// =============================================================================

func newSessionsCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(logging.ToStderr)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No stored sessions.")
				return nil
			}
			for _, s := range list {
				fmt.Fprintf(out, "%s  %s  %3d  %s\n",
					s.ID, s.UpdatedAt.Local().Format("2006-01-02 15:04"), s.MessageCount,
					util.TruncateWidth(s.Preview, 48))
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(logging.ToStderr)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("session %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Deleted "+args[0]))
			return nil
		},
	})
	return cmd
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCommand(g *globalFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser chat UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(logging.ToStderr)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := web.New(web.Config{
				Shell:      a.shell,
				Store:      a.store,
				Assets:     a.bundle,
				UI:         a.cfg.UI,
				Web:        a.cfg.Web,
				BackendURL: a.baseURL,
				Logger:     a.log.Logger,
			})
			if err != nil {
				return err
			}
			if a.baseURL == "" {
				a.log.Warn().Msg("CHAT_URL is not set; chat requests will fail")
			}
			return srv.ListenAndServe(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config, :8501)")
	return cmd
}

// =============================================================================
// INIT-ASSETS
// =============================================================================

func newInitAssetsCommand(g *globalFlags) *cobra.Command {
	var force, noConfig bool
	cmd := &cobra.Command{
		Use:   "init-assets",
		Short: "Write the default template, avatar, style, favicon and config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if !noConfig {
				path := g.configPath
				if path == "" {
					p, err := config.ConfigPath()
					if err != nil {
						return &ConfigError{Err: err}
					}
					path = p
				}
				if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
					if err := config.SaveTOML(config.Default(), path); err != nil {
						return &ConfigError{Err: err}
					}
					fmt.Fprintln(out, styles.RenderSuccess("Wrote "+path))
				}
			}

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			written, err := assets.InitAssets(cfg.Resources, force)
			for _, p := range written {
				fmt.Fprintln(out, styles.RenderSuccess("Wrote "+p))
			}
			if err != nil {
				return err
			}
			if len(written) == 0 {
				fmt.Fprintln(out, styles.RenderInfo("Resources already present in "+cfg.Resources.Dir))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing resource files")
	cmd.Flags().BoolVar(&noConfig, "no-config", false, "do not write a config file")
	return cmd
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatdesk %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
