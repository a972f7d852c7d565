// Package main implements the assistdesk command line: an interactive terminal
// front end for the dashboard assistant plus transcript browsing commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"AssistDesk/internal/assistant"
	"AssistDesk/internal/config"
	"AssistDesk/internal/store"
	"AssistDesk/internal/telemetry"
	"AssistDesk/internal/transport"

	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flags default to the environment configuration.
func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "assistdesk",
		Short: "Chat with the dashboard assistant from the terminal",
		Long: `Interactive terminal client for the dashboard AI assistant.

Plain lines are sent to the assistant. Edit commands such as "編輯模式",
"查看可編輯內容" or "編輯貼文 post_1" are handled locally. Type /help
inside the session for slash commands.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), *cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Dashboard backend base URL")
	flags.StringVar(&cfg.UserID, "user-id", cfg.UserID, "User identifier sent on session creation")
	flags.StringVar(&cfg.SessionID, "session-id", cfg.SessionID, "Resume an existing backend session by ID")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	flags.IntVar(&cfg.MaxAttachments, "max-attachments", cfg.MaxAttachments, "Maximum pending attachments")
	flags.Int64Var(&cfg.MaxFileBytes, "max-file-bytes", cfg.MaxFileBytes, "Per-file upload size limit in bytes")
	flags.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for logs, traces and metrics")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path of the local transcript journal")
	flags.DurationVar(&cfg.ListingTTL, "listing-ttl", cfg.ListingTTL, "How long the editable-content listing is cached (0 disables)")

	root.AddCommand(newHistoryCmd(cfg))
	root.AddCommand(newSessionsCmd(cfg))
	root.AddCommand(newEditableCmd(cfg))
	return root
}

func runChat(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if cfg.Debug {
		logger.Info("Debug mode enabled")
	}

	tracer, meter, shutdown, err := telemetry.InitTelemetry(ctx, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdown()

	api, err := transport.New(cfg.BaseURL, logger,
		transport.WithTracer(tracer),
		transport.WithMeter(meter),
	)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	a, err := assistant.New(cfg, api, logger,
		assistant.WithTracer(tracer),
		assistant.WithMeter(meter),
		assistant.WithViews(assistant.NewTerminalView(os.Stdout)),
	)
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Warn("transcript journal disabled", "path", cfg.DBPath, "error", err)
	} else {
		defer st.Close()
		a.Renderer().AddView(assistant.NewJournal(st, a.Sessions(), logger))
	}

	// Sessions are created lazily, but an early attempt lets uploads carry an id
	if _, err := a.Sessions().Ensure(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: could not create a chat session yet, will retry on first message")
	}

	return a.Run(ctx, os.Stdin, os.Stdout)
}
