package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"AssistDesk/internal/assistant"
	"AssistDesk/internal/command"
	"AssistDesk/internal/config"
	"AssistDesk/internal/editor"
	"AssistDesk/internal/render"
	"AssistDesk/internal/store"
	"AssistDesk/internal/telemetry"
	"AssistDesk/internal/transport"

	"github.com/spf13/cobra"
)

func openStore(cfg *config.Config) (*store.Store, error) {
	logger, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return store.Open(cfg.DBPath, logger)
}

func newHistoryCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "history <session-id>",
		Short: "Print the journaled transcript of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			messages, err := st.Transcript(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(messages) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No turns journaled for session %s\n", args[0])
				return nil
			}

			view := assistant.NewTerminalView(cmd.OutOrStdout())
			for _, m := range messages {
				markup := m.Content
				if !m.Raw {
					markup = render.Format(m.Content)
				}
				view.Rendered(render.Turn{ChatMessage: m, HTML: markup})
			}
			return nil
		},
	}
}

func newSessionsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List journaled sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			sessions, err := st.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			return printSessions(cmd.OutOrStdout(), sessions)
		},
	}
}

func printSessions(out io.Writer, sessions []store.SessionSummary) error {
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions journaled.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tTURNS\tTITLE")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Turns, s.Title)
	}
	return w.Flush()
}

func newEditableCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "editable",
		Short: "List the posts and tasks the assistant can edit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := telemetry.InitLogger(cfg.LogDir, cfg.Debug)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			api, err := transport.New(cfg.BaseURL, logger)
			if err != nil {
				return err
			}

			content, err := editor.New(api, nil, logger).EditableContent(cmd.Context())
			if err != nil {
				if msg, ok := transport.IsApplication(err); ok {
					return fmt.Errorf("backend refused listing: %s", msg)
				}
				return err
			}

			text := assistant.PlainText(render.Format(command.FormatListing(content)))
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(text))
			return nil
		},
	}
}
