package assistant

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"AssistDesk/internal/attachment"
)

const helpText = `Available commands:
  /quit, /exit                   - Exit the assistant
  /new-session                   - Start a new chat session
  /attach <path>...              - Attach files (uploaded one after another)
  /detach <name>                 - Remove a pending attachment
  /files                         - List pending attachments
  /quick <action>                - Send a quick action (generate-post|marketing-idea|operation-help)
  /drive <url>                   - Process a Google Drive link
  /form <id> title|content <text> - Fill the edit form of a post
  /apply <id>                    - Apply the edit form of a post
  /cancel <id>                   - Cancel the edit form of a post
  /help                          - Show this help message`

// Run reads lines from in until EOF or /quit. Plain lines are sent as messages.
func (a *Assistant) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "=== AssistDesk ===")
	if id := a.sessions.Current(); id != "" {
		fmt.Fprintf(out, "Session: %s\n", id)
	}
	fmt.Fprintf(out, "Backend: %s\n", a.api.BaseURL())
	fmt.Fprintln(out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := a.handleCommand(ctx, input, out)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				a.logger.Error("command error", "command", input, "error", err)
			}
			if quit {
				break
			}
			continue
		}

		if err := a.Send(ctx, input); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			a.logger.Error("failed to send message", "error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	fmt.Fprintln(out, "Goodbye!")
	return nil
}

// handleCommand runs a slash command and reports whether the loop should stop
func (a *Assistant) handleCommand(ctx context.Context, input string, out io.Writer) (bool, error) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/new-session":
		id, err := a.NewSession(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Started new session:", id)
		return false, nil

	case "/attach":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /attach <path>...")
		}
		// Failures are already reported in the conversation
		_ = a.Attach(ctx, parts[1:]...)
		return false, nil

	case "/detach":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /detach <name>")
		}
		name := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))
		if !a.Detach(name) {
			return false, fmt.Errorf("no pending attachment named %q", name)
		}
		fmt.Fprintf(out, "Removed %s\n", name)
		return false, nil

	case "/files":
		items := a.attachments.Attachments()
		if len(items) == 0 {
			fmt.Fprintln(out, "No pending attachments.")
			return false, nil
		}
		for i, item := range items {
			fmt.Fprintf(out, "%d. %s - %s [%s]\n", i+1, item.Name, attachment.FormatSize(item.Size), item.State)
		}
		return false, nil

	case "/quick":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /quick <%s>", strings.Join(quickActionNames(), "|"))
		}
		return false, a.QuickAction(ctx, parts[1])

	case "/drive":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /drive <url>")
		}
		// Failures are already reported in the conversation
		_, _ = a.ProcessDriveLink(ctx, parts[1])
		return false, nil

	case "/form":
		if len(parts) < 4 {
			return false, fmt.Errorf("usage: /form <id> title|content <text>")
		}
		value := input
		for _, p := range parts[:3] {
			value = strings.TrimSpace(strings.TrimPrefix(value, p))
		}
		if err := a.SetFormField(parts[1], parts[2], value); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Set %s of %s\n", parts[2], parts[1])
		return false, nil

	case "/apply":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /apply <id>")
		}
		// Failures are already reported in the conversation
		_ = a.ApplyEdit(ctx, parts[1])
		return false, nil

	case "/cancel":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /cancel <id>")
		}
		a.CancelEdit(parts[1])
		return false, nil

	case "/help":
		fmt.Fprintln(out, helpText)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s, type /help for commands", parts[0])
	}
}

func quickActionNames() []string {
	names := make([]string, 0, len(QuickActions))
	for name := range QuickActions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
