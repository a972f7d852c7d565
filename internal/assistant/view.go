package assistant

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"AssistDesk/internal/render"
	"AssistDesk/internal/session"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/lipgloss"
)

// Styles of the terminal transcript
type Styles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Typing    lipgloss.Style
	Form      lipgloss.Style
	Hint      lipgloss.Style
}

// DefaultStyles returns the terminal transcript styles
func DefaultStyles() Styles {
	return Styles{
		User: lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true),
		Assistant: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true),
		Typing: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Italic(true),
		Form: lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("11")),
		Hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
	}
}

// TerminalView prints the scrollback to a terminal
type TerminalView struct {
	out    io.Writer
	styles Styles
	mu     sync.Mutex
}

// NewTerminalView creates a view writing to out
func NewTerminalView(out io.Writer) *TerminalView {
	return &TerminalView{out: out, styles: DefaultStyles()}
}

// Rendered prints a new turn
func (v *TerminalView) Rendered(t render.Turn) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if t.Typing {
		fmt.Fprintln(v.out, v.styles.Typing.Render(t.Content))
		return
	}

	label := v.styles.Assistant.Render("AI:")
	if t.Role == session.RoleUser {
		label = v.styles.User.Render("You:")
	}

	var body string
	if t.Raw {
		body = v.styles.Form.Render(FormText(t.HTML))
	} else {
		body = PlainText(t.HTML)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", label, body)
	for _, f := range t.Attachments {
		fmt.Fprintf(&b, "  📎 %s (%s)\n", f.Name, f.Type)
	}
	for _, l := range t.Links {
		fmt.Fprintf(&b, "  🔗 %s\n", l)
	}
	fmt.Fprintln(v.out, b.String())
}

// Removed is a no-op; printed lines stay in the terminal
func (v *TerminalView) Removed(t render.Turn) {}

func parse(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	return doc, nil
}

// PlainText strips formatted turn markup down to text
func PlainText(markup string) string {
	doc, err := parse(markup)
	if err != nil {
		return markup
	}
	return doc.Text()
}

// FormText renders a raw markup turn for the terminal. Edit forms become the
// slash commands that fill and submit them.
func FormText(markup string) string {
	doc, err := parse(markup)
	if err != nil {
		return markup
	}

	forms := doc.Find(".ai-edit-form")
	if forms.Length() == 0 {
		return strings.TrimSpace(doc.Text())
	}

	var b strings.Builder
	forms.Each(func(_ int, sel *goquery.Selection) {
		id, ok := sel.Attr("data-entity")
		if !ok {
			return
		}
		fmt.Fprintln(&b, strings.TrimSpace(sel.Find("h4").Text()))
		fmt.Fprintf(&b, "  /form %s title <新標題>\n", id)
		fmt.Fprintf(&b, "  /form %s content <新內容>\n", id)
		sel.Find("[data-action]").Each(func(_ int, btn *goquery.Selection) {
			action, _ := btn.Attr("data-action")
			fmt.Fprintf(&b, "  /%s %s  %s\n", action, id, strings.TrimSpace(btn.Text()))
		})
	})
	return strings.TrimRight(b.String(), "\n")
}
