// Package render owns the assistant scrollback. Turns are appended in order and
// projected onto any number of views; at most one typing placeholder exists.
package render

import (
	"html"
	"regexp"
	"strings"
	"sync"
	"time"

	"AssistDesk/internal/session"

	"github.com/google/uuid"
)

// TypingText is the content of the transient placeholder turn
const TypingText = "AI正在思考中..."

var (
	boldPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern = regexp.MustCompile(`\*(.*?)\*`)
)

// Format escapes text and applies the minimal markup: line breaks, **bold** and *italic*
func Format(text string) string {
	out := html.EscapeString(text)
	out = strings.ReplaceAll(out, "\n", "<br>")
	out = boldPattern.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicPattern.ReplaceAllString(out, "<em>$1</em>")
	return out
}

// Turn is one entry of the scrollback
type Turn struct {
	session.ChatMessage
	HTML   string // Markup shown to the user
	Typing bool
}

// View receives every change to the scrollback
type View interface {
	Rendered(t Turn)
	Removed(t Turn)
}

// Renderer keeps the ordered list of turns
type Renderer struct {
	views []View
	now   func() time.Time

	mu     sync.Mutex
	turns  []Turn
	seq    int
	typing string
}

// New creates an empty scrollback projected onto views
func New(views ...View) *Renderer {
	return &Renderer{views: views, now: time.Now}
}

// AddView attaches another projection
func (r *Renderer) AddView(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *Renderer) push(t Turn) Turn {
	r.mu.Lock()
	r.seq++
	t.ID = uuid.NewString()
	t.Position = r.seq
	t.Timestamp = r.now()
	r.turns = append(r.turns, t)
	views := append([]View(nil), r.views...)
	r.mu.Unlock()

	for _, v := range views {
		v.Rendered(t)
	}
	return t
}

// Append adds a turn to the end of the scrollback. Raw content is shown as is.
func (r *Renderer) Append(role session.Role, content string, raw bool) Turn {
	markup := content
	if !raw {
		markup = Format(content)
	}
	return r.push(Turn{
		ChatMessage: session.ChatMessage{Role: role, Content: content, Raw: raw},
		HTML:        markup,
	})
}

// AppendUser adds an outgoing user turn together with what it carries
func (r *Renderer) AppendUser(text string, files []session.FileRef, links []string) Turn {
	return r.push(Turn{
		ChatMessage: session.ChatMessage{
			Role:        session.RoleUser,
			Content:     text,
			Attachments: files,
			Links:       links,
		},
		HTML: Format(text),
	})
}

// ShowTyping inserts the typing placeholder and returns its id. If one is
// already shown its id is returned and nothing is inserted.
func (r *Renderer) ShowTyping() string {
	r.mu.Lock()
	if r.typing != "" {
		id := r.typing
		r.mu.Unlock()
		return id
	}
	r.mu.Unlock()

	t := r.push(Turn{
		ChatMessage: session.ChatMessage{Role: session.RoleAssistant, Content: TypingText},
		HTML:        TypingText,
		Typing:      true,
	})

	r.mu.Lock()
	r.typing = t.ID
	r.mu.Unlock()
	return t.ID
}

// HideTyping removes the typing placeholder, reporting whether one was shown
func (r *Renderer) HideTyping() bool {
	r.mu.Lock()
	if r.typing == "" {
		r.mu.Unlock()
		return false
	}
	id := r.typing
	r.typing = ""

	var removed Turn
	found := false
	for i, t := range r.turns {
		if t.ID == id {
			removed = t
			found = true
			r.turns = append(r.turns[:i], r.turns[i+1:]...)
			break
		}
	}
	views := append([]View(nil), r.views...)
	r.mu.Unlock()

	if !found {
		return false
	}
	for _, v := range views {
		v.Removed(removed)
	}
	return true
}

// Typing reports whether the placeholder is shown
func (r *Renderer) Typing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.typing != ""
}

// Turns returns a snapshot of the scrollback
func (r *Renderer) Turns() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Turn(nil), r.turns...)
}

// Reset empties the scrollback
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = nil
	r.typing = ""
}
