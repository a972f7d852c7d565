package render

import (
	"testing"

	"AssistDesk/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingView struct {
	rendered []Turn
	removed  []Turn
}

func (v *recordingView) Rendered(t Turn) { v.rendered = append(v.rendered, t) }
func (v *recordingView) Removed(t Turn)  { v.removed = append(v.removed, t) }

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"line breaks", "a\nb\n", "a<br>b<br>"},
		{"bold", "**重要**", "<strong>重要</strong>"},
		{"italic", "*note*", "<em>note</em>"},
		{"bold then italic", "**a** and *b*", "<strong>a</strong> and <em>b</em>"},
		{"escapes html", "<b>x</b> & y", "&lt;b&gt;x&lt;/b&gt; &amp; y"},
		{"unterminated marker", "2 * 3", "2 * 3"},
		{"non greedy", "*a* *b*", "<em>a</em> <em>b</em>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestAppend_OrdersTurnsAndNotifiesViews(t *testing.T) {
	view := &recordingView{}
	r := New(view)

	first := r.Append(session.RoleUser, "hi *there*", false)
	second := r.Append(session.RoleAssistant, "<form>x</form>", true)

	assert.Equal(t, "hi <em>there</em>", first.HTML)
	assert.Equal(t, "<form>x</form>", second.HTML)
	assert.True(t, second.Raw)
	assert.Less(t, first.Position, second.Position)
	assert.NotEqual(t, first.ID, second.ID)

	turns := r.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, first.ID, turns[0].ID)
	assert.Equal(t, second.ID, turns[1].ID)
	assert.Len(t, view.rendered, 2)
}

func TestAppendUser_CarriesAttachmentsAndLinks(t *testing.T) {
	r := New()
	files := []session.FileRef{{Name: "a.png", URL: "https://cdn/a.png", Type: "image/png"}}
	links := []string{"https://drive.google.com/file/d/1"}

	turn := r.AppendUser("see attached", files, links)

	assert.Equal(t, session.RoleUser, turn.Role)
	assert.Equal(t, files, turn.Attachments)
	assert.Equal(t, links, turn.Links)
}

func TestTyping_SingleIndicator(t *testing.T) {
	view := &recordingView{}
	r := New(view)

	id := r.ShowTyping()
	again := r.ShowTyping()
	assert.Equal(t, id, again)
	assert.True(t, r.Typing())
	require.Len(t, r.Turns(), 1)

	r.Append(session.RoleUser, "meanwhile", false)

	assert.True(t, r.HideTyping())
	assert.False(t, r.HideTyping())
	assert.False(t, r.Typing())

	turns := r.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "meanwhile", turns[0].Content)

	require.Len(t, view.removed, 1)
	assert.Equal(t, id, view.removed[0].ID)
	assert.True(t, view.removed[0].Typing)
}

func TestReset(t *testing.T) {
	r := New()
	r.Append(session.RoleUser, "x", false)
	r.ShowTyping()

	r.Reset()

	assert.Empty(t, r.Turns())
	assert.False(t, r.Typing())
	assert.False(t, r.HideTyping())
}
