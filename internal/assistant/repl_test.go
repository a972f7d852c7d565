package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"AssistDesk/internal/backend"
	"AssistDesk/internal/config"
	"AssistDesk/internal/render"
	"AssistDesk/internal/session"
	"AssistDesk/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SlashCommandsAndMessages(t *testing.T) {
	fb := newFakeBackend()
	fb.reply(config.PathSessions, sessionOK)
	fb.reply(config.SessionMessagesPath("sess-1"), replyOK)
	fb.reply(config.PathEditPost, `{"success": true, "message": "AI助手已成功更新貼文內容",
		"data": {"id": "title_1", "title": "新的 標題", "content": "原始內容", "status": "draft"}}`)
	a, view := newTestAssistant(t, fb)

	input := strings.Join([]string{
		"/help",
		"Hello",
		"編輯貼文 title_1",
		"/form title_1 title 新的 標題",
		"/apply title_1",
		"/files",
		"/bogus",
		"/quit",
		"never sent",
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, a.Run(context.Background(), strings.NewReader(input), &out))

	printed := out.String()
	assert.Contains(t, printed, "=== AssistDesk ===")
	assert.Contains(t, printed, "/attach <path>...")
	assert.Contains(t, printed, "Set title of title_1")
	assert.Contains(t, printed, "No pending attachments.")
	assert.Contains(t, printed, "Error: unknown command /bogus")
	assert.Contains(t, printed, "Goodbye!")

	var req backend.EditPostRequest
	require.NoError(t, json.Unmarshal(fb.Body(config.PathEditPost), &req))
	assert.Equal(t, "title_1", req.PostID)
	assert.Equal(t, "新的 標題", req.Changes.Title)

	assert.Contains(t, view.last().Content, "• 標題：新的 標題")
	assert.NotContains(t, fb.Calls(), "never sent")
}

func TestRun_QuickActionUsage(t *testing.T) {
	fb := newFakeBackend()
	a, _ := newTestAssistant(t, fb)

	var out bytes.Buffer
	require.NoError(t, a.Run(context.Background(), strings.NewReader("/quick\n/quick nope\n"), &out))

	assert.Contains(t, out.String(), "usage: /quick <generate-post|marketing-idea|operation-help>")
	assert.Contains(t, out.String(), "unknown quick action: nope")
	assert.Empty(t, fb.Calls())
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "a\nb bold x<y", PlainText(render.Format("a\nb **bold** x<y")))
}

func TestFormText(t *testing.T) {
	markup := `<div class="ai-edit-form" data-entity="post_1"><h4>🔧 編輯貼文: post_1</h4>` +
		`<button data-action="apply" data-entity="post_1">應用修改</button>` +
		`<button data-action="cancel" data-entity="post_1">取消</button></div>`

	text := FormText(markup)

	assert.Contains(t, text, "🔧 編輯貼文: post_1")
	assert.Contains(t, text, "/form post_1 title <新標題>")
	assert.Contains(t, text, "/apply post_1  應用修改")
	assert.Contains(t, text, "/cancel post_1  取消")
}

func TestTerminalView(t *testing.T) {
	var out bytes.Buffer
	v := NewTerminalView(&out)
	r := render.New(v)

	r.AppendUser("看這個", []session.FileRef{{Name: "a.png", Type: "image/png"}}, []string{"https://drive.google.com/x"})
	r.ShowTyping()
	r.HideTyping()
	r.Append(session.RoleAssistant, "**好的**", false)

	printed := out.String()
	assert.Contains(t, printed, "You:")
	assert.Contains(t, printed, "📎 a.png (image/png)")
	assert.Contains(t, printed, "🔗 https://drive.google.com/x")
	assert.Contains(t, printed, render.TypingText)
	assert.Contains(t, printed, "AI:")
	assert.Contains(t, printed, "好的")
	assert.NotContains(t, printed, "<strong>")
}

func TestJournal_RecordsTurnsOfCurrentSession(t *testing.T) {
	fb := newFakeBackend()
	fb.reply(config.PathSessions, sessionOK)
	fb.reply(config.SessionMessagesPath("sess-1"), replyOK)
	a, _ := newTestAssistant(t, fb)

	st, err := store.Open(filepath.Join(t.TempDir(), "journal.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	a.Renderer().AddView(NewJournal(st, a.Sessions(), testLogger()))

	// Rendered before any session exists, so not journaled
	require.NoError(t, a.Send(context.Background(), "編輯模式"))
	require.NoError(t, a.Send(context.Background(), "Hello"))

	turns, err := st.Transcript(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, session.RoleUser, turns[0].Role)
	assert.Equal(t, "Hello", turns[0].Content)
	assert.Equal(t, "您好！有什麼可以幫您？", turns[1].Content)

	sessions, err := st.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, strings.HasPrefix(sessions[0].Title, session.TitlePrefix))
}
