// Package command intercepts outgoing assistant messages that ask for a local
// edit action instead of a chat reply.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"AssistDesk/internal/backend"
	"AssistDesk/internal/transport"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	// ErrEmptyEdit is returned when a post edit form is applied with no changes
	ErrEmptyEdit = errors.New("title and content are both empty")
	// ErrNoForm is returned when no edit form is open for the entity
	ErrNoForm = errors.New("no edit form for entity")
	// ErrUnknownField is returned for a form field other than title or content
	ErrUnknownField = errors.New("unknown form field")
)

// Fixed assistant replies
const (
	MsgEditEnabled = "🔧 已啟用編輯模式！我現在可以幫您修改網站內容。\n\n可用指令：\n" +
		"• \"編輯貼文 [ID]\" - 修改指定貼文\n" +
		"• \"新增貼文\" - 建立新貼文\n" +
		"• \"編輯任務 [ID]\" - 修改任務\n" +
		"• \"查看可編輯內容\" - 顯示所有可編輯項目"
	MsgEditDisabled  = "✅ 已關閉編輯模式。"
	MsgListingFailed = "❌ 無法獲取可編輯內容列表"
	MsgPostIDHint    = "❌ 請指定要編輯的貼文ID，例如：編輯貼文 post_1"
	MsgTaskIDHint    = "❌ 請指定要編輯的任務ID，例如：編輯任務 marketing_1"
	MsgCreateHint    = "❌ 請提供貼文內容，例如：新增貼文 關於AI技術的最新趨勢"
	MsgEmptyEdit     = "❌ 請至少填寫標題或內容"
	MsgEditPostError = "❌ 編輯貼文時發生錯誤"
	MsgEditTaskError = "❌ 編輯任務時發生錯誤"
	MsgCreateError   = "❌ 建立貼文時發生錯誤"
	MsgCancelled     = "✅ 已取消編輯操作"
)

const (
	titleLimit   = 50
	previewLimit = 100
	aiTag        = "AI生成"
)

// Editor performs the backend side of an edit command
type Editor interface {
	EditableContent(ctx context.Context) (backend.EditableContent, error)
	EditPost(ctx context.Context, id string, changes backend.PostChanges) (backend.Post, string, error)
	CreatePost(ctx context.Context, req backend.CreatePostRequest) (backend.Post, string, error)
	EditTask(ctx context.Context, id string, changes backend.TaskChanges) (backend.Task, string, error)
}

// Sink receives the assistant-role output of a command
type Sink interface {
	Say(content string)
	SayHTML(markup string)
}

// Interpreter dispatches edit commands and owns the edit-mode flag and open forms
type Interpreter struct {
	editor  Editor
	sink    Sink
	logger  *slog.Logger
	handled metric.Int64Counter

	mu       sync.Mutex
	editMode bool
	forms    map[string]*Form
}

// Option configures an Interpreter
type Option func(*Interpreter)

// WithMeter counts handled commands on meter
func WithMeter(meter metric.Meter) Option {
	return func(in *Interpreter) {
		counter, err := meter.Int64Counter("assistant.commands.handled",
			metric.WithDescription("Edit commands handled locally"))
		if err == nil {
			in.handled = counter
		}
	}
}

// New creates an interpreter with edit mode off
func New(editor Editor, sink Sink, logger *slog.Logger, opts ...Option) *Interpreter {
	counter, _ := noop.NewMeterProvider().Meter("command").Int64Counter("assistant.commands.handled")
	in := &Interpreter{
		editor:  editor,
		sink:    sink,
		logger:  logger,
		handled: counter,
		forms:   make(map[string]*Form),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Handle runs the first rule matching text and reports whether the message was
// consumed. Consumed messages must not reach the chat backend.
func (in *Interpreter) Handle(ctx context.Context, text string) bool {
	rule, ok := Match(text)
	if !ok {
		return false
	}

	in.logger.Info("edit command matched", "rule", rule.Name)
	in.handled.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule.Name)))

	switch rule.Name {
	case RuleEnableEdit:
		in.setEditMode(true)
		in.sink.Say(MsgEditEnabled)
	case RuleDisableEdit:
		in.setEditMode(false)
		in.sink.Say(MsgEditDisabled)
	case RuleListEditable:
		in.showEditable(ctx)
	case RuleEditPost:
		in.openPostForm(text)
	case RuleCreatePost:
		in.createPost(ctx, text)
	case RuleEditTask:
		in.editTask(ctx, text)
	}
	return true
}

// EditMode reports whether edit mode is enabled
func (in *Interpreter) EditMode() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.editMode
}

func (in *Interpreter) setEditMode(on bool) {
	in.mu.Lock()
	in.editMode = on
	in.mu.Unlock()
	in.logger.Info("edit mode changed", "enabled", on)
}

// FormatListing renders the editable content as a grouped bullet list. Empty groups are omitted.
func FormatListing(content backend.EditableContent) string {
	var b strings.Builder
	b.WriteString("📋 **可編輯內容列表：**\n\n")

	group := func(header string, items []backend.EditableItem, trailer bool) {
		if len(items) == 0 {
			return
		}
		b.WriteString(header)
		for _, item := range items {
			fmt.Fprintf(&b, "• %s: %s (%s)\n", item.ID, item.Title, item.Status)
		}
		if trailer {
			b.WriteString("\n")
		}
	}
	group("**📝 貼文：**\n", content.Posts, true)
	group("**📊 行銷任務：**\n", content.MarketingTasks, true)
	group("**⚙️ 營運任務：**\n", content.OperationTasks, false)

	b.WriteString("\n💡 使用 \"編輯 [ID]\" 來修改特定項目")
	return b.String()
}

func (in *Interpreter) showEditable(ctx context.Context) {
	content, err := in.editor.EditableContent(ctx)
	if err != nil {
		in.logger.Error("failed to list editable content", "error", err)
		in.sink.Say(MsgListingFailed)
		return
	}
	in.sink.Say(FormatListing(content))
}

func (in *Interpreter) openPostForm(text string) {
	id, ok := ExtractID(text)
	if !ok {
		in.sink.Say(MsgPostIDHint)
		return
	}

	markup, err := RenderForm(id)
	if err != nil {
		in.logger.Error("failed to render edit form", "post_id", id, "error", err)
		in.sink.Say(MsgEditPostError)
		return
	}

	in.mu.Lock()
	in.forms[id] = &Form{PostID: id}
	in.mu.Unlock()

	in.sink.SayHTML(markup)
}

// Form returns a copy of the open edit form for id
func (in *Interpreter) Form(id string) (Form, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	f, ok := in.forms[id]
	if !ok {
		return Form{}, false
	}
	return *f, true
}

// SetField writes value into a field of the open edit form for id
func (in *Interpreter) SetField(id, field, value string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	f, ok := in.forms[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoForm, id)
	}
	switch field {
	case FieldTitle:
		f.Title = value
	case FieldContent:
		f.Content = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// ApplyPostEdit submits the open edit form for id. With both fields empty the
// backend is not called.
func (in *Interpreter) ApplyPostEdit(ctx context.Context, id string) error {
	form, ok := in.Form(id)
	if !ok {
		in.sink.Say(fmt.Sprintf("❌ 找不到貼文 %s 的編輯表單", id))
		return fmt.Errorf("%w: %s", ErrNoForm, id)
	}
	if form.Title == "" && form.Content == "" {
		in.sink.Say(MsgEmptyEdit)
		return ErrEmptyEdit
	}

	post, message, err := in.editor.EditPost(ctx, id, backend.PostChanges{
		Title:   form.Title,
		Content: form.Content,
	})
	if err != nil {
		in.logger.Error("failed to apply post edit", "post_id", id, "error", err)
		if msg, ok := transport.IsApplication(err); ok {
			in.sink.Say("❌ 編輯失敗：" + msg)
		} else {
			in.sink.Say(MsgEditPostError)
		}
		return err
	}

	in.sink.Say(fmt.Sprintf("✅ %s\n\n更新內容：\n• 標題：%s\n• 內容：%s...",
		message, post.Title, truncate(post.Content, previewLimit)))
	return nil
}

// CancelEdit closes the edit form for id
func (in *Interpreter) CancelEdit(id string) {
	in.mu.Lock()
	delete(in.forms, id)
	in.mu.Unlock()
	in.sink.Say(MsgCancelled)
}

// Reset turns edit mode off and drops every open form
func (in *Interpreter) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.editMode = false
	in.forms = make(map[string]*Form)
}

func (in *Interpreter) createPost(ctx context.Context, text string) {
	content := strings.TrimSpace(createTriggers.ReplaceAllString(text, ""))
	if content == "" {
		in.sink.Say(MsgCreateHint)
		return
	}

	post, message, err := in.editor.CreatePost(ctx, backend.CreatePostRequest{
		Title:   truncate(content, titleLimit) + "...",
		Content: content,
		Tags:    []string{aiTag},
	})
	if err != nil {
		in.logger.Error("failed to create post", "error", err)
		if msg, ok := transport.IsApplication(err); ok {
			in.sink.Say("❌ 建立失敗：" + msg)
		} else {
			in.sink.Say(MsgCreateError)
		}
		return
	}

	in.sink.Say(fmt.Sprintf("✅ %s\n\n新貼文詳情：\n• ID：%s\n• 標題：%s\n• 狀態：%s",
		message, post.ID, post.Title, post.Status))
}

func (in *Interpreter) editTask(ctx context.Context, text string) {
	id, ok := ExtractID(text)
	if !ok {
		in.sink.Say(MsgTaskIDHint)
		return
	}

	rest := editTaskTrigger.ReplaceAllString(text, "")
	rest = strings.TrimSpace(strings.Replace(rest, id, "", 1))

	task, message, err := in.editor.EditTask(ctx, id, backend.TaskChanges{Description: rest})
	if err != nil {
		in.logger.Error("failed to edit task", "task_id", id, "error", err)
		if msg, ok := transport.IsApplication(err); ok {
			in.sink.Say("❌ 編輯失敗：" + msg)
		} else {
			in.sink.Say(MsgEditTaskError)
		}
		return
	}

	in.sink.Say(fmt.Sprintf("✅ %s\n\n任務詳情：\n• ID：%s\n• 標題：%s\n• 狀態：%s\n• 優先級：%s",
		message, task.ID, task.Title, task.Status, task.Priority))
}
