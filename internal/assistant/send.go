package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"AssistDesk/internal/attachment"
	"AssistDesk/internal/backend"
	"AssistDesk/internal/command"
	"AssistDesk/internal/config"
	"AssistDesk/internal/session"
	"AssistDesk/internal/transport"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Replies shown when the chat backend fails
const (
	MsgReplyUnavailable = "抱歉，我暫時無法回應您的問題，請稍後再試。"
	MsgNetworkProblem   = "網路連接出現問題，請檢查您的網路連接後重試。"
	MsgDriveLinkError   = "❌ 處理連結時發生錯誤"
)

// Quick action names
const (
	ActionGeneratePost  = "generate-post"
	ActionMarketingIdea = "marketing-idea"
	ActionOperationHelp = "operation-help"
)

// QuickActions maps each quick action to the prompt it sends
var QuickActions = map[string]string{
	ActionGeneratePost:  "請幫我生成一篇適合Facebook的社群貼文，主題可以是科技趨勢或產品介紹。",
	ActionMarketingIdea: "請提供一些創新的數位行銷策略建議，適合科技公司使用。",
	ActionOperationHelp: "請說明如何有效管理營運項目，包括時程規劃和團隊協作。",
}

var driveLinkPattern = regexp.MustCompile(`https://drive\.google\.com/[^\s\p{Z}\x{FEFF}]+`)

// DetectDriveLinks returns every Google Drive link in text, in order
func DetectDriveLinks(text string) []string {
	links := driveLinkPattern.FindAllString(text, -1)
	if links == nil {
		return []string{}
	}
	return links
}

// Send runs the outgoing message pipeline. Edit commands are handled locally;
// everything else is posted to the current session. Backend failures become
// assistant turns and are not returned. An empty message with no uploaded
// attachments does nothing.
func (a *Assistant) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	files := a.attachments.List()
	if text == "" && len(files) == 0 {
		return nil
	}

	if !a.sending.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer a.sending.Store(false)

	ctx, span := a.tracer.Start(ctx, "assistant.send")
	defer span.End()

	links := DetectDriveLinks(text)

	if rule, ok := command.Match(text); ok {
		span.SetAttributes(attribute.String("command.rule", rule.Name))
		a.renderer.AppendUser(text, nil, links)
		a.commands.Handle(ctx, text)
		return nil
	}

	sessionID, err := a.sessions.Ensure(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no session")
		a.logger.Error("message not sent, no chat session", "error", err)
		a.Say(MsgNetworkProblem)
		return fmt.Errorf("failed to send message: %w: %w", session.ErrNoSession, err)
	}
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("message.files", len(files)),
		attribute.Int("message.links", len(links)),
	)

	a.renderer.AppendUser(text, files, links)
	a.renderer.ShowTyping()

	req := backend.SendMessageRequest{
		Message:     text,
		Files:       make([]backend.FileRef, len(files)),
		GDriveLinks: links,
	}
	for i, f := range files {
		req.Files[i] = backend.FileRef{Name: f.Name, URL: f.URL, Type: f.Type}
	}

	var data backend.SendMessageData
	_, err = a.api.DoJSON(ctx, http.MethodPost, config.SessionMessagesPath(sessionID), req, &data)
	a.renderer.HideTyping()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.sent.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "failed")))
		a.logger.Error("failed to send message", "session_id", sessionID, "error", err)

		if _, ok := transport.IsApplication(err); ok {
			a.Say(MsgReplyUnavailable)
		} else {
			a.Say(MsgNetworkProblem)
		}
		return nil
	}

	a.sent.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ok")))
	a.sessions.Adopt(data.ReplySessionID())
	a.attachments.Clear()
	a.Say(data.AIResponse.Content)
	a.logger.Info("message sent", "session_id", a.sessions.Current(), "files", len(files), "links", len(links))
	return nil
}

// QuickAction sends the prompt of a predefined action
func (a *Assistant) QuickAction(ctx context.Context, action string) error {
	prompt, ok := QuickActions[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	a.logger.Info("quick action", "action", action)
	return a.Send(ctx, prompt)
}

// ProcessDriveLink asks the backend to resolve a Google Drive link and shows the result
func (a *Assistant) ProcessDriveLink(ctx context.Context, url string) (backend.DriveLinkData, error) {
	sessionID, err := a.sessions.Ensure(ctx)
	if err != nil {
		a.logger.Warn("processing drive link without a session", "error", err)
	}

	var data backend.DriveLinkData
	_, err = a.api.DoJSON(ctx, http.MethodPost, config.PathProcessDriveLink, backend.DriveLinkRequest{
		URL:       url,
		SessionID: sessionID,
	}, &data)
	if err != nil {
		a.logger.Error("failed to process drive link", "url", url, "error", err)
		if msg, ok := transport.IsApplication(err); ok {
			a.Say("❌ 處理連結失敗：" + msg)
		} else {
			a.Say(MsgDriveLinkError)
		}
		return backend.DriveLinkData{}, err
	}

	a.Say(formatDriveLink(data))
	return data, nil
}

func formatDriveLink(d backend.DriveLinkData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔗 **Google Drive 連結**（%s）\n", d.Type)
	if d.URL != "" {
		fmt.Fprintf(&b, "• 網址：%s\n", d.URL)
	}
	fmt.Fprintf(&b, "• 原始連結：%s\n", d.OriginalURL)
	if d.ContentType != "" {
		fmt.Fprintf(&b, "• 類型：%s\n", d.ContentType)
	}
	if d.Message != "" {
		fmt.Fprintf(&b, "\n%s", d.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Attach reads local files and uploads them one after another
func (a *Assistant) Attach(ctx context.Context, paths ...string) error {
	sessionID, err := a.sessions.Ensure(ctx)
	if err != nil {
		a.logger.Warn("uploading without a session", "error", err)
	}

	var (
		files []attachment.File
		errs  []error
	)
	for _, p := range paths {
		f, err := attachment.FromPath(p)
		if err != nil {
			a.logger.Error("failed to read attachment", "path", p, "error", err)
			a.Report(fmt.Sprintf("❌ 無法讀取檔案 \"%s\"", p))
			errs = append(errs, err)
			continue
		}
		files = append(files, f)
	}

	if err := a.attachments.AddAll(ctx, sessionID, files); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Detach discards a pending attachment by display name
func (a *Assistant) Detach(name string) bool {
	return a.attachments.Remove(name)
}

// NewSession starts a fresh backend session and clears the scrollback, the
// pending attachments and any open edit forms. On failure nothing changes.
func (a *Assistant) NewSession(ctx context.Context) (string, error) {
	id, err := a.sessions.Create(ctx)
	if err != nil {
		return "", err
	}
	a.renderer.Reset()
	a.attachments.Clear()
	a.commands.Reset()
	return id, nil
}

// SetFormField writes into an open post edit form
func (a *Assistant) SetFormField(id, field, value string) error {
	return a.commands.SetField(id, field, value)
}

// ApplyEdit submits an open post edit form
func (a *Assistant) ApplyEdit(ctx context.Context, id string) error {
	return a.commands.ApplyPostEdit(ctx, id)
}

// CancelEdit closes an open post edit form
func (a *Assistant) CancelEdit(id string) {
	a.commands.CancelEdit(id)
}
