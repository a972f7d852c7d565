// Package assistant wires the session, attachment, renderer and command
// components into the chat flow of the dashboard assistant.
package assistant

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"AssistDesk/internal/attachment"
	"AssistDesk/internal/cache"
	"AssistDesk/internal/command"
	"AssistDesk/internal/config"
	"AssistDesk/internal/editor"
	"AssistDesk/internal/render"
	"AssistDesk/internal/session"
	"AssistDesk/internal/transport"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var (
	// ErrBusy is returned by Send while another message is in flight
	ErrBusy = errors.New("a message is already being sent")
	// ErrUnknownAction is returned for a quick action name that is not defined
	ErrUnknownAction = errors.New("unknown quick action")
)

// Assistant is one assistant widget: a session, its scrollback and its pending attachments
type Assistant struct {
	cfg    config.Config
	api    *transport.Client
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter
	views  []render.View

	sessions    *session.Manager
	attachments *attachment.Manager
	renderer    *render.Renderer
	commands    *command.Interpreter
	editor      *editor.Client

	sent    metric.Int64Counter
	sending atomic.Bool
}

// Option configures an Assistant
type Option func(*Assistant)

// WithTracer sets the tracer used for send spans
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Assistant) {
		a.tracer = tracer
	}
}

// WithMeter sets the meter for the assistant counters
func WithMeter(meter metric.Meter) Option {
	return func(a *Assistant) {
		a.meter = meter
	}
}

// WithViews projects the scrollback onto views
func WithViews(views ...render.View) Option {
	return func(a *Assistant) {
		a.views = append(a.views, views...)
	}
}

// New creates an assistant talking to the backend through api
func New(cfg config.Config, api *transport.Client, logger *slog.Logger, opts ...Option) (*Assistant, error) {
	if api == nil {
		return nil, fmt.Errorf("transport client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	a := &Assistant{
		cfg:    cfg,
		api:    api,
		logger: logger,
		tracer: tracenoop.NewTracerProvider().Tracer("assistant"),
		meter:  metricnoop.NewMeterProvider().Meter("assistant"),
	}
	for _, opt := range opts {
		opt(a)
	}

	sent, err := a.meter.Int64Counter("assistant.messages.sent",
		metric.WithDescription("Messages posted to the chat backend"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	a.sent = sent

	var listing *cache.Cache
	if cfg.ListingTTL > 0 {
		listing = cache.New(cfg.ListingTTL)
	}

	maxCount, maxBytes := cfg.MaxAttachments, cfg.MaxFileBytes
	if maxCount <= 0 {
		maxCount = config.DefaultMaxAttachments
	}
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxFileBytes
	}

	a.sessions = session.NewManager(api, cfg.UserID, logger)
	a.renderer = render.New(a.views...)
	a.editor = editor.New(api, listing, logger)
	a.commands = command.New(a.editor, a, logger, command.WithMeter(a.meter))
	a.attachments = attachment.NewManager(attachment.NewHTTPUploader(api), a, logger,
		attachment.WithLimits(maxCount, maxBytes),
		attachment.WithMeter(a.meter),
		attachment.WithObserver(func(att attachment.Attachment, from, to attachment.State) {
			logger.Debug("attachment state changed", "name", att.Name, "from", from, "to", to)
		}),
	)

	if cfg.SessionID != "" {
		a.sessions.Adopt(cfg.SessionID)
	}
	return a, nil
}

// Say appends an assistant turn
func (a *Assistant) Say(content string) {
	a.renderer.Append(session.RoleAssistant, content, false)
}

// SayHTML appends an assistant turn whose content is markup
func (a *Assistant) SayHTML(markup string) {
	a.renderer.Append(session.RoleAssistant, markup, true)
}

// Report shows an attachment message in the conversation
func (a *Assistant) Report(content string) {
	a.Say(content)
}

// Sessions returns the session manager
func (a *Assistant) Sessions() *session.Manager {
	return a.sessions
}

// Attachments returns the pending attachment set
func (a *Assistant) Attachments() *attachment.Manager {
	return a.attachments
}

// Renderer returns the scrollback
func (a *Assistant) Renderer() *render.Renderer {
	return a.renderer
}

// Commands returns the edit-command interpreter
func (a *Assistant) Commands() *command.Interpreter {
	return a.commands
}

// Editor returns the content editor client
func (a *Assistant) Editor() *editor.Client {
	return a.editor
}
