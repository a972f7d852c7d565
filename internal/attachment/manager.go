package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"AssistDesk/internal/config"
	"AssistDesk/internal/session"
	"AssistDesk/internal/transport"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	ErrCapReached = errors.New("attachment limit reached")
	ErrTooLarge   = errors.New("file exceeds size limit")
)

// State is the upload state of an attachment
type State int

const (
	StatePending State = iota
	StateUploading
	StateUploaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateUploading:
		return "uploading"
	case StateUploaded:
		return "uploaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// GenericIcon is shown in place of a thumbnail for non-image files
const GenericIcon = "📄"

// Preview is the rendered thumbnail of a pending attachment
type Preview struct {
	AttachmentID string
	Name         string
	Size         string
	DataURL      string // Set for images
	Icon         string // Set for everything else
	Uploading    bool
}

// Attachment is an entry of the pending set
type Attachment struct {
	ID       string
	Name     string
	Size     int64
	MIMEType string
	State    State
	URL      string // Remote URL once uploaded
	Type     string // Server-assigned type once uploaded
	Preview  Preview
}

// Result is what the backend returns for an uploaded file
type Result struct {
	URL  string
	Type string
}

// Uploader sends one file to the backend
type Uploader interface {
	Upload(ctx context.Context, sessionID string, f File) (Result, error)
}

// Reporter receives user-visible messages about attachments
type Reporter interface {
	Report(content string)
}

// Manager tracks the bounded set of attachments waiting to be sent
type Manager struct {
	uploader Uploader
	reporter Reporter
	logger   *slog.Logger
	maxCount int
	maxBytes int64
	observe  func(a Attachment, from, to State)
	uploads  metric.Int64Counter

	mu    sync.Mutex
	items []*Attachment
}

// Option configures a Manager
type Option func(*Manager)

// WithLimits overrides the attachment cap and the per-file size ceiling
func WithLimits(maxCount int, maxBytes int64) Option {
	return func(m *Manager) {
		m.maxCount = maxCount
		m.maxBytes = maxBytes
	}
}

// WithObserver registers a callback invoked on every state transition
func WithObserver(fn func(a Attachment, from, to State)) Option {
	return func(m *Manager) {
		m.observe = fn
	}
}

// WithMeter records upload outcomes on meter
func WithMeter(meter metric.Meter) Option {
	return func(m *Manager) {
		counter, err := meter.Int64Counter("attachment.uploads",
			metric.WithDescription("Attachment uploads by result"))
		if err == nil {
			m.uploads = counter
		}
	}
}

// NewManager creates an empty attachment set
func NewManager(uploader Uploader, reporter Reporter, logger *slog.Logger, opts ...Option) *Manager {
	counter, _ := noop.NewMeterProvider().Meter("attachment").Int64Counter("attachment.uploads")
	m := &Manager{
		uploader: uploader,
		reporter: reporter,
		logger:   logger,
		maxCount: config.DefaultMaxAttachments,
		maxBytes: config.DefaultMaxFileBytes,
		observe:  func(Attachment, State, State) {},
		uploads:  counter,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) full() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) >= m.maxCount
}

func (m *Manager) reject(ctx context.Context, f File, err error, msg string) error {
	m.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "rejected")))
	m.logger.Warn("attachment rejected", "name", f.Name, "size", f.Size, "error", err)
	m.reporter.Report(msg)
	return err
}

// Add validates f, enters it into the pending set and uploads it. It returns
// once the upload has finished. A failed upload removes the entry again.
func (m *Manager) Add(ctx context.Context, sessionID string, f File) error {
	if m.full() {
		return m.reject(ctx, f, ErrCapReached,
			fmt.Sprintf("❌ 最多只能附加 %d 個檔案，請先移除部分檔案", m.maxCount))
	}
	if f.Size > m.maxBytes {
		return m.reject(ctx, f, ErrTooLarge,
			fmt.Sprintf("❌ 檔案 \"%s\" 太大，請選擇小於%s的檔案", f.Name, FormatSize(m.maxBytes)))
	}

	a := &Attachment{
		ID:       uuid.NewString(),
		Name:     f.Name,
		Size:     f.Size,
		MIMEType: f.MIMEType,
		State:    StatePending,
	}
	a.Preview = m.preview(a.ID, f)

	m.mu.Lock()
	if len(m.items) >= m.maxCount {
		m.mu.Unlock()
		return m.reject(ctx, f, ErrCapReached,
			fmt.Sprintf("❌ 最多只能附加 %d 個檔案，請先移除部分檔案", m.maxCount))
	}
	m.items = append(m.items, a)
	m.mu.Unlock()
	m.logger.Info("attachment pending", "id", a.ID, "name", a.Name, "size", a.Size)

	return m.upload(ctx, sessionID, a, f)
}

// AddAll adds files one after another; each upload completes before the next
// file is considered. Failures do not stop the batch.
func (m *Manager) AddAll(ctx context.Context, sessionID string, files []File) error {
	var errs []error
	for _, f := range files {
		if err := m.Add(ctx, sessionID, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) upload(ctx context.Context, sessionID string, a *Attachment, f File) error {
	m.transition(a, StateUploading, func() { a.Preview.Uploading = true })

	res, err := m.uploader.Upload(ctx, sessionID, f)
	if err != nil {
		m.transition(a, StateFailed, func() { a.Preview.Uploading = false })
		m.drop(a)
		m.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "failed")))
		m.logger.Error("attachment upload failed", "id", a.ID, "name", a.Name, "error", err)

		if msg, ok := transport.IsApplication(err); ok {
			m.reporter.Report(fmt.Sprintf("❌ 檔案 \"%s\" 上傳失敗：%s", a.Name, msg))
		} else {
			m.reporter.Report(fmt.Sprintf("❌ 檔案 \"%s\" 上傳失敗", a.Name))
		}
		return fmt.Errorf("failed to upload %s: %w", a.Name, err)
	}

	if !m.contains(a) {
		// Discarded by the user while the upload was in flight
		m.logger.Info("attachment removed during upload", "id", a.ID, "name", a.Name)
		return nil
	}

	m.transition(a, StateUploaded, func() {
		a.URL = res.URL
		a.Type = res.Type
		a.Preview.Uploading = false
	})
	m.uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "uploaded")))
	m.logger.Info("attachment uploaded", "id", a.ID, "name", a.Name, "url", res.URL)
	m.reporter.Report(fmt.Sprintf("✅ 檔案 \"%s\" 上傳成功", a.Name))
	return nil
}

func (m *Manager) transition(a *Attachment, to State, mutate func()) {
	m.mu.Lock()
	from := a.State
	a.State = to
	mutate()
	snapshot := *a
	m.mu.Unlock()

	m.observe(snapshot, from, to)
}

func (m *Manager) contains(a *Attachment) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item == a {
			return true
		}
	}
	return false
}

func (m *Manager) drop(a *Attachment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.items {
		if item == a {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return
		}
	}
}

func (m *Manager) preview(id string, f File) Preview {
	p := Preview{
		AttachmentID: id,
		Name:         f.Name,
		Size:         FormatSize(f.Size),
		Icon:         GenericIcon,
	}
	if !f.IsImage() {
		return p
	}

	rc, err := f.Open()
	if err != nil {
		m.logger.Warn("failed to open image for preview", "name", f.Name, "error", err)
		return p
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, m.maxBytes))
	if err != nil {
		m.logger.Warn("failed to read image for preview", "name", f.Name, "error", err)
		return p
	}
	p.Icon = ""
	p.DataURL = "data:" + f.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return p
}

// List returns the uploaded attachments in insertion order. Pending and
// failed entries are not included.
func (m *Manager) List() []session.FileRef {
	m.mu.Lock()
	defer m.mu.Unlock()

	files := []session.FileRef{}
	for _, a := range m.items {
		if a.State == StateUploaded {
			files = append(files, session.FileRef{Name: a.Name, URL: a.URL, Type: a.Type})
		}
	}
	return files
}

// Attachments returns a snapshot of the whole pending set
func (m *Manager) Attachments() []Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Attachment, len(m.items))
	for i, a := range m.items {
		out[i] = *a
	}
	return out
}

// Previews returns the preview projection of the pending set
func (m *Manager) Previews() []Preview {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Preview, len(m.items))
	for i, a := range m.items {
		out[i] = a.Preview
	}
	return out
}

// Len returns the size of the pending set
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Clear empties the pending set and its previews
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
}

// Remove discards the first entry named name. Entries are matched by display
// name only, so of two files sharing a name the older one goes first.
func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.items {
		if a.Name == name {
			m.items = append(m.items[:i], m.items[i+1:]...)
			m.logger.Info("attachment removed", "id", a.ID, "name", name)
			return true
		}
	}
	return false
}
