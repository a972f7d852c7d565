// Package transport implements the single request primitive the assistant uses to
// talk to the dashboard backend. Every response is expected to carry the
// {success, data|error} envelope; non-2xx statuses and success:false envelopes
// are both reported as errors. There is no retry and no client-side timeout.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"AssistDesk/internal/backend"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Kind classifies a request failure
type Kind int

const (
	// KindNetwork covers requests that got no response or a body that is not a valid envelope
	KindNetwork Kind = iota + 1
	// KindApplication covers well-formed responses that report failure
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Error is returned for every failed request
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when no response arrived
	Message string // Server-supplied error string or a generic status message
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsApplication reports whether err is a well-formed failure response and returns its message
func IsApplication(err error) (string, bool) {
	var terr *Error
	if errors.As(err, &terr) && terr.Kind == KindApplication {
		return terr.Message, true
	}
	return "", false
}

// Response is the decoded envelope of a successful request
type Response struct {
	Status  int
	Data    json.RawMessage
	Message string
}

// Client issues requests against the backend base URL
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	duration   metric.Float64Histogram
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTracer sets the tracer used for request spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// WithMeter sets the meter used for the request duration histogram
func WithMeter(meter metric.Meter) Option {
	return func(c *Client) {
		c.duration = newDurationHistogram(meter)
	}
}

func newDurationHistogram(meter metric.Meter) metric.Float64Histogram {
	histogram, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err != nil {
		histogram, _ = metricnoop.NewMeterProvider().Meter("transport").Float64Histogram("http.client.request.duration")
	}
	return histogram
}

// New creates a Client for baseURL
func New(baseURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{}, // platform default, no timeout
		logger:     logger,
		tracer:     tracenoop.NewTracerProvider().Tracer("transport"),
		duration:   newDurationHistogram(metricnoop.NewMeterProvider().Meter("transport")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the base every path is resolved against
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do issues a request and decodes the response envelope. The caller owns the
// body's Content-Type header.
func (c *Client) Do(ctx context.Context, method, path string, header http.Header, body io.Reader) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "http "+method+" "+path)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	start := time.Now()
	resp, err := c.do(ctx, method, path, header, body)
	c.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("url.path", path)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	c.logger.Debug("request completed", "method", method, "path", path, "status", resp.Status)
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "failed to create request", Err: err}
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: "failed to send request", Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Status: httpResp.StatusCode, Message: "failed to read response", Err: err}
	}

	ok := httpResp.StatusCode >= 200 && httpResp.StatusCode < 300
	statusMessage := fmt.Sprintf("HTTP error! status: %d", httpResp.StatusCode)

	var env backend.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if !ok {
			return nil, &Error{Kind: KindApplication, Status: httpResp.StatusCode, Message: statusMessage}
		}
		return nil, &Error{Kind: KindNetwork, Status: httpResp.StatusCode, Message: "failed to unmarshal response", Err: err}
	}

	if !ok || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = statusMessage
		}
		return nil, &Error{Kind: KindApplication, Status: httpResp.StatusCode, Message: msg}
	}

	return &Response{
		Status:  httpResp.StatusCode,
		Data:    env.Data,
		Message: env.Message,
	}, nil
}

// DoJSON sends in as a JSON body (nil for none) and decodes the envelope data into out (nil to skip)
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) (*Response, error) {
	var body io.Reader
	header := http.Header{}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, method, path, header, body)
	if err != nil {
		return nil, err
	}
	if err := decodeData(resp, out); err != nil {
		return nil, err
	}
	return resp, nil
}

// FilePart is the file section of a multipart request
type FilePart struct {
	Field       string
	FileName    string
	ContentType string // Defaults to application/octet-stream
	Content     io.Reader
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (f FilePart) header() textproto.MIMEHeader {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(f.Field), quoteEscaper.Replace(f.FileName)))
	h.Set("Content-Type", contentType)
	return h
}

// DoMultipart posts a multipart form made of fields and one file part, decoding the envelope data into out
func (c *Client) DoMultipart(ctx context.Context, path string, fields map[string]string, file FilePart, out any) (*Response, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreatePart(file.header())
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.Do(ctx, http.MethodPost, path, header, &buf)
	if err != nil {
		return nil, err
	}
	if err := decodeData(resp, out); err != nil {
		return nil, err
	}
	return resp, nil
}

func decodeData(resp *Response, out any) error {
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return &Error{Kind: KindNetwork, Status: resp.Status, Message: "failed to unmarshal response data", Err: err}
	}
	return nil
}
