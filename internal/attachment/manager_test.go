package attachment

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"AssistDesk/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeUploader struct {
	mu       sync.Mutex
	calls    []string
	fail     map[string]error
	inFlight int
	maxSeen  int
	during   func()
}

func (f *fakeUploader) Upload(ctx context.Context, sessionID string, file File) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, file.Name)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	err := f.fail[file.Name]
	during := f.during
	f.mu.Unlock()

	if during != nil {
		during()
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if err != nil {
		return Result{}, err
	}
	return Result{URL: "https://cdn.example.com/" + file.Name, Type: file.MIMEType}, nil
}

type recorder struct {
	messages []string
}

func (r *recorder) Report(content string) {
	r.messages = append(r.messages, content)
}

func newTestManager(u Uploader, opts ...Option) (*Manager, *recorder) {
	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(u, rec, logger, opts...), rec
}

func textFile(name string) File {
	return FromBytes(name, []byte("hello "+name), "text/plain")
}

func TestAdd_RejectsWhenCapReached(t *testing.T) {
	up := &fakeUploader{}
	m, rec := newTestManager(up)

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Add(context.Background(), "s1", textFile(strings.Repeat("a", i+1)+".txt")))
	}
	before := m.Attachments()
	callsBefore := len(up.calls)

	err := m.Add(context.Background(), "s1", textFile("sixth.txt"))
	assert.ErrorIs(t, err, ErrCapReached)
	assert.Equal(t, before, m.Attachments())
	assert.Len(t, up.calls, callsBefore)
	assert.Contains(t, rec.messages[len(rec.messages)-1], "最多只能附加 5 個檔案")
}

func TestAdd_RejectsOversizedFileWithoutUpload(t *testing.T) {
	up := &fakeUploader{}
	m, rec := newTestManager(up)

	big := File{Name: "huge.bin", Size: 10*1024*1024 + 1, MIMEType: "application/octet-stream"}
	err := m.Add(context.Background(), "s1", big)

	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, up.calls)
	assert.Zero(t, m.Len())
	require.Len(t, rec.messages, 1)
	assert.Contains(t, rec.messages[0], `"huge.bin" 太大`)
}

func TestAdd_ExactlyAtCeilingIsAccepted(t *testing.T) {
	up := &fakeUploader{}
	m, _ := newTestManager(up, WithLimits(5, 4))

	require.NoError(t, m.Add(context.Background(), "s1", FromBytes("four.txt", []byte("1234"), "text/plain")))
	assert.Equal(t, []string{"four.txt"}, up.calls)
}

func TestAdd_ImageRoundTrip(t *testing.T) {
	var transitions []string
	up := &fakeUploader{}
	m, rec := newTestManager(up, WithObserver(func(a Attachment, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}))

	img := FromBytes("chart.png", bytes.Repeat([]byte{0x89}, 2*1024*1024), "image/png")
	require.NoError(t, m.Add(context.Background(), "s1", img))

	assert.Equal(t, []string{"pending->uploading", "uploading->uploaded"}, transitions)

	files := m.List()
	require.Len(t, files, 1)
	assert.Equal(t, "chart.png", files[0].Name)
	assert.Equal(t, "https://cdn.example.com/chart.png", files[0].URL)
	assert.Equal(t, "image/png", files[0].Type)

	previews := m.Previews()
	require.Len(t, previews, 1)
	assert.True(t, strings.HasPrefix(previews[0].DataURL, "data:image/png;base64,"))
	assert.Empty(t, previews[0].Icon)
	assert.Equal(t, "2 MB", previews[0].Size)
	assert.False(t, previews[0].Uploading)
	assert.Equal(t, []string{`✅ 檔案 "chart.png" 上傳成功`}, rec.messages)

	m.Clear()
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Previews())
	assert.Empty(t, m.List())
}

func TestAdd_NonImageGetsGenericIcon(t *testing.T) {
	m, _ := newTestManager(&fakeUploader{})

	require.NoError(t, m.Add(context.Background(), "s1", textFile("notes.txt")))

	previews := m.Previews()
	require.Len(t, previews, 1)
	assert.Equal(t, GenericIcon, previews[0].Icon)
	assert.Empty(t, previews[0].DataURL)
}

func TestAdd_UploadFailureRemovesEntry(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "application error carries server message",
			err:     &transport.Error{Kind: transport.KindApplication, Status: 400, Message: "文件大小超過10MB限制"},
			wantMsg: `❌ 檔案 "bad.txt" 上傳失敗：文件大小超過10MB限制`,
		},
		{
			name:    "network error",
			err:     &transport.Error{Kind: transport.KindNetwork, Message: "failed to send request", Err: errors.New("refused")},
			wantMsg: `❌ 檔案 "bad.txt" 上傳失敗`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var last State
			up := &fakeUploader{fail: map[string]error{"bad.txt": tt.err}}
			m, rec := newTestManager(up, WithObserver(func(a Attachment, from, to State) { last = to }))

			err := m.Add(context.Background(), "s1", textFile("bad.txt"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)

			assert.Equal(t, StateFailed, last)
			assert.Zero(t, m.Len())
			assert.Equal(t, []string{tt.wantMsg}, rec.messages)
		})
	}
}

func TestAddAll_UploadsSequentially(t *testing.T) {
	up := &fakeUploader{fail: map[string]error{"b.txt": errors.New("boom")}}
	m, _ := newTestManager(up)

	err := m.AddAll(context.Background(), "s1", []File{textFile("a.txt"), textFile("b.txt"), textFile("c.txt")})
	require.Error(t, err)

	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, up.calls)
	assert.Equal(t, 1, up.maxSeen)

	names := []string{}
	for _, f := range m.List() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.txt", "c.txt"}, names)
}

func TestList_ExcludesInFlightUploads(t *testing.T) {
	up := &fakeUploader{}
	m, _ := newTestManager(up)

	var seen []Attachment
	var listed int
	up.during = func() {
		seen = m.Attachments()
		listed = len(m.List())
	}

	require.NoError(t, m.Add(context.Background(), "s1", textFile("a.txt")))

	require.Len(t, seen, 1)
	assert.Equal(t, StateUploading, seen[0].State)
	assert.True(t, seen[0].Preview.Uploading)
	assert.Zero(t, listed)
	assert.Len(t, m.List(), 1)
}

func TestRemove_MatchesByName(t *testing.T) {
	m, _ := newTestManager(&fakeUploader{})

	first := FromBytes("dup.txt", []byte("first"), "text/plain")
	second := FromBytes("dup.txt", []byte("second!"), "text/plain")
	require.NoError(t, m.Add(context.Background(), "s1", first))
	require.NoError(t, m.Add(context.Background(), "s1", second))
	require.Equal(t, 2, m.Len())

	assert.True(t, m.Remove("dup.txt"))
	remaining := m.Attachments()
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(len("second!")), remaining[0].Size)

	assert.False(t, m.Remove("missing.txt"))
}

func TestRemove_DuringUploadIsNotResurrected(t *testing.T) {
	up := &fakeUploader{}
	m, rec := newTestManager(up)
	up.during = func() { m.Remove("a.txt") }

	require.NoError(t, m.Add(context.Background(), "s1", textFile("a.txt")))
	assert.Zero(t, m.Len())
	assert.Empty(t, rec.messages)
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2 * 1024 * 1024, "2 MB"},
		{10 * 1024 * 1024, "10 MB"},
		{1234567, "1.18 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.in), "FormatSize(%d)", tt.in)
	}
}

func TestFromBytes_SniffsType(t *testing.T) {
	f := FromBytes("p.png", []byte("\x89PNG\r\n\x1a\n0000"), "")
	assert.Equal(t, "image/png", f.MIMEType)
	assert.True(t, f.IsImage())
}
