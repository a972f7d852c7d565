package attachment

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// File is a local file offered for upload
type File struct {
	Name     string
	Size     int64
	MIMEType string
	open     func() (io.ReadCloser, error)
}

// Open returns a fresh reader over the file content
func (f File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("file %q has no content", f.Name)
	}
	return f.open()
}

// IsImage reports whether the file is an image
func (f File) IsImage() bool {
	return strings.HasPrefix(f.MIMEType, "image/")
}

// FromPath describes a file on disk, sniffing its MIME type from content
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to detect type of %s: %w", path, err)
	}

	return File{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MIMEType: mtype.String(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FromBytes describes an in-memory file such as pasted content. An empty
// mimeType is sniffed from data.
func FromBytes(name string, data []byte, mimeType string) File {
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	return File{
		Name:     name,
		Size:     int64(len(data)),
		MIMEType: mimeType,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FormatSize renders a byte count the way the preview shows it
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	i := 0
	for limit := int64(1024); n >= limit && i < len(sizes)-1; limit *= 1024 {
		i++
	}
	v := float64(n) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizes[i]
}
