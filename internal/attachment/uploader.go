package attachment

import (
	"context"
	"fmt"

	"AssistDesk/internal/backend"
	"AssistDesk/internal/config"
	"AssistDesk/internal/transport"
)

// MultipartAPI is the slice of the transport the uploader needs
type MultipartAPI interface {
	DoMultipart(ctx context.Context, path string, fields map[string]string, file transport.FilePart, out any) (*transport.Response, error)
}

// HTTPUploader uploads files to the backend's upload endpoint
type HTTPUploader struct {
	api MultipartAPI
}

// NewHTTPUploader creates an uploader on top of api
func NewHTTPUploader(api MultipartAPI) *HTTPUploader {
	return &HTTPUploader{api: api}
}

// Upload posts f together with the session identifier
func (u *HTTPUploader) Upload(ctx context.Context, sessionID string, f File) (Result, error) {
	rc, err := f.Open()
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	var data backend.UploadData
	_, err = u.api.DoMultipart(ctx, config.PathUploadFile,
		map[string]string{"session_id": sessionID},
		transport.FilePart{
			Field:       "file",
			FileName:    f.Name,
			ContentType: f.MIMEType,
			Content:     rc,
		},
		&data,
	)
	if err != nil {
		return Result{}, err
	}
	if data.URL == "" {
		return Result{}, fmt.Errorf("upload of %s returned no URL", f.Name)
	}

	fileType := data.Type
	if fileType == "" {
		fileType = f.MIMEType
	}
	return Result{URL: data.URL, Type: fileType}, nil
}
