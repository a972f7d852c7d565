package backend

// UploadData is the data of a POST /api/upload-file response
type UploadData struct {
	URL          string  `json:"url"`
	Type         string  `json:"type"`
	PublicID     string  `json:"public_id,omitempty"`
	Size         int64   `json:"size,omitempty"`
	ResourceType string  `json:"resource_type,omitempty"`
	Content      *string `json:"content,omitempty"` // Extracted text for documents
}

// DriveLinkRequest is the body of POST /api/process-gdrive-link
type DriveLinkRequest struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// DriveLinkData is the link metadata returned for a Google Drive link
type DriveLinkData struct {
	Type        string `json:"type"` // image, document or unknown
	URL         string `json:"url,omitempty"`
	OriginalURL string `json:"original_url"`
	ContentType string `json:"content_type"`
	Content     string `json:"content,omitempty"`
	Message     string `json:"message,omitempty"`
}
