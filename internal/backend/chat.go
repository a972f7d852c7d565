package backend

// CreateSessionRequest is the body of POST /api/chat/sessions
type CreateSessionRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
}

// SessionData is the data of a session creation response
type SessionData struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// FileRef describes an uploaded attachment sent alongside a message
type FileRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// SendMessageRequest is the body of POST /api/chat/sessions/{id}/messages
type SendMessageRequest struct {
	Message     string    `json:"message"`
	Files       []FileRef `json:"files"`
	GDriveLinks []string  `json:"gdrive_links"`
}

// ChatMessageData is a stored chat message as returned by the backend
type ChatMessageData struct {
	ID        any    `json:"id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SendMessageData is the data of a message send response
type SendMessageData struct {
	UserMessage *ChatMessageData `json:"user_message,omitempty"`
	AIResponse  ChatMessageData  `json:"ai_response"`
	SessionID   string           `json:"session_id,omitempty"`
}

// ReplySessionID returns the session identity the server attached to the reply, if any
func (d SendMessageData) ReplySessionID() string {
	if d.SessionID != "" {
		return d.SessionID
	}
	return d.AIResponse.SessionID
}
