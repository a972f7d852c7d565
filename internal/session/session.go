package session

import "time"

// Role is the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FileRef is an uploaded attachment referenced by a message
type FileRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"` // MIME type assigned by the server
}

// ChatMessage represents a single turn of a session
type ChatMessage struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Raw         bool      `json:"raw"`      // Content is literal HTML
	Position    int       `json:"position"` // Insertion order = display order
	Attachments []FileRef `json:"attachments,omitempty"`
	Links       []string  `json:"links,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChatSession represents a backend chat session
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
