package backend

import "encoding/json"

// Envelope is the response wrapper every endpoint returns
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"` // Human-readable confirmation (editor endpoints)
}
