package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultMaxAttachments = 5
	DefaultMaxFileBytes   = 10 * 1024 * 1024
)

// Backend REST surface, relative to BaseURL
const (
	PathSessions          = "/api/chat/sessions"
	PathUploadFile        = "/api/upload-file"
	PathProcessDriveLink  = "/api/process-gdrive-link"
	PathEditableContent   = "/api/ai-editor/get-editable-content"
	PathEditPost          = "/api/ai-editor/edit-post"
	PathCreatePost        = "/api/ai-editor/create-post"
	PathEditMarketingTask = "/api/ai-editor/edit-marketing-task"
	PathEditOperationTask = "/api/ai-editor/edit-operation-task"
)

// SessionMessagesPath returns the message endpoint of a chat session
func SessionMessagesPath(sessionID string) string {
	return PathSessions + "/" + url.PathEscape(sessionID) + "/messages"
}

// Config holds application configuration
type Config struct {
	BaseURL   string `env:"ASSISTDESK_BASE_URL" envDefault:"http://localhost:5000"`
	UserID    string `env:"ASSISTDESK_USER_ID" envDefault:"current_user"`
	SessionID string `env:"ASSISTDESK_SESSION_ID"` // Resume an existing backend session
	Debug     bool   `env:"ASSISTDESK_DEBUG" envDefault:"false"`

	MaxAttachments int   `env:"ASSISTDESK_MAX_ATTACHMENTS" envDefault:"5"`
	MaxFileBytes   int64 `env:"ASSISTDESK_MAX_FILE_BYTES" envDefault:"10485760"`

	LogDir     string        `env:"ASSISTDESK_LOG_DIR" envDefault:"logs"`
	DBPath     string        `env:"ASSISTDESK_DB_PATH" envDefault:"assistdesk.db"`
	ListingTTL time.Duration `env:"ASSISTDESK_LISTING_TTL" envDefault:"5m"`
}

// Load reads the configuration from the environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base URL must not be empty")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
	}
	if c.MaxAttachments <= 0 {
		return fmt.Errorf("max attachments must be positive, got %d", c.MaxAttachments)
	}
	if c.MaxFileBytes <= 0 {
		return fmt.Errorf("max file bytes must be positive, got %d", c.MaxFileBytes)
	}
	if c.ListingTTL < 0 {
		return fmt.Errorf("listing TTL must not be negative, got %s", c.ListingTTL)
	}
	return nil
}
