// Package editor talks to the dashboard's /api/ai-editor endpoints.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"AssistDesk/internal/backend"
	"AssistDesk/internal/cache"
	"AssistDesk/internal/config"
	"AssistDesk/internal/transport"
)

// MarketingPrefix marks task identifiers that belong to the marketing board
const MarketingPrefix = "marketing_"

// API is the slice of the transport the editor needs
type API interface {
	DoJSON(ctx context.Context, method, path string, in, out any) (*transport.Response, error)
}

// Client performs content edits on behalf of the assistant
type Client struct {
	api    API
	cache  *cache.Cache
	logger *slog.Logger
}

// New creates an editor client. A nil listing cache disables caching.
func New(api API, listing *cache.Cache, logger *slog.Logger) *Client {
	return &Client{api: api, cache: listing, logger: logger}
}

var listingKey = cache.Key(http.MethodGet, config.PathEditableContent)

// EditableContent returns the combined listing of editable posts and tasks
func (c *Client) EditableContent(ctx context.Context) (backend.EditableContent, error) {
	if c.cache != nil {
		if entry, ok := c.cache.Get(listingKey); ok {
			if content, ok := entry.Value.(backend.EditableContent); ok {
				c.logger.Debug("editable content served from cache", "cached_at", entry.Timestamp)
				return content, nil
			}
		}
	}

	var content backend.EditableContent
	if _, err := c.api.DoJSON(ctx, http.MethodGet, config.PathEditableContent, nil, &content); err != nil {
		return backend.EditableContent{}, fmt.Errorf("failed to get editable content: %w", err)
	}

	if c.cache != nil {
		c.cache.Set(listingKey, content)
	}
	return content, nil
}

func (c *Client) invalidate() {
	if c.cache != nil {
		c.cache.Delete(listingKey)
	}
}

// EditPost applies changes to a post and returns the server-confirmed post and message
func (c *Client) EditPost(ctx context.Context, id string, changes backend.PostChanges) (backend.Post, string, error) {
	var post backend.Post
	resp, err := c.api.DoJSON(ctx, http.MethodPost, config.PathEditPost, backend.EditPostRequest{
		PostID:  id,
		Changes: changes,
	}, &post)
	if err != nil {
		return backend.Post{}, "", fmt.Errorf("failed to edit post %s: %w", id, err)
	}

	c.invalidate()
	c.logger.Info("post edited", "post_id", id)
	return post, resp.Message, nil
}

// CreatePost creates a draft post
func (c *Client) CreatePost(ctx context.Context, req backend.CreatePostRequest) (backend.Post, string, error) {
	if req.Tags == nil {
		req.Tags = []string{}
	}

	var post backend.Post
	resp, err := c.api.DoJSON(ctx, http.MethodPost, config.PathCreatePost, req, &post)
	if err != nil {
		return backend.Post{}, "", fmt.Errorf("failed to create post: %w", err)
	}

	c.invalidate()
	c.logger.Info("post created", "post_id", post.ID)
	return post, resp.Message, nil
}

// TaskPath returns the edit endpoint for a task identifier
func TaskPath(id string) string {
	if strings.HasPrefix(id, MarketingPrefix) {
		return config.PathEditMarketingTask
	}
	return config.PathEditOperationTask
}

// EditTask applies changes to a marketing or operation task
func (c *Client) EditTask(ctx context.Context, id string, changes backend.TaskChanges) (backend.Task, string, error) {
	var task backend.Task
	resp, err := c.api.DoJSON(ctx, http.MethodPost, TaskPath(id), backend.EditTaskRequest{
		TaskID:  id,
		Changes: changes,
	}, &task)
	if err != nil {
		return backend.Task{}, "", fmt.Errorf("failed to edit task %s: %w", id, err)
	}

	c.invalidate()
	c.logger.Info("task edited", "task_id", id)
	return task, resp.Message, nil
}
