package backend

// EditableItem is one entry of the editable-content listing
type EditableItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Type         string `json:"type,omitempty"`
	Status       string `json:"status"`
	LastModified string `json:"last_modified,omitempty"`
}

// EditableContent groups the entities the assistant may edit
type EditableContent struct {
	Posts          []EditableItem `json:"posts"`
	MarketingTasks []EditableItem `json:"marketing_tasks"`
	OperationTasks []EditableItem `json:"operation_tasks"`
}

// PostChanges carries the fields of a post edit; empty fields are left untouched
type PostChanges struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// EditPostRequest is the body of POST /api/ai-editor/edit-post
type EditPostRequest struct {
	PostID  string      `json:"post_id"`
	Changes PostChanges `json:"changes"`
}

// CreatePostRequest is the body of POST /api/ai-editor/create-post
type CreatePostRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Post is a social post as returned by the editor endpoints
type Post struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Status  string   `json:"status"`
	Tags    []string `json:"tags,omitempty"`
}

// TaskChanges carries the fields of a task edit
type TaskChanges struct {
	Description string `json:"description,omitempty"`
}

// EditTaskRequest is the body of the edit-marketing-task and edit-operation-task endpoints
type EditTaskRequest struct {
	TaskID  string      `json:"task_id"`
	Changes TaskChanges `json:"changes"`
}

// Task is a marketing or operation task as returned by the editor endpoints
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status"`
}
