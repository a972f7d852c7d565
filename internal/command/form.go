package command

import (
	"bytes"
	"fmt"
	"html/template"
)

// Form fields of the inline post editor
const (
	FieldTitle   = "title"
	FieldContent = "content"
)

// Form actions carried in the generated markup
const (
	ActionApply  = "apply"
	ActionCancel = "cancel"
)

// Form is the state bound to one inline post editor
type Form struct {
	PostID  string
	Title   string
	Content string
}

var formTemplate = template.Must(template.New("edit-form").Parse(`<div class="ai-edit-form" data-entity="{{.PostID}}">
<h4>🔧 編輯貼文: {{.PostID}}</h4>
<div class="form-group">
<label>標題：</label>
<input type="text" id="edit-title-{{.PostID}}" name="title" placeholder="輸入新標題">
</div>
<div class="form-group">
<label>內容：</label>
<textarea id="edit-content-{{.PostID}}" name="content" placeholder="輸入新內容"></textarea>
</div>
<div class="form-actions">
<button class="btn-primary" data-action="apply" data-entity="{{.PostID}}">應用修改</button>
<button class="btn-secondary" data-action="cancel" data-entity="{{.PostID}}">取消</button>
</div>
</div>`))

// RenderForm returns the markup of the inline editor for postID
func RenderForm(postID string) (string, error) {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, Form{PostID: postID}); err != nil {
		return "", fmt.Errorf("failed to render edit form: %w", err)
	}
	return buf.String(), nil
}
