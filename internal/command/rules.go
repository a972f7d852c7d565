package command

import (
	"regexp"
	"strings"
)

// Rule names, in dispatch order
const (
	RuleEnableEdit   = "enable-edit"
	RuleDisableEdit  = "disable-edit"
	RuleListEditable = "list-editable"
	RuleEditPost     = "edit-post"
	RuleCreatePost   = "create-post"
	RuleEditTask     = "edit-task"
)

// Rule is one entry of the dispatch table. A rule matches when the lowercased
// message contains any of its phrases.
type Rule struct {
	Name    string
	Phrases []string
}

// Matches reports whether text triggers the rule
func (r Rule) Matches(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range r.Phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Rules is the ordered dispatch table. The first matching rule wins, so
// "關閉編輯模式" enables edit mode because it contains "編輯模式".
var Rules = []Rule{
	{Name: RuleEnableEdit, Phrases: []string{"編輯模式", "編輯功能"}},
	{Name: RuleDisableEdit, Phrases: []string{"關閉編輯", "退出編輯"}},
	{Name: RuleListEditable, Phrases: []string{"查看可編輯", "可編輯內容"}},
	{Name: RuleEditPost, Phrases: []string{"編輯貼文"}},
	{Name: RuleCreatePost, Phrases: []string{"新增貼文", "建立貼文"}},
	{Name: RuleEditTask, Phrases: []string{"編輯任務"}},
}

// Match returns the first rule triggered by text
func Match(text string) (Rule, bool) {
	for _, r := range Rules {
		if r.Matches(text) {
			return r, true
		}
	}
	return Rule{}, false
}

var (
	idPattern       = regexp.MustCompile(`\w+_\d+`)
	createTriggers  = regexp.MustCompile(`(?i)新增貼文|建立貼文`)
	editTaskTrigger = regexp.MustCompile(`(?i)編輯任務`)
)

// ExtractID returns the first entity identifier of the form <kind>_<number> in text
func ExtractID(text string) (string, bool) {
	id := idPattern.FindString(text)
	return id, id != ""
}

// truncate keeps the first n characters of s
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
