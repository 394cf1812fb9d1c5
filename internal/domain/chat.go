package domain

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one role-tagged utterance in a chat's running conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
