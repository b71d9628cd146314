package core

import "strings"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a conversation. Sequence is its zero-based position in the
// conversation it belongs to; single-shot requests leave it at zero.
type Message struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Sequence int    `json:"sequence"`
}

// Blank reports whether the content is empty or whitespace only. Blank messages are kept but
// ignored by role filters and token accounting.
func (m Message) Blank() bool {
	return strings.TrimSpace(m.Content) == ""
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type MessageStats struct {
	Role     Role `json:"role"`
	Tokens   int  `json:"tokens"`
	Sequence int  `json:"sequence"`
}
