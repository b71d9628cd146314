package conversation

import (
	"github.com/erg0nix/parley/internal/core"
	"github.com/erg0nix/parley/internal/params"
)

// Snapshot captures the token and message state of a conversation at a point in time.
type Snapshot struct {
	ConversationID  int                 `json:"conversation_id"`
	TotalTokens     int                 `json:"total_tokens"`
	Calls           int                 `json:"calls"`
	SystemTokens    int                 `json:"system_tokens"`
	UserTokens      int                 `json:"user_tokens"`
	AssistantTokens int                 `json:"assistant_tokens"`
	TotalMessages   int                 `json:"total_messages"`
	Messages        []core.MessageStats `json:"messages,omitempty"`
}

// Remaining reports how many calls and tokens are left before the next turn would terminate
// the conversation. Neither value goes below zero.
func (s Snapshot) Remaining(limits params.Limits) (calls, tokens int) {
	calls = max(limits.MaxCalls-s.Calls, 0)
	tokens = max(limits.MaxTokenSpend-s.TotalTokens, 0)
	return calls, tokens
}
