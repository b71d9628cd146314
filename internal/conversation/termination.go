package conversation

import (
	"fmt"

	"github.com/erg0nix/parley/internal/params"
)

type TerminationReason string

const (
	ReasonNone       TerminationReason = ""
	ReasonCallLimit  TerminationReason = "call_limit"
	ReasonTokenLimit TerminationReason = "token_limit"
)

// Notice is the text returned in place of a completion when a conversation is terminated.
func (r TerminationReason) Notice(limit int) string {
	switch r {
	case ReasonCallLimit:
		return fmt.Sprintf("The conversation has reached the call limit of %d calls", limit)
	case ReasonTokenLimit:
		return fmt.Sprintf("The conversation has reached the token limit of %d tokens", limit)
	default:
		return ""
	}
}

// Reply is the outcome of a conversation turn. When Terminated is set, Content holds the
// termination notice and the conversation has been removed.
type Reply struct {
	Content    string            `json:"content"`
	Terminated bool              `json:"terminated,omitempty"`
	Reason     TerminationReason `json:"reason,omitempty"`
	Limit      int               `json:"limit,omitempty"`
}

func terminated(reason TerminationReason, limit int) Reply {
	return Reply{Content: reason.Notice(limit), Terminated: true, Reason: reason, Limit: limit}
}

// exhausted decides whether sending message would exceed either limit. The call limit is checked
// first and wins when both are hit.
func exhausted(ledger *Ledger, p params.Params, limits params.Limits, message string) (TerminationReason, int) {
	if len(ledger.FilterByRole(false)) >= limits.MaxCalls {
		return ReasonCallLimit, limits.MaxCalls
	}

	contextValue := ledger.TotalTokens() + EstimateTokens(message) + p.MaxOutputTokens
	if contextValue >= limits.MaxTokenSpend {
		return ReasonTokenLimit, limits.MaxTokenSpend
	}

	return ReasonNone, 0
}
