package chat

import (
	"math"

	"github.com/erg0nix/parley/internal/capability"
	"github.com/erg0nix/parley/internal/conversation"
)

// PromptCost estimates the price in dollars of sending input and receiving output.
func (c *Chat) PromptCost(input, output string) float64 {
	return capability.Cost(c.profile, conversation.EstimateTokens(input), conversation.EstimateTokens(output))
}

// PromptCostText prices the estimated tokens of text at the combined input and output rate.
func (c *Chat) PromptCostText(text string) float64 {
	return capability.SymmetricCost(c.profile, conversation.EstimateTokens(text))
}

func (c *Chat) PromptCostTokens(inputTokens, outputTokens int) float64 {
	return capability.Cost(c.profile, inputTokens, outputTokens)
}

// ConversationCost prices the compounded token total of conversation id. It is zero when the
// conversation does not exist.
func (c *Chat) ConversationCost(id int) float64 {
	return capability.SymmetricCost(c.profile, c.store.Tokens(id))
}

// ConversationLimit returns how many conversation turns fit into tokenLimit when every turn
// spends maxTokens on input and output and resends everything before it.
func ConversationLimit(tokenLimit, maxTokens int) int {
	if maxTokens <= 0 || tokenLimit < 0 {
		return 0
	}

	// A turn fits while totalTokens*2 + maxTokens*2 <= tokenLimit, checked without overflowing.
	threshold := tokenLimit/2 - maxTokens

	conversationLimit := 0
	for totalTokens := 0; totalTokens <= threshold; conversationLimit++ {
		totalTokens += totalTokens + maxTokens*2
	}
	return conversationLimit
}

// TokenSpendingLimit is the inverse of ConversationLimit: the token budget that conversationLimit
// turns of maxTokens each consume. It saturates at math.MaxInt.
func TokenSpendingLimit(conversationLimit, maxTokens int) int {
	if maxTokens <= 0 || conversationLimit <= 0 {
		return 0
	}
	if maxTokens > math.MaxInt/2 {
		return math.MaxInt
	}

	step := maxTokens * 2
	ceiling := (math.MaxInt - step) / 2

	tokensUsed := 0
	for range conversationLimit {
		if tokensUsed > ceiling {
			return math.MaxInt
		}
		tokensUsed += tokensUsed + step
	}
	return tokensUsed
}
