package provider

import (
	"github.com/sashabaranov/go-openai"

	"github.com/erg0nix/parley/internal/core"
)

// Response holds the parsed result of a chat completion request.
type Response struct {
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *core.Usage `json:"usage,omitempty"`
}

func parseResponse(resp openai.ChatCompletionResponse) Response {
	if len(resp.Choices) == 0 {
		return Response{Usage: parseUsage(resp.Usage)}
	}

	choice := resp.Choices[0]

	return Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage:        parseUsage(resp.Usage),
	}
}

func parseUsage(usage openai.Usage) *core.Usage {
	if usage.TotalTokens == 0 {
		return nil
	}

	return &core.Usage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
}
