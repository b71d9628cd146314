// Package chat is the chat module: single-shot prompts, conversations with call and token limits,
// and cost estimates for one configured model.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erg0nix/parley/internal/capability"
	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/core"
	"github.com/erg0nix/parley/internal/params"
)

type Chat struct {
	profile  capability.ChatProfile
	defaults params.Defaults
	invoker  conversation.Invoker
	store    *conversation.Store
	logger   *slog.Logger
}

// New creates the chat module for model. The conversation store it owns lives as long as the Chat.
func New(model string, defaults params.Defaults, invoker conversation.Invoker, logger *slog.Logger) (*Chat, error) {
	profile, err := capability.LookupChat(model)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "chat", "model", model)

	return &Chat{
		profile:  profile,
		defaults: defaults,
		invoker:  invoker,
		store:    conversation.NewStore(invoker, logger),
		logger:   logger,
	}, nil
}

func (c *Chat) Model() string {
	return c.profile.Model
}

func (c *Chat) Profile() capability.ChatProfile {
	return c.profile
}

func (c *Chat) Defaults() params.Defaults {
	return c.defaults
}

// Prompt sends a single instruction and prompt pair without keeping any history.
func (c *Chat) Prompt(ctx context.Context, opts params.Options, prompt string) (string, error) {
	p, _, err := params.Resolve(opts, prompt, c.defaults, c.profile)
	if err != nil {
		return "", err
	}

	msg, err := c.invoker.Complete(ctx, singleShot(p, prompt))
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}

	return msg.Content, nil
}

// PromptStream is Prompt with a streamed completion. Every chunk is passed to onChunk and the
// full text is returned once the stream ends.
func (c *Chat) PromptStream(ctx context.Context, opts params.Options, prompt string, onChunk func(string)) (string, error) {
	p, _, err := params.Resolve(opts, prompt, c.defaults, c.profile)
	if err != nil {
		return "", err
	}

	stream, err := c.invoker.Stream(ctx, singleShot(p, prompt))
	if err != nil {
		return "", fmt.Errorf("prompt stream: %w", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			c.logger.Warn("failed to close stream", "error", err)
		}
	}()

	text, err := conversation.Collect(ctx, stream, onChunk)
	if err != nil {
		return "", fmt.Errorf("prompt stream: %w", err)
	}

	return text, nil
}

// Converse sends message on conversation id. A terminated conversation is reported through the
// reply, not as an error.
func (c *Chat) Converse(ctx context.Context, id int, opts params.Options, message string) (conversation.Reply, error) {
	p, limits, err := params.Resolve(opts, message, c.defaults, c.profile)
	if err != nil {
		return conversation.Reply{}, err
	}

	return c.store.Continue(ctx, id, p, limits, message)
}

func (c *Chat) ConverseStream(ctx context.Context, id int, opts params.Options, message string, onChunk func(string)) (conversation.Reply, error) {
	p, limits, err := params.Resolve(opts, message, c.defaults, c.profile)
	if err != nil {
		return conversation.Reply{}, err
	}

	return c.store.ContinueStream(ctx, id, p, limits, message, onChunk)
}

func (c *Chat) Clear(id int) {
	c.store.Clear(id)
}

func (c *Chat) ClearAll() {
	c.store.ClearAll()
}

func (c *Chat) HasConversation(id int) bool {
	return c.store.Has(id)
}

func (c *Chat) ConversationSize(id int) int {
	return c.store.Size(id)
}

func (c *Chat) ConversationTokens(id int) int {
	return c.store.Tokens(id)
}

func (c *Chat) ConversationMessages(id int) []core.Message {
	return c.store.Messages(id)
}

func (c *Chat) ConversationSnapshot(id int) (conversation.Snapshot, bool) {
	return c.store.Snapshot(id)
}

func (c *Chat) Conversations() []int {
	return c.store.IDs()
}

func singleShot(p params.Params, prompt string) conversation.Request {
	return conversation.NewRequest(p, []core.Message{
		{Role: core.RoleSystem, Content: p.Instruction, Sequence: 0},
		{Role: core.RoleUser, Content: prompt, Sequence: 1},
	})
}
