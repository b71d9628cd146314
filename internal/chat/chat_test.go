package chat

import (
	"context"
	"errors"
	"io"
	"math"
	"math/bits"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erg0nix/parley/internal/capability"
	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/core"
	"github.com/erg0nix/parley/internal/params"
)

type recordingInvoker struct {
	mu       sync.Mutex
	requests []conversation.Request
	reply    string
	chunks   []string
	err      error
}

func (r *recordingInvoker) Complete(_ context.Context, req conversation.Request) (core.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests = append(r.requests, req)
	if r.err != nil {
		return core.Message{}, r.err
	}
	return core.Message{Role: core.RoleAssistant, Content: r.reply}, nil
}

func (r *recordingInvoker) Stream(_ context.Context, req conversation.Request) (conversation.ChunkStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return &chunks{items: append([]string(nil), r.chunks...)}, nil
}

type chunks struct {
	items []string
}

func (c *chunks) Recv() (string, error) {
	if len(c.items) == 0 {
		return "", io.EOF
	}
	item := c.items[0]
	c.items = c.items[1:]
	return item, nil
}

func (c *chunks) Close() error { return nil }

func testDefaults() params.Defaults {
	return params.Defaults{
		User:                  "tester",
		Instruction:           "You are a helpful assistant.",
		Temperature:           1,
		MaxOutputTokens:       100,
		TopP:                  1,
		MaxConversationCalls:  3,
		MaxTokenSpendingLimit: 100_000,
	}
}

func newTestChat(t *testing.T, invoker conversation.Invoker) *Chat {
	t.Helper()

	c, err := New("gpt-4o-mini", testDefaults(), invoker, nil)
	require.NoError(t, err)
	return c
}

func TestNew_UnknownModel(t *testing.T) {
	_, err := New("gpt-2", testDefaults(), &recordingInvoker{}, nil)
	assert.ErrorIs(t, err, capability.ErrUnknownModel)
}

func TestChat_PromptKeepsNoHistory(t *testing.T) {
	invoker := &recordingInvoker{reply: "Hallo, wie geht es dir?"}
	c := newTestChat(t, invoker)

	out, err := c.Prompt(context.Background(), params.Options{Instruction: params.Ptr("Translate to German.")}, "Hello, how are you?")
	require.NoError(t, err)
	assert.Equal(t, "Hallo, wie geht es dir?", out)

	require.Len(t, invoker.requests, 1)
	req := invoker.requests[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "Translate to German.", req.Messages[0].Content)
	assert.Equal(t, core.RoleUser, req.Messages[1].Role)
	assert.Empty(t, c.Conversations())
}

func TestChat_PromptRejectsInvalidParameters(t *testing.T) {
	invoker := &recordingInvoker{reply: "unused"}
	c := newTestChat(t, invoker)

	_, err := c.Prompt(context.Background(), params.Options{Temperature: params.Ptr(3.0)}, "  ")
	require.ErrorIs(t, err, params.ErrInvalidParameter)

	var verr *params.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{params.FieldTemperature, params.FieldPrompt}, verr.Fields())
	assert.Empty(t, invoker.requests, "invalid requests must not reach the invoker")
}

func TestChat_PromptWrapsTransportError(t *testing.T) {
	transportErr := errors.New("dial tcp: refused")
	c := newTestChat(t, &recordingInvoker{err: transportErr})

	_, err := c.Prompt(context.Background(), params.Options{}, "hi")
	assert.ErrorIs(t, err, transportErr)
}

func TestChat_PromptStream(t *testing.T) {
	c := newTestChat(t, &recordingInvoker{chunks: []string{"one ", "two"}})

	var streamed string
	out, err := c.PromptStream(context.Background(), params.Options{}, "count", func(chunk string) {
		streamed += chunk
	})
	require.NoError(t, err)
	assert.Equal(t, "one two", out)
	assert.Equal(t, out, streamed)
}

func TestChat_ConverseEnforcesCallLimit(t *testing.T) {
	c := newTestChat(t, &recordingInvoker{reply: "ok"})
	ctx := context.Background()
	opts := params.Options{MaxConversationCalls: params.Ptr(2)}

	for _, message := range []string{"one", "two"} {
		reply, err := c.Converse(ctx, 9, opts, message)
		require.NoError(t, err)
		assert.False(t, reply.Terminated)
	}

	assert.True(t, c.HasConversation(9))
	assert.Equal(t, 5, c.ConversationSize(9))

	reply, err := c.Converse(ctx, 9, opts, "three")
	require.NoError(t, err)
	assert.True(t, reply.Terminated)
	assert.Equal(t, "The conversation has reached the call limit of 2 calls", reply.Content)
	assert.False(t, c.HasConversation(9))
}

func TestChat_ConverseStreamUsesConfiguredLimits(t *testing.T) {
	c := newTestChat(t, &recordingInvoker{chunks: []string{"o", "k"}})
	ctx := context.Background()

	var calls int
	for range 3 {
		reply, err := c.ConverseStream(ctx, 1, params.Options{}, "hi", nil)
		require.NoError(t, err)
		if !reply.Terminated {
			calls++
		}
	}
	assert.Equal(t, 3, calls)

	reply, err := c.ConverseStream(ctx, 1, params.Options{}, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, conversation.ReasonCallLimit, reply.Reason)
}

func TestChat_ConverseValidationLeavesConversation(t *testing.T) {
	c := newTestChat(t, &recordingInvoker{reply: "ok"})
	ctx := context.Background()

	_, err := c.Converse(ctx, 1, params.Options{}, "hi")
	require.NoError(t, err)

	_, err = c.Converse(ctx, 1, params.Options{MaxOutputTokens: params.Ptr(0)}, "again")
	require.ErrorIs(t, err, params.ErrInvalidParameter)
	assert.Equal(t, 3, c.ConversationSize(1))
}

func TestChat_ClearAndCosts(t *testing.T) {
	c := newTestChat(t, &recordingInvoker{reply: "ok"})
	ctx := context.Background()

	assert.Zero(t, c.ConversationCost(4))

	_, err := c.Converse(ctx, 4, params.Options{}, "Hello, how are you?")
	require.NoError(t, err)

	tokens := c.ConversationTokens(4)
	assert.Positive(t, tokens)
	assert.InDelta(t, capability.SymmetricCost(c.Profile(), tokens), c.ConversationCost(4), 1e-12)

	c.Clear(4)
	c.Clear(4)
	c.ClearAll()
	assert.False(t, c.HasConversation(4))
	assert.Zero(t, c.ConversationTokens(4))
}

func TestChat_PromptCost(t *testing.T) {
	c := newTestChat(t, &recordingInvoker{})

	// gpt-4o-mini: 0.00015 per 1K input tokens, 0.0006 per 1K output tokens.
	assert.InDelta(t, 1000*0.00015/1000+2000*0.0006/1000, c.PromptCostTokens(1000, 2000), 1e-12)
	assert.InDelta(t, 5*0.00015/1000+1*0.0006/1000, c.PromptCost("Hello, how are you?", "Hi"), 1e-12)
	assert.InDelta(t, 5*(0.00015+0.0006)/1000, c.PromptCostText("Hello, how are you?"), 1e-12)
}

func TestConversationLimit(t *testing.T) {
	tests := []struct {
		tokenLimit int
		maxTokens  int
		want       int
	}{
		{16384, 1024, 3},
		{14336, 1024, 3},
		{14335, 1024, 2},
		{2047, 1024, 0},
		{0, 0, 0},
		{100, -5, 0},
		{-1, 10, 0},
		{math.MaxInt, 1, bits.UintSize - 2},
		{math.MaxInt, math.MaxInt, 0},
		{math.MaxInt - 1, math.MaxInt / 2, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ConversationLimit(tt.tokenLimit, tt.maxTokens), "ConversationLimit(%d, %d)", tt.tokenLimit, tt.maxTokens)
	}
}

func TestTokenSpendingLimit(t *testing.T) {
	assert.Equal(t, 14336, TokenSpendingLimit(3, 1024))
	assert.Equal(t, 0, TokenSpendingLimit(0, 1024))
	assert.Equal(t, 0, TokenSpendingLimit(3, 0))

	assert.Equal(t, math.MaxInt, TokenSpendingLimit(64, 1024))
	assert.Equal(t, math.MaxInt, TokenSpendingLimit(1, math.MaxInt))
	assert.Equal(t, math.MaxInt, TokenSpendingLimit(math.MaxInt, 1))
	assert.Positive(t, TokenSpendingLimit(bits.UintSize-2, 1))

	for calls := 1; calls <= 6; calls++ {
		assert.Equal(t, calls, ConversationLimit(TokenSpendingLimit(calls, 512), 512))
	}
}
