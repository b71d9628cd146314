package conversation

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/erg0nix/parley/internal/core"
	"github.com/erg0nix/parley/internal/params"
)

// Request is one completion call: the full message list plus the sampling parameters.
type Request struct {
	User             string
	Messages         []core.Message
	Temperature      float64
	MaxOutputTokens  int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

func NewRequest(p params.Params, messages []core.Message) Request {
	return Request{
		User:             p.User,
		Messages:         messages,
		Temperature:      p.Temperature,
		MaxOutputTokens:  p.MaxOutputTokens,
		TopP:             p.TopP,
		FrequencyPenalty: p.FrequencyPenalty,
		PresencePenalty:  p.PresencePenalty,
	}
}

// Invoker produces completions for a message list.
type Invoker interface {
	Complete(ctx context.Context, req Request) (core.Message, error)
	Stream(ctx context.Context, req Request) (ChunkStream, error)
}

// ChunkStream yields the text fragments of a streamed completion. Recv returns io.EOF once the
// stream is exhausted. A stream cannot be restarted.
type ChunkStream interface {
	Recv() (string, error)
	Close() error
}

// Collect drains stream to io.EOF, forwarding every chunk to onChunk when it is set, and returns
// the concatenated text. A cancelled ctx stops the drain with the context error.
func Collect(ctx context.Context, stream ChunkStream, onChunk func(string)) (string, error) {
	var text strings.Builder

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return text.String(), nil
		}
		if err != nil {
			return "", err
		}

		if chunk == "" {
			continue
		}

		if onChunk != nil {
			onChunk(chunk)
		}
		text.WriteString(chunk)
	}
}
