package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/core"
)

var ErrNoProvider = errors.New("no provider configured")

// Backend is the set of remote operations the modules call.
type Backend interface {
	Complete(ctx context.Context, model string, req conversation.Request) (core.Message, error)
	Stream(ctx context.Context, model string, req conversation.Request) (conversation.ChunkStream, error)
	CreateImage(ctx context.Context, req ImageRequest) ([]string, error)
	CreateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error)
	CreateTranscription(ctx context.Context, req TranscriptionRequest) (string, error)
	ConcurrencyLimit() int
}

type Router interface {
	Backend
}

// SingleProviderRouter forwards every call to Provider, bounding the calls in flight by the
// provider's concurrency limit and the request rate by RequestsPerMinute when it is positive.
type SingleProviderRouter struct {
	Provider          Backend
	RequestsPerMinute int

	once        sync.Once
	limiter     *semaphore
	rateLimiter *rate.Limiter
}

func (r *SingleProviderRouter) Complete(ctx context.Context, model string, req conversation.Request) (core.Message, error) {
	release, err := r.admit(ctx)
	if err != nil {
		return core.Message{}, err
	}
	defer release()

	return r.Provider.Complete(ctx, model, req)
}

// Stream holds its concurrency slot until the returned stream is closed.
func (r *SingleProviderRouter) Stream(ctx context.Context, model string, req conversation.Request) (conversation.ChunkStream, error) {
	release, err := r.admit(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := r.Provider.Stream(ctx, model, req)
	if err != nil {
		release()
		return nil, err
	}

	return &releasingStream{ChunkStream: stream, release: sync.OnceFunc(release)}, nil
}

func (r *SingleProviderRouter) CreateImage(ctx context.Context, req ImageRequest) ([]string, error) {
	release, err := r.admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return r.Provider.CreateImage(ctx, req)
}

func (r *SingleProviderRouter) CreateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	release, err := r.admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return r.Provider.CreateSpeech(ctx, req)
}

func (r *SingleProviderRouter) CreateTranscription(ctx context.Context, req TranscriptionRequest) (string, error) {
	release, err := r.admit(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	return r.Provider.CreateTranscription(ctx, req)
}

func (r *SingleProviderRouter) ConcurrencyLimit() int {
	if r.Provider == nil {
		return 0
	}

	return r.Provider.ConcurrencyLimit()
}

func (r *SingleProviderRouter) admit(ctx context.Context) (func(), error) {
	if r.Provider == nil {
		return nil, ErrNoProvider
	}

	r.init()

	if r.rateLimiter != nil {
		if err := r.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if r.limiter == nil {
		return func() {}, nil
	}

	if err := r.limiter.acquire(ctx); err != nil {
		return nil, err
	}

	return r.limiter.release, nil
}

func (r *SingleProviderRouter) init() {
	r.once.Do(func() {
		if concurrencyLimit := r.ConcurrencyLimit(); concurrencyLimit > 0 {
			r.limiter = newSemaphore(concurrencyLimit)
		}

		if r.RequestsPerMinute > 0 {
			r.rateLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.RequestsPerMinute)), 1)
		}
	})
}

type releasingStream struct {
	conversation.ChunkStream
	release func()
}

func (s *releasingStream) Close() error {
	defer s.release()
	return s.ChunkStream.Close()
}

type semaphore struct {
	ch chan struct{}
}

func newSemaphore(limit int) *semaphore {
	return &semaphore{ch: make(chan struct{}, limit)}
}

func (s *semaphore) acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *semaphore) release() {
	<-s.ch
}

// ChatModel binds a backend to one chat model so it can serve as a conversation.Invoker.
type ChatModel struct {
	backend Backend
	model   string
}

func NewChatModel(backend Backend, model string) *ChatModel {
	return &ChatModel{backend: backend, model: model}
}

func (m *ChatModel) Model() string {
	return m.model
}

func (m *ChatModel) Complete(ctx context.Context, req conversation.Request) (core.Message, error) {
	return m.backend.Complete(ctx, m.model, req)
}

func (m *ChatModel) Stream(ctx context.Context, req conversation.Request) (conversation.ChunkStream, error) {
	return m.backend.Stream(ctx, m.model, req)
}
