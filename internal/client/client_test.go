package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erg0nix/parley/internal/capability"
	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/core"
	"github.com/erg0nix/parley/internal/params"
	"github.com/erg0nix/parley/internal/provider"
)

type fakeBackend struct {
	models []string
}

func (f *fakeBackend) Complete(_ context.Context, model string, _ conversation.Request) (core.Message, error) {
	f.models = append(f.models, model)
	return core.Message{Role: core.RoleAssistant, Content: "pong"}, nil
}

func (f *fakeBackend) Stream(context.Context, string, conversation.Request) (conversation.ChunkStream, error) {
	return nil, io.ErrUnexpectedEOF
}

func (f *fakeBackend) CreateImage(context.Context, provider.ImageRequest) ([]string, error) {
	return []string{"https://images.example/1.png"}, nil
}

func (f *fakeBackend) CreateSpeech(context.Context, provider.SpeechRequest) ([]byte, error) {
	return []byte("audio"), nil
}

func (f *fakeBackend) CreateTranscription(context.Context, provider.TranscriptionRequest) (string, error) {
	return "text", nil
}

func (f *fakeBackend) ConcurrencyLimit() int {
	return 1
}

func TestNewWithBackend_AllModules(t *testing.T) {
	backend := &fakeBackend{}

	c, err := NewWithBackend(config.Default(), backend, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{ModuleChat, ModuleImage, ModuleSpeech, ModuleTranscription}, c.Active())

	ch, err := c.Chat()
	require.NoError(t, err)

	reply, err := ch.Converse(context.Background(), 1, params.Options{}, "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", reply.Content)
	assert.Equal(t, []string{"gpt-4o-mini"}, backend.models)
}

func TestNewWithBackend_InactiveModules(t *testing.T) {
	cfg := config.Default()
	cfg.Image.Model = ""
	cfg.Speech.Model = " "
	cfg.Transcription.Model = ""

	c, err := NewWithBackend(cfg, &fakeBackend{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{ModuleChat}, c.Active())

	_, err = c.Image()
	assert.ErrorIs(t, err, ErrModuleInactive)
	_, err = c.Speech()
	assert.ErrorIs(t, err, ErrModuleInactive)
	_, err = c.Transcription()
	assert.ErrorIs(t, err, ErrModuleInactive)
}

func TestNewWithBackend_UnknownModel(t *testing.T) {
	cfg := config.Default()
	cfg.Chat.Model = "gpt-0"

	_, err := NewWithBackend(cfg, &fakeBackend{}, nil)
	assert.ErrorIs(t, err, capability.ErrUnknownModel)
}

func TestNewWithBackend_NoBackend(t *testing.T) {
	_, err := NewWithBackend(config.Default(), nil, nil)
	assert.ErrorIs(t, err, provider.ErrNoProvider)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = ""

	_, err := New(cfg, nil)
	assert.ErrorContains(t, err, "api_key is required")
}

func TestNew_TalksToServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.APIKey = "sk-test"
	cfg.BaseURL = server.URL
	cfg.Debug.LogDirectory = t.TempDir()

	c, err := New(cfg, nil)
	require.NoError(t, err)

	ch, err := c.Chat()
	require.NoError(t, err)

	text, err := ch.Prompt(context.Background(), params.Options{}, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
}
