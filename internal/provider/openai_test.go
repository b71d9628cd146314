package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/core"
)

func newTestProvider(t *testing.T, handler http.Handler, debugCfg config.DebugConfig) *OpenAIProvider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1/"}, debugCfg)
}

func testRequest() conversation.Request {
	return conversation.Request{
		User: "tester",
		Messages: []core.Message{
			{Role: core.RoleSystem, Content: "You are terse."},
			{Role: core.RoleUser, Content: "Hello"},
		},
		Temperature:     0,
		MaxOutputTokens: 64,
		TopP:            0.5,
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var received map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hi!"},"finish_reason":"stop"}],"usage":{"prompt_tokens":9,"completion_tokens":2,"total_tokens":11}}`)
	})

	provider := newTestProvider(t, mux, config.DebugConfig{})

	msg, err := provider.Complete(context.Background(), "gpt-4o", testRequest())
	require.NoError(t, err)

	assert.Equal(t, core.RoleAssistant, msg.Role)
	assert.Equal(t, "Hi!", msg.Content)

	assert.Equal(t, "gpt-4o", received["model"])
	assert.Equal(t, "tester", received["user"])
	assert.EqualValues(t, 64, received["max_completion_tokens"])
	assert.InDelta(t, 0.5, received["top_p"], 1e-6)
	assert.Contains(t, received, "temperature", "explicit zero temperature must be sent")
	assert.Len(t, received["messages"], 2)
}

func TestOpenAIProvider_CompleteWithoutChoices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	})

	provider := newTestProvider(t, mux, config.DebugConfig{})

	msg, err := provider.Complete(context.Background(), "gpt-4o", testRequest())
	require.NoError(t, err)
	assert.Equal(t, "", msg.Content)
}

func TestOpenAIProvider_CompleteAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
	})

	logDir := t.TempDir()
	provider := newTestProvider(t, mux, config.DebugConfig{LogRequests: true, LogDirectory: logDir})

	_, err := provider.Complete(context.Background(), "gpt-4o", testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request_id=req_")

	var apiErr *openai.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)

	entries := readLogEntries(t, logDir)
	require.Len(t, entries, 2)
	assert.Equal(t, "request", entries[0].Type)
	assert.Equal(t, "error", entries[1].Type)
	assert.Equal(t, http.StatusUnauthorized, entries[1].StatusCode)
}

func TestOpenAIProvider_CompleteRejectsMalformedMessages(t *testing.T) {
	provider := newTestProvider(t, http.NotFoundHandler(), config.DebugConfig{})

	req := testRequest()
	req.Messages = req.Messages[1:]

	_, err := provider.Complete(context.Background(), "gpt-4o", req)

	var roleErr *RoleError
	require.ErrorAs(t, err, &roleErr)
	assert.Equal(t, 0, roleErr.Index)
}

func TestOpenAIProvider_Stream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"Hel", "lo", "!"} {
			fmt.Fprintf(w, "data: {\"id\":\"s1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", chunk)
		}
		fmt.Fprint(w, "data: {\"id\":\"s1\",\"object\":\"chat.completion.chunk\",\"choices\":[],\"usage\":{\"prompt_tokens\":9,\"completion_tokens\":3,\"total_tokens\":12}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	logDir := t.TempDir()
	provider := newTestProvider(t, mux, config.DebugConfig{LogResponses: true, LogDirectory: logDir})

	stream, err := provider.Stream(context.Background(), "gpt-4o", testRequest())
	require.NoError(t, err)
	defer stream.Close()

	var chunks []string
	text, err := conversation.Collect(context.Background(), stream, func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello!", text)
	assert.Equal(t, []string{"Hel", "lo", "!"}, chunks)

	entries := readLogEntries(t, logDir)
	require.Len(t, entries, 1)
	assert.Equal(t, "response", entries[0].Type)
	assert.Equal(t, "chat_stream", entries[0].Operation)
}

func TestOpenAIProvider_CreateImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "dall-e-3", body["model"])
		assert.Equal(t, "1024x1792", body["size"])
		assert.Equal(t, "hd", body["quality"])
		assert.Equal(t, "natural", body["style"])
		assert.Equal(t, "url", body["response_format"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"created":1,"data":[{"url":"https://images.test/1.png"}]}`)
	})

	provider := newTestProvider(t, mux, config.DebugConfig{})

	urls, err := provider.CreateImage(context.Background(), ImageRequest{
		Model:      "dall-e-3",
		Prompt:     "a lighthouse at dusk",
		Amount:     1,
		Quality:    "hd",
		Resolution: "1024x1792",
		Style:      "natural",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://images.test/1.png"}, urls)
}

func TestOpenAIProvider_CreateSpeech(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/audio/speech", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tts-1", body["model"])
		assert.Equal(t, "nova", body["voice"])
		assert.Equal(t, "opus", body["response_format"])

		w.Header().Set("Content-Type", "audio/ogg")
		_, _ = w.Write([]byte("OggS-audio"))
	})

	provider := newTestProvider(t, mux, config.DebugConfig{})

	audio, err := provider.CreateSpeech(context.Background(), SpeechRequest{
		Model:  "tts-1",
		Input:  "Hello there",
		Voice:  "nova",
		Format: "opus",
		Speed:  1.25,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("OggS-audio"), audio)
}

func TestOpenAIProvider_CreateTranscription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "de", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "RIFF-wave", string(data))
		assert.Equal(t, "clip.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"Guten Tag"}`)
	})

	provider := newTestProvider(t, mux, config.DebugConfig{})

	text, err := provider.CreateTranscription(context.Background(), TranscriptionRequest{
		Model:    "whisper-1",
		FileName: "clip.wav",
		Audio:    []byte("RIFF-wave"),
		Language: "de",
	})
	require.NoError(t, err)
	assert.Equal(t, "Guten Tag", text)
}

func readLogEntries(t *testing.T, dir string) []LogEntry {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(dir, "provider_*.jsonl"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

type closingStream struct {
	responses []openai.ChatCompletionStreamResponse
	closeErr  error
	closed    bool
}

func (s *closingStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if len(s.responses) == 0 {
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *closingStream) Close() error {
	s.closed = true
	return s.closeErr
}

func TestChunkStream_CloseReturnsError(t *testing.T) {
	closeErr := errors.New("connection reset")
	inner := &closingStream{
		responses: []openai.ChatCompletionStreamResponse{
			{Choices: []openai.ChatCompletionStreamChoice{{Delta: openai.ChatCompletionStreamChoiceDelta{Content: "hi"}}}},
		},
		closeErr: closeErr,
	}
	stream := &chunkStream{stream: inner, requestID: "req-1"}

	text, err := conversation.Collect(context.Background(), stream, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	err = stream.Close()
	assert.True(t, inner.closed)
	require.ErrorIs(t, err, closeErr)
	assert.Contains(t, err.Error(), "request_id=req-1")
}

func TestChunkStream_CloseWithoutError(t *testing.T) {
	inner := &closingStream{}
	stream := &chunkStream{stream: inner, requestID: "req-2"}

	assert.NoError(t, stream.Close())
	assert.True(t, inner.closed)
}
