package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/core"
)

// OpenAIConfig holds connection settings for the OpenAI API or a compatible endpoint.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Organization   string
	HTTPTimeout    time.Duration
	MaxConcurrency int
}

// OpenAIProvider implements Backend with the go-openai client.
type OpenAIProvider struct {
	client        *openai.Client
	requestLogger *RequestLogger
	concurrency   int
}

type ImageRequest struct {
	Model      string
	Prompt     string
	Amount     int
	Quality    string
	Resolution string
	Style      string
	User       string
}

type SpeechRequest struct {
	Model  string
	Input  string
	Voice  string
	Format string
	Speed  float64
}

type TranscriptionRequest struct {
	Model       string
	FileName    string
	Audio       []byte
	Prompt      string
	Language    string
	Temperature float64
}

// NewOpenAIProvider creates an OpenAIProvider with the given connection config and optional debug logging.
func NewOpenAIProvider(cfg OpenAIConfig, debugCfg config.DebugConfig) *OpenAIProvider {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientConfig.OrgID = cfg.Organization
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	provider := &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientConfig),
		concurrency: cfg.MaxConcurrency,
	}

	if debugCfg.LogRequests || debugCfg.LogResponses {
		provider.requestLogger = NewRequestLogger(
			debugCfg.LogDirectory,
			debugCfg.LogRequests,
			debugCfg.LogResponses,
			slog.Default(),
		)
	}

	return provider
}

func (p *OpenAIProvider) ConcurrencyLimit() int {
	return p.concurrency
}

// Complete sends a chat completion request and returns the assistant message. A response without
// choices yields an empty message.
func (p *OpenAIProvider) Complete(ctx context.Context, model string, req conversation.Request) (core.Message, error) {
	requestID := core.NewRequestID()

	if err := validateRoleAlternation(req.Messages); err != nil {
		p.requestLogger.LogError(requestID, "chat", 0, err, req.Messages)
		return core.Message{}, fmt.Errorf("role validation failed (request_id=%s): %w", requestID, err)
	}

	chatReq := chatRequest(model, req, false)
	p.requestLogger.LogRequest(requestID, "chat", req.Messages, chatReq)

	startTime := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(startTime)

	if err != nil {
		p.requestLogger.LogError(requestID, "chat", statusCode(err), err, req.Messages)
		return core.Message{}, fmt.Errorf("chat completion (request_id=%s): %w", requestID, err)
	}

	response := parseResponse(resp)
	p.requestLogger.LogResponse(requestID, "chat", response, duration)

	return core.Message{Role: core.RoleAssistant, Content: response.Content}, nil
}

// Stream opens a streamed chat completion. The returned stream yields content deltas until io.EOF.
func (p *OpenAIProvider) Stream(ctx context.Context, model string, req conversation.Request) (conversation.ChunkStream, error) {
	requestID := core.NewRequestID()

	if err := validateRoleAlternation(req.Messages); err != nil {
		p.requestLogger.LogError(requestID, "chat_stream", 0, err, req.Messages)
		return nil, fmt.Errorf("role validation failed (request_id=%s): %w", requestID, err)
	}

	chatReq := chatRequest(model, req, true)
	p.requestLogger.LogRequest(requestID, "chat_stream", req.Messages, chatReq)

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		p.requestLogger.LogError(requestID, "chat_stream", statusCode(err), err, req.Messages)
		return nil, fmt.Errorf("chat stream (request_id=%s): %w", requestID, err)
	}

	return &chunkStream{
		stream:        stream,
		requestID:     requestID,
		requestLogger: p.requestLogger,
		messages:      req.Messages,
		startTime:     time.Now(),
	}, nil
}

// CreateImage generates images and returns their URLs.
func (p *OpenAIProvider) CreateImage(ctx context.Context, req ImageRequest) ([]string, error) {
	requestID := core.NewRequestID()

	imageReq := openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          req.Model,
		N:              req.Amount,
		Quality:        req.Quality,
		Size:           req.Resolution,
		Style:          req.Style,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		User:           req.User,
	}
	p.requestLogger.LogRequest(requestID, "image", nil, imageReq)

	startTime := time.Now()
	resp, err := p.client.CreateImage(ctx, imageReq)
	if err != nil {
		p.requestLogger.LogError(requestID, "image", statusCode(err), err, nil)
		return nil, fmt.Errorf("create image (request_id=%s): %w", requestID, err)
	}

	urls := make([]string, 0, len(resp.Data))
	for _, data := range resp.Data {
		if data.URL != "" {
			urls = append(urls, data.URL)
		}
	}
	p.requestLogger.LogResponse(requestID, "image", urls, time.Since(startTime))

	return urls, nil
}

// CreateSpeech synthesizes req.Input and returns the encoded audio.
func (p *OpenAIProvider) CreateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	requestID := core.NewRequestID()

	speechReq := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(req.Model),
		Input:          req.Input,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: openai.SpeechResponseFormat(req.Format),
		Speed:          req.Speed,
	}
	p.requestLogger.LogRequest(requestID, "speech", nil, speechReq)

	startTime := time.Now()
	resp, err := p.client.CreateSpeech(ctx, speechReq)
	if err != nil {
		p.requestLogger.LogError(requestID, "speech", statusCode(err), err, nil)
		return nil, fmt.Errorf("create speech (request_id=%s): %w", requestID, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		p.requestLogger.LogError(requestID, "speech", 0, err, nil)
		return nil, fmt.Errorf("read speech (request_id=%s): %w", requestID, err)
	}
	p.requestLogger.LogResponse(requestID, "speech", map[string]int{"bytes": len(audio)}, time.Since(startTime))

	return audio, nil
}

// CreateTranscription uploads the audio and returns the transcribed text.
func (p *OpenAIProvider) CreateTranscription(ctx context.Context, req TranscriptionRequest) (string, error) {
	requestID := core.NewRequestID()

	audioReq := openai.AudioRequest{
		Model:       req.Model,
		FilePath:    req.FileName,
		Reader:      bytes.NewReader(req.Audio),
		Prompt:      req.Prompt,
		Temperature: float32(req.Temperature),
		Language:    req.Language,
		Format:      openai.AudioResponseFormatJSON,
	}
	p.requestLogger.LogRequest(requestID, "transcription", nil, map[string]any{
		"model":     req.Model,
		"file_name": req.FileName,
		"bytes":     len(req.Audio),
		"language":  req.Language,
	})

	startTime := time.Now()
	resp, err := p.client.CreateTranscription(ctx, audioReq)
	if err != nil {
		p.requestLogger.LogError(requestID, "transcription", statusCode(err), err, nil)
		return "", fmt.Errorf("create transcription (request_id=%s): %w", requestID, err)
	}
	p.requestLogger.LogResponse(requestID, "transcription", resp.Text, time.Since(startTime))

	return resp.Text, nil
}

func chatRequest(model string, req conversation.Request, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: req.MaxOutputTokens,
		Temperature:         sendable(req.Temperature),
		TopP:                sendable(req.TopP),
		FrequencyPenalty:    float32(req.FrequencyPenalty),
		PresencePenalty:     float32(req.PresencePenalty),
		User:                req.User,
		Stream:              stream,
	}

	if stream {
		chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}

	return chatReq
}

// sendable converts v for a request field that go-openai omits when zero. An explicit zero is
// sent as the smallest positive float32.
func sendable(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}

	return 0
}

// completionStream is the part of *openai.ChatCompletionStream a chunkStream reads.
type completionStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

type chunkStream struct {
	stream        completionStream
	requestID     core.RequestID
	requestLogger *RequestLogger
	messages      []core.Message
	startTime     time.Time
	content       strings.Builder
	usage         *core.Usage
}

func (s *chunkStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.requestLogger.LogResponse(s.requestID, "chat_stream", Response{Content: s.content.String(), Usage: s.usage}, time.Since(s.startTime))
			return "", io.EOF
		}
		if err != nil {
			s.requestLogger.LogError(s.requestID, "chat_stream", statusCode(err), err, s.messages)
			return "", fmt.Errorf("chat stream (request_id=%s): %w", s.requestID, err)
		}

		if resp.Usage != nil {
			s.usage = parseUsage(*resp.Usage)
		}

		if len(resp.Choices) == 0 {
			continue
		}

		chunk := resp.Choices[0].Delta.Content
		s.content.WriteString(chunk)
		return chunk, nil
	}
}

func (s *chunkStream) Close() error {
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("close chat stream (request_id=%s): %w", s.requestID, err)
	}
	return nil
}
