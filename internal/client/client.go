// Package client assembles the provider and the modules enabled by a configuration.
package client

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/erg0nix/parley/internal/chat"
	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/image"
	"github.com/erg0nix/parley/internal/params"
	"github.com/erg0nix/parley/internal/provider"
	"github.com/erg0nix/parley/internal/speech"
	"github.com/erg0nix/parley/internal/transcription"
)

const (
	ModuleChat          = "chat"
	ModuleImage         = "image"
	ModuleSpeech        = "speech"
	ModuleTranscription = "transcription"
)

var ErrModuleInactive = errors.New("module not configured")

type Client struct {
	cfg     config.Config
	backend provider.Backend

	chat          *chat.Chat
	image         *image.Image
	speech        *speech.Speech
	transcription *transcription.Transcription
}

// New validates cfg and connects every configured module to an OpenAI backend.
func New(cfg config.Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	openAI := provider.NewOpenAIProvider(provider.OpenAIConfig{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Organization:   cfg.Organization,
		HTTPTimeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxConcurrency: cfg.Provider.MaxConcurrency,
	}, cfg.Debug)

	router := &provider.SingleProviderRouter{
		Provider:          openAI,
		RequestsPerMinute: cfg.Provider.RequestsPerMinute,
	}

	return NewWithBackend(cfg, router, logger)
}

// NewWithBackend builds the modules on an existing backend. Module models are checked against the
// capability tables; credentials are not.
func NewWithBackend(cfg config.Config, backend provider.Backend, logger *slog.Logger) (*Client, error) {
	if backend == nil {
		return nil, provider.ErrNoProvider
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{cfg: cfg, backend: backend}

	if cfg.ChatActive() {
		ch, err := chat.New(cfg.Chat.Model, params.DefaultsFromConfig(cfg), provider.NewChatModel(backend, cfg.Chat.Model), logger)
		if err != nil {
			return nil, fmt.Errorf("chat: %w", err)
		}
		c.chat = ch
	}

	if cfg.ImageActive() {
		img, err := image.New(cfg.Image, cfg.User, backend, logger)
		if err != nil {
			return nil, fmt.Errorf("image: %w", err)
		}
		c.image = img
	}

	if cfg.SpeechActive() {
		sp, err := speech.New(cfg.Speech, backend, logger)
		if err != nil {
			return nil, fmt.Errorf("speech: %w", err)
		}
		c.speech = sp
	}

	if cfg.TranscriptionActive() {
		tr, err := transcription.New(cfg.Transcription, backend, logger)
		if err != nil {
			return nil, fmt.Errorf("transcription: %w", err)
		}
		c.transcription = tr
	}

	logger.Debug("client ready", "modules", c.Active())

	return c, nil
}

func (c *Client) Config() config.Config {
	return c.cfg
}

func (c *Client) Chat() (*chat.Chat, error) {
	if c.chat == nil {
		return nil, inactive(ModuleChat)
	}
	return c.chat, nil
}

func (c *Client) Image() (*image.Image, error) {
	if c.image == nil {
		return nil, inactive(ModuleImage)
	}
	return c.image, nil
}

func (c *Client) Speech() (*speech.Speech, error) {
	if c.speech == nil {
		return nil, inactive(ModuleSpeech)
	}
	return c.speech, nil
}

func (c *Client) Transcription() (*transcription.Transcription, error) {
	if c.transcription == nil {
		return nil, inactive(ModuleTranscription)
	}
	return c.transcription, nil
}

// Active lists the enabled modules in a fixed order.
func (c *Client) Active() []string {
	var modules []string
	if c.chat != nil {
		modules = append(modules, ModuleChat)
	}
	if c.image != nil {
		modules = append(modules, ModuleImage)
	}
	if c.speech != nil {
		modules = append(modules, ModuleSpeech)
	}
	if c.transcription != nil {
		modules = append(modules, ModuleTranscription)
	}
	return modules
}

func inactive(module string) error {
	return fmt.Errorf("%s: %w", module, ErrModuleInactive)
}
