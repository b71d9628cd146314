package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"

	"github.com/erg0nix/parley/internal/capability"
)

type ProviderConfig struct {
	MaxConcurrency    int `toml:"max_concurrency" json:"maxConcurrency"`
	RequestsPerMinute int `toml:"requests_per_minute" json:"requestsPerMinute"`
}

// ChatConfig holds the chat model and the defaults substituted for every parameter a caller
// leaves unset.
type ChatConfig struct {
	Model                 string  `toml:"model" json:"model"`
	Instruction           string  `toml:"instruction" json:"instruction"`
	Temperature           float64 `toml:"temperature" json:"temperature"`
	MaxOutputTokens       int     `toml:"max_output_tokens" json:"maxOutputTokens"`
	TopP                  float64 `toml:"top_p" json:"topP"`
	FrequencyPenalty      float64 `toml:"frequency_penalty" json:"frequencyPenalty"`
	PresencePenalty       float64 `toml:"presence_penalty" json:"presencePenalty"`
	MaxConversationCalls  int     `toml:"max_conversation_calls" json:"maxConversationCalls"`
	MaxTokenSpendingLimit int     `toml:"max_token_spending_limit" json:"maxTokenSpendingLimit"`
}

type ImageConfig struct {
	Model      string `toml:"model" json:"model"`
	Quality    string `toml:"quality" json:"quality"`
	Resolution string `toml:"resolution" json:"resolution"`
	Style      string `toml:"style" json:"style"`
	Amount     int    `toml:"amount" json:"amount"`
}

type SpeechConfig struct {
	Model  string  `toml:"model" json:"model"`
	Voice  string  `toml:"voice" json:"voice"`
	Format string  `toml:"format" json:"format"`
	Speed  float64 `toml:"speed" json:"speed"`
}

// TranscriptionConfig holds the transcription defaults. InputFormat names the encoding of the
// audio handed to the module; raw encodings (pcm, ulaw, alaw) are read at SampleRate.
type TranscriptionConfig struct {
	Model       string  `toml:"model" json:"model"`
	Prompt      string  `toml:"prompt" json:"prompt"`
	Language    string  `toml:"language" json:"language"`
	Temperature float64 `toml:"temperature" json:"temperature"`
	InputFormat string  `toml:"input_format" json:"inputFormat"`
	SampleRate  int     `toml:"sample_rate" json:"sampleRate"`
}

type DebugConfig struct {
	LogRequests  bool   `toml:"log_requests" json:"logRequests"`
	LogResponses bool   `toml:"log_responses" json:"logResponses"`
	LogDirectory string `toml:"log_directory" json:"logDirectory"`
	LogLevel     string `toml:"log_level" json:"logLevel"`
}

type Config struct {
	User           string              `toml:"user" json:"user"`
	APIKey         string              `toml:"api_key" json:"apiKey"`
	BaseURL        string              `toml:"base_url" json:"baseUrl"`
	Organization   string              `toml:"organization" json:"organization"`
	DataDir        string              `toml:"data_dir" json:"dataDir"`
	TimeoutSeconds int                 `toml:"timeout_seconds" json:"timeoutSeconds"`
	Provider       ProviderConfig      `toml:"provider" json:"provider"`
	Chat           ChatConfig          `toml:"chat" json:"chat"`
	Image          ImageConfig         `toml:"image" json:"image"`
	Speech         SpeechConfig        `toml:"speech" json:"speech"`
	Transcription  TranscriptionConfig `toml:"transcription" json:"transcription"`
	Debug          DebugConfig         `toml:"debug" json:"debug"`
}

func Default() Config {
	defaultDataDir := defaultDataDir()
	return Config{
		User:           defaultUser(),
		BaseURL:        "https://api.openai.com/v1",
		DataDir:        defaultDataDir,
		TimeoutSeconds: 300,
		Provider: ProviderConfig{
			MaxConcurrency:    4,
			RequestsPerMinute: 0,
		},
		Chat: ChatConfig{
			Model:                 "gpt-4o-mini",
			Instruction:           "You are a helpful assistant.",
			Temperature:           1,
			MaxOutputTokens:       1024,
			TopP:                  1,
			FrequencyPenalty:      0,
			PresencePenalty:       0,
			MaxConversationCalls:  10,
			MaxTokenSpendingLimit: 16384,
		},
		Image: ImageConfig{
			Model:      "dall-e-3",
			Quality:    "standard",
			Resolution: "1024x1024",
			Style:      "vivid",
			Amount:     1,
		},
		Speech: SpeechConfig{
			Model:  "tts-1",
			Voice:  "alloy",
			Format: "mp3",
			Speed:  1,
		},
		Transcription: TranscriptionConfig{
			Model:       "whisper-1",
			Language:    "en",
			Temperature: 0,
			InputFormat: "wav",
			SampleRate:  8000,
		},
		Debug: DebugConfig{
			LogRequests:  false,
			LogResponses: false,
			LogDirectory: filepath.Join(defaultDataDir, "debug"),
			LogLevel:     "info",
		},
	}
}

// LoadOrCreate reads the config at path, writing the defaults as TOML first when the file does not
// exist. Paths ending in .json or .jsonc are parsed as JSON with comments and are never created.
func LoadOrCreate(path string) (Config, error) {
	config := Default()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !IsJSONPath(path) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return config, err
			}

			configData, err := toml.Marshal(config)
			if err != nil {
				return config, err
			}

			if err := os.WriteFile(path, configData, 0o600); err != nil {
				return config, err
			}

			return normalize(config), nil
		}

		return config, err
	}

	configData, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := Decode(path, configData, &config); err != nil {
		return config, err
	}

	return normalize(config), nil
}

// Decode unmarshals data into config, choosing the format from the file extension of path.
func Decode(path string, data []byte, config *Config) error {
	if IsJSONPath(path) {
		if err := sonic.Unmarshal(jsonc.ToJSON(data), config); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// IsJSONPath reports whether path names a JSON-with-comments config file.
func IsJSONPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".json" || ext == ".jsonc"
}

func normalize(config Config) Config {
	config.DataDir = expandPath(config.DataDir)
	config.Debug.LogDirectory = expandPath(config.Debug.LogDirectory)
	config.BaseURL = strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	config.User = strings.TrimSpace(config.User)
	config.APIKey = strings.TrimSpace(config.APIKey)

	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = 300
	}

	return config
}

// Validate reports every missing required setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.APIKey == "" {
		errs = append(errs, errors.New("api_key is required (or set OPENAI_API_KEY)"))
	}

	if c.User == "" {
		errs = append(errs, errors.New("user is required"))
	}

	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url is required"))
	}

	if !c.ChatActive() && !c.ImageActive() && !c.SpeechActive() && !c.TranscriptionActive() {
		errs = append(errs, errors.New("no module configured: set at least one of chat, image, speech or transcription model"))
	}

	if c.ChatActive() {
		if _, err := capability.LookupChat(c.Chat.Model); err != nil {
			errs = append(errs, fmt.Errorf("chat: %w", err))
		}
	}

	if c.ImageActive() {
		if _, err := capability.LookupImage(c.Image.Model); err != nil {
			errs = append(errs, fmt.Errorf("image: %w", err))
		}
	}

	if c.SpeechActive() {
		if _, err := capability.LookupSpeech(c.Speech.Model); err != nil {
			errs = append(errs, fmt.Errorf("speech: %w", err))
		}
	}

	if c.TranscriptionActive() {
		if _, err := capability.LookupTranscription(c.Transcription.Model); err != nil {
			errs = append(errs, fmt.Errorf("transcription: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c Config) ChatActive() bool {
	return strings.TrimSpace(c.Chat.Model) != ""
}

func (c Config) ImageActive() bool {
	return strings.TrimSpace(c.Image.Model) != ""
}

func (c Config) SpeechActive() bool {
	return strings.TrimSpace(c.Speech.Model) != ""
}

func (c Config) TranscriptionActive() bool {
	return strings.TrimSpace(c.Transcription.Model) != ""
}

func defaultDataDir() string {
	homeDir, _ := os.UserHomeDir()

	if homeDir == "" {
		return ".parley"
	}

	return filepath.Join(homeDir, ".parley")
}

func defaultUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "parley"
}

func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()

		if homeDir != "" {
			trimmed := strings.TrimPrefix(path, "~")
			trimmed = strings.TrimPrefix(trimmed, string(os.PathSeparator))

			return filepath.Join(homeDir, trimmed)
		}
	}

	return path
}
