// Package transcription is the speech-to-text module.
package transcription

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/erg0nix/parley/internal/audio"
	"github.com/erg0nix/parley/internal/capability"
	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/params"
	"github.com/erg0nix/parley/internal/provider"
)

const (
	FieldAudio       = "audio"
	FieldLanguage    = "language"
	FieldTemperature = "temperature"
	FieldInputFormat = "input_format"
)

type Options struct {
	Prompt      *string
	Language    *string
	Temperature *float64
	InputFormat *string
	SampleRate  *int
}

type Transcriber interface {
	CreateTranscription(ctx context.Context, req provider.TranscriptionRequest) (string, error)
}

type Transcription struct {
	profile     capability.TranscriptionProfile
	cfg         config.TranscriptionConfig
	transcriber Transcriber
	logger      *slog.Logger
}

func New(cfg config.TranscriptionConfig, transcriber Transcriber, logger *slog.Logger) (*Transcription, error) {
	profile, err := capability.LookupTranscription(cfg.Model)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Transcription{
		profile:     profile,
		cfg:         cfg,
		transcriber: transcriber,
		logger:      logger.With("module", "transcription", "model", cfg.Model),
	}, nil
}

func (t *Transcription) Model() string {
	return t.profile.Model
}

func (t *Transcription) Profile() capability.TranscriptionProfile {
	return t.profile
}

// Resolve converts raw input encodings to WAV and validates the upload. The file name is the
// content hash of the uploaded bytes.
func (t *Transcription) Resolve(opts Options, data []byte) (provider.TranscriptionRequest, error) {
	format := strings.ToLower(valueOr(opts.InputFormat, t.cfg.InputFormat))
	rate := valueOr(opts.SampleRate, t.cfg.SampleRate)

	req := provider.TranscriptionRequest{
		Model:       t.profile.Model,
		Prompt:      valueOr(opts.Prompt, t.cfg.Prompt),
		Language:    strings.ToLower(valueOr(opts.Language, t.cfg.Language)),
		Temperature: valueOr(opts.Temperature, t.cfg.Temperature),
	}

	var c params.Collector

	upload, ext, err := audio.Normalize(data, format, rate)
	switch {
	case len(data) == 0:
		c.Require(false, FieldAudio, "must not be empty")
	case err != nil:
		c.Require(false, FieldInputFormat, "%s", err.Error())
	default:
		c.Require(capability.CheckTranscriptionInput(t.profile, int64(len(upload))), FieldAudio,
			"size must be within (0, %d) bytes", t.profile.UploadLimitBytes)
		req.Audio = upload
		req.FileName = FileName(upload, ext)
	}

	if req.Language != "" {
		c.Require(capability.CheckTranscriptionLanguage(t.profile, req.Language), FieldLanguage,
			"%q is not a supported ISO-639-1 code", req.Language)
	}
	c.Require(capability.CheckTranscriptionTemperature(t.profile, req.Temperature), FieldTemperature,
		"%g outside %s", req.Temperature, t.profile.Temperature)

	if err := c.Err(); err != nil {
		return provider.TranscriptionRequest{}, err
	}

	return req, nil
}

func (t *Transcription) Transcribe(ctx context.Context, opts Options, data []byte) (string, error) {
	req, err := t.Resolve(opts, data)
	if err != nil {
		return "", err
	}

	text, err := t.transcriber.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	t.logger.Debug("audio transcribed", "file", req.FileName, "bytes", len(req.Audio), "characters", len(text))

	return text, nil
}

// Price returns the cost of transcribing seconds of audio.
func (t *Transcription) Price(seconds int) float64 {
	return capability.TranscriptionCost(t.profile, seconds)
}

// PriceAudio prices data by its playing time, rounded up to whole seconds. Only WAV and raw
// encodings carry a readable duration.
func (t *Transcription) PriceAudio(data []byte, format string, sampleRate int) (float64, error) {
	wav, _, err := audio.Normalize(data, strings.ToLower(format), sampleRate)
	if err != nil {
		return 0, err
	}

	duration, err := audio.Duration(wav)
	if err != nil {
		return 0, err
	}

	return t.Price(int(math.Ceil(duration.Seconds()))), nil
}

// FileName names an upload after the BLAKE3 digest of its contents.
func FileName(data []byte, ext string) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]) + "." + ext
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
