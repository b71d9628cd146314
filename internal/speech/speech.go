// Package speech is the text-to-speech module.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/erg0nix/parley/internal/audio"
	"github.com/erg0nix/parley/internal/capability"
	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/params"
	"github.com/erg0nix/parley/internal/provider"
)

const (
	FieldInput  = "input"
	FieldVoice  = "voice"
	FieldFormat = "format"
	FieldSpeed  = "speed"
)

// PCMSampleRate is the sample rate of the raw pcm output format.
const PCMSampleRate = 24000

type Options struct {
	Voice  *string
	Format *string
	Speed  *float64
}

type Synthesizer interface {
	CreateSpeech(ctx context.Context, req provider.SpeechRequest) ([]byte, error)
}

type Speech struct {
	profile     capability.SpeechProfile
	cfg         config.SpeechConfig
	synthesizer Synthesizer
	logger      *slog.Logger
}

func New(cfg config.SpeechConfig, synthesizer Synthesizer, logger *slog.Logger) (*Speech, error) {
	profile, err := capability.LookupSpeech(cfg.Model)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Speech{
		profile:     profile,
		cfg:         cfg,
		synthesizer: synthesizer,
		logger:      logger.With("module", "speech", "model", cfg.Model),
	}, nil
}

func (s *Speech) Model() string {
	return s.profile.Model
}

func (s *Speech) Profile() capability.SpeechProfile {
	return s.profile
}

func (s *Speech) Resolve(opts Options, input string) (provider.SpeechRequest, error) {
	speed := s.cfg.Speed
	if speed == 0 {
		speed = 1
	}

	req := provider.SpeechRequest{
		Model:  s.profile.Model,
		Input:  input,
		Voice:  valueOr(opts.Voice, s.cfg.Voice),
		Format: valueOr(opts.Format, s.cfg.Format),
		Speed:  valueOr(opts.Speed, speed),
	}

	var c params.Collector
	c.Require(capability.CheckSpeechInput(s.profile, input), FieldInput,
		"length must be within [1, %d] characters", s.profile.MaxChars)
	c.Require(capability.CheckSpeechVoice(s.profile, req.Voice), FieldVoice,
		"%q not one of %v", req.Voice, s.profile.Voices)
	c.Require(capability.CheckSpeechFormat(s.profile, req.Format), FieldFormat,
		"%q not one of %v", req.Format, s.profile.Formats)
	c.Require(capability.CheckSpeechSpeed(s.profile, req.Speed), FieldSpeed,
		"%g outside %s", req.Speed, s.profile.Speed)

	if err := c.Err(); err != nil {
		return provider.SpeechRequest{}, err
	}

	return req, nil
}

// Speak synthesizes input and returns the audio encoded in the resolved format.
func (s *Speech) Speak(ctx context.Context, opts Options, input string) ([]byte, error) {
	req, err := s.Resolve(opts, input)
	if err != nil {
		return nil, err
	}

	data, err := s.synthesizer.CreateSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("speak: %w", err)
	}

	s.logger.Debug("speech synthesized", "characters", utf8.RuneCountInString(input), "bytes", len(data), "format", req.Format)

	return data, nil
}

// SpeakWAV is Speak with the raw pcm format, wrapped into a playable WAV stream.
func (s *Speech) SpeakWAV(ctx context.Context, opts Options, input string) ([]byte, error) {
	opts.Format = params.Ptr(audio.EncodingPCM)

	pcm, err := s.Speak(ctx, opts, input)
	if err != nil {
		return nil, err
	}

	return audio.PCMToWAV(pcm, 1, PCMSampleRate)
}

// Price returns the cost of synthesizing input.
func (s *Speech) Price(input string) float64 {
	return s.PriceChars(utf8.RuneCountInString(input))
}

func (s *Speech) PriceChars(characters int) float64 {
	return capability.SpeechCost(s.profile, characters)
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
