// Package image is the image generation module.
package image

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/erg0nix/parley/internal/capability"
	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/params"
	"github.com/erg0nix/parley/internal/provider"
)

const (
	FieldUser       = "user"
	FieldPrompt     = "prompt"
	FieldAmount     = "amount"
	FieldQuality    = "quality"
	FieldResolution = "resolution"
	FieldStyle      = "style"
)

// Options are the optional per-call image parameters. A nil field takes its configured default.
type Options struct {
	User       *string
	Amount     *int
	Quality    *string
	Resolution *string
	Style      *string
}

type Generator interface {
	CreateImage(ctx context.Context, req provider.ImageRequest) ([]string, error)
}

type Image struct {
	profile   capability.ImageProfile
	cfg       config.ImageConfig
	user      string
	generator Generator
	logger    *slog.Logger
}

func New(cfg config.ImageConfig, user string, generator Generator, logger *slog.Logger) (*Image, error) {
	profile, err := capability.LookupImage(cfg.Model)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Image{
		profile:   profile,
		cfg:       cfg,
		user:      user,
		generator: generator,
		logger:    logger.With("module", "image", "model", cfg.Model),
	}, nil
}

func (i *Image) Model() string {
	return i.profile.Model
}

func (i *Image) Profile() capability.ImageProfile {
	return i.profile
}

// Resolve merges opts with the configured defaults and validates the result against the model.
// Models without styles or a quality choice never send those fields.
func (i *Image) Resolve(opts Options, prompt string) (provider.ImageRequest, error) {
	req, c := i.resolve(opts)
	req.Prompt = prompt

	c.RequireText(prompt, FieldPrompt)
	c.Require(strings.TrimSpace(prompt) == "" || capability.CheckImagePrompt(i.profile, prompt), FieldPrompt,
		"length must be within [%d, %d] characters", i.profile.MinPromptChars, i.profile.MaxPromptChars)

	if err := c.Err(); err != nil {
		return provider.ImageRequest{}, err
	}

	return req, nil
}

func (i *Image) resolve(opts Options) (provider.ImageRequest, *params.Collector) {
	amount := i.cfg.Amount
	if amount <= 0 {
		amount = 1
	}

	req := provider.ImageRequest{
		Model:      i.profile.Model,
		User:       valueOr(opts.User, i.user),
		Amount:     valueOr(opts.Amount, amount),
		Quality:    valueOr(opts.Quality, i.cfg.Quality),
		Resolution: valueOr(opts.Resolution, i.cfg.Resolution),
		Style:      valueOr(opts.Style, i.cfg.Style),
	}

	c := &params.Collector{}
	c.RequireText(req.User, FieldUser)
	c.Require(capability.CheckImageAmount(i.profile, req.Amount), FieldAmount,
		"%d outside [%d, %d] for %s", req.Amount, i.profile.MinAmount, i.profile.MaxAmount, i.profile.Model)

	validResolution := capability.CheckImageResolution(i.profile, req.Resolution)
	c.Require(validResolution, FieldResolution, "%q not one of %v", req.Resolution, i.profile.Resolutions())

	if i.hasQualityChoice() {
		_, err := capability.ImagePrice(i.profile, req.Resolution, req.Quality)
		c.Require(!validResolution || err == nil, FieldQuality, "%q not available at %s", req.Quality, req.Resolution)
	} else {
		req.Quality = ""
	}

	if i.profile.SupportsStyle() {
		c.Require(capability.CheckImageStyle(i.profile, req.Style), FieldStyle,
			"%q not one of %v", req.Style, i.profile.Styles)
	} else {
		req.Style = ""
	}

	return req, c
}

// Generate creates images for prompt and returns their URLs without duplicates.
func (i *Image) Generate(ctx context.Context, opts Options, prompt string) ([]string, error) {
	req, err := i.Resolve(opts, prompt)
	if err != nil {
		return nil, err
	}

	urls, err := i.generator.CreateImage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	seen := make(map[string]struct{}, len(urls))
	unique := urls[:0]
	for _, url := range urls {
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		unique = append(unique, url)
	}

	i.logger.Debug("images generated", "count", len(unique), "resolution", req.Resolution)

	return unique, nil
}

// Price returns the price of one image at resolution and quality. An empty quality means the
// standard quality.
func (i *Image) Price(resolution, quality string) (float64, error) {
	if quality == "" || !i.hasQualityChoice() {
		quality = capability.QualityStandard
	}
	return capability.ImagePrice(i.profile, resolution, quality)
}

// Cost prices a whole request: the per-image price times the amount.
func (i *Image) Cost(opts Options) (float64, error) {
	req, c := i.resolve(opts)
	if err := c.Err(); err != nil {
		return 0, err
	}

	price, err := i.Price(req.Resolution, req.Quality)
	if err != nil {
		return 0, err
	}

	return price * float64(req.Amount), nil
}

func (i *Image) hasQualityChoice() bool {
	return capability.CheckImageQuality(i.profile, capability.QualityHD)
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
