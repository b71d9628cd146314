// Package params merges per-call chat options with configured defaults and validates the result
// against a model capability profile.
package params

import (
	"github.com/erg0nix/parley/internal/capability"
	"github.com/erg0nix/parley/internal/config"
)

const (
	FieldUser                  = "user"
	FieldInstruction           = "instruction"
	FieldPrompt                = "prompt"
	FieldTemperature           = "temperature"
	FieldMaxOutputTokens       = "max_output_tokens"
	FieldTopP                  = "top_p"
	FieldFrequencyPenalty      = "frequency_penalty"
	FieldPresencePenalty       = "presence_penalty"
	FieldMaxConversationCalls  = "max_conversation_calls"
	FieldMaxTokenSpendingLimit = "max_token_spending_limit"
)

// Options are the optional per-call chat parameters. A nil field takes its configured default.
type Options struct {
	User                  *string
	Instruction           *string
	Temperature           *float64
	MaxOutputTokens       *int
	TopP                  *float64
	FrequencyPenalty      *float64
	PresencePenalty       *float64
	MaxConversationCalls  *int
	MaxTokenSpendingLimit *int
}

// Defaults are the configured values substituted for absent options.
type Defaults struct {
	User                  string
	Instruction           string
	Temperature           float64
	MaxOutputTokens       int
	TopP                  float64
	FrequencyPenalty      float64
	PresencePenalty       float64
	MaxConversationCalls  int
	MaxTokenSpendingLimit int
}

// DefaultsFromConfig reads the chat defaults from cfg, taking the user from the top level.
func DefaultsFromConfig(cfg config.Config) Defaults {
	return Defaults{
		User:                  cfg.User,
		Instruction:           cfg.Chat.Instruction,
		Temperature:           cfg.Chat.Temperature,
		MaxOutputTokens:       cfg.Chat.MaxOutputTokens,
		TopP:                  cfg.Chat.TopP,
		FrequencyPenalty:      cfg.Chat.FrequencyPenalty,
		PresencePenalty:       cfg.Chat.PresencePenalty,
		MaxConversationCalls:  cfg.Chat.MaxConversationCalls,
		MaxTokenSpendingLimit: cfg.Chat.MaxTokenSpendingLimit,
	}
}

// Params is a fully populated, validated chat parameter set.
type Params struct {
	User             string
	Instruction      string
	Temperature      float64
	MaxOutputTokens  int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// Limits are the two exhaustion limits of a conversation.
type Limits struct {
	MaxCalls      int
	MaxTokenSpend int
}

// Resolve substitutes defaults for absent options and validates the result. On failure the
// returned error is a *ValidationError holding every violation.
func Resolve(opts Options, prompt string, defaults Defaults, profile capability.ChatProfile) (Params, Limits, error) {
	resolved := Params{
		User:             valueOr(opts.User, defaults.User),
		Instruction:      valueOr(opts.Instruction, defaults.Instruction),
		Temperature:      valueOr(opts.Temperature, defaults.Temperature),
		MaxOutputTokens:  valueOr(opts.MaxOutputTokens, defaults.MaxOutputTokens),
		TopP:             valueOr(opts.TopP, defaults.TopP),
		FrequencyPenalty: valueOr(opts.FrequencyPenalty, defaults.FrequencyPenalty),
		PresencePenalty:  valueOr(opts.PresencePenalty, defaults.PresencePenalty),
	}

	limits := Limits{
		MaxCalls:      valueOr(opts.MaxConversationCalls, defaults.MaxConversationCalls),
		MaxTokenSpend: valueOr(opts.MaxTokenSpendingLimit, defaults.MaxTokenSpendingLimit),
	}

	var c Collector
	collect(&c, resolved, prompt, profile)
	c.Require(limits.MaxCalls >= 0, FieldMaxConversationCalls, "must not be negative, got %d", limits.MaxCalls)
	c.Require(limits.MaxTokenSpend >= 0, FieldMaxTokenSpendingLimit, "must not be negative, got %d", limits.MaxTokenSpend)

	if err := c.Err(); err != nil {
		return Params{}, Limits{}, err
	}

	return resolved, limits, nil
}

// Validate checks an already resolved parameter set and returns every violation.
func Validate(p Params, prompt string, profile capability.ChatProfile) []Violation {
	var c Collector
	collect(&c, p, prompt, profile)
	return c.Violations()
}

func collect(c *Collector, p Params, prompt string, profile capability.ChatProfile) {
	c.RequireText(p.User, FieldUser)
	c.RequireText(p.Instruction, FieldInstruction)
	c.RequireText(prompt, FieldPrompt)
	c.Require(capability.CheckTemperature(profile, p.Temperature), FieldTemperature,
		"%g outside %s", p.Temperature, profile.Temperature)
	c.Require(capability.CheckTokens(profile, p.MaxOutputTokens), FieldMaxOutputTokens,
		"%d outside [%d, %d] for %s", p.MaxOutputTokens, profile.MinOutputTokens, profile.MaxOutputTokens, profile.Model)
	c.Require(capability.CheckTopP(profile, p.TopP), FieldTopP,
		"%g outside %s", p.TopP, profile.TopP)
	c.Require(capability.CheckFrequencyPenalty(profile, p.FrequencyPenalty), FieldFrequencyPenalty,
		"%g outside %s", p.FrequencyPenalty, profile.FrequencyPenalty)
	c.Require(capability.CheckPresencePenalty(profile, p.PresencePenalty), FieldPresencePenalty,
		"%g outside %s", p.PresencePenalty, profile.PresencePenalty)
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

// Ptr returns a pointer to v, for building Options literals.
func Ptr[T any](v T) *T {
	return &v
}
