package cli

import (
	"github.com/erg0nix/parley/internal/params"

	"github.com/spf13/pflag"
)

func addChatFlags(flags *pflag.FlagSet) {
	flags.String("user", "", "end-user identifier sent with the request")
	flags.String("instruction", "", "system instruction")
	flags.Float64("temperature", 0, "sampling temperature")
	flags.Int("max-tokens", 0, "maximum output tokens per reply")
	flags.Float64("top-p", 0, "nucleus sampling probability mass")
	flags.Float64("frequency-penalty", 0, "frequency penalty")
	flags.Float64("presence-penalty", 0, "presence penalty")
	flags.Int("max-calls", 0, "calls allowed per conversation")
	flags.Int("token-limit", 0, "token spending limit per conversation")
}

// chatOptions sets only the options whose flags were given, leaving the rest to the configured
// defaults.
func chatOptions(flags *pflag.FlagSet) params.Options {
	var opts params.Options

	if flags.Changed("user") {
		v, _ := flags.GetString("user")
		opts.User = &v
	}
	if flags.Changed("instruction") {
		v, _ := flags.GetString("instruction")
		opts.Instruction = &v
	}
	if flags.Changed("temperature") {
		v, _ := flags.GetFloat64("temperature")
		opts.Temperature = &v
	}
	if flags.Changed("max-tokens") {
		v, _ := flags.GetInt("max-tokens")
		opts.MaxOutputTokens = &v
	}
	if flags.Changed("top-p") {
		v, _ := flags.GetFloat64("top-p")
		opts.TopP = &v
	}
	if flags.Changed("frequency-penalty") {
		v, _ := flags.GetFloat64("frequency-penalty")
		opts.FrequencyPenalty = &v
	}
	if flags.Changed("presence-penalty") {
		v, _ := flags.GetFloat64("presence-penalty")
		opts.PresencePenalty = &v
	}
	if flags.Changed("max-calls") {
		v, _ := flags.GetInt("max-calls")
		opts.MaxConversationCalls = &v
	}
	if flags.Changed("token-limit") {
		v, _ := flags.GetInt("token-limit")
		opts.MaxTokenSpendingLimit = &v
	}

	return opts
}

func stringFlag(flags *pflag.FlagSet, name string) *string {
	if !flags.Changed(name) {
		return nil
	}
	v, _ := flags.GetString(name)
	return &v
}

func intFlag(flags *pflag.FlagSet, name string) *int {
	if !flags.Changed(name) {
		return nil
	}
	v, _ := flags.GetInt(name)
	return &v
}

func float64Flag(flags *pflag.FlagSet, name string) *float64 {
	if !flags.Changed(name) {
		return nil
	}
	v, _ := flags.GetFloat64(name)
	return &v
}
