package cli

import (
	"fmt"
	"math"
	"os"

	"github.com/erg0nix/parley/internal/chat"
	"github.com/erg0nix/parley/internal/config"
	"github.com/erg0nix/parley/internal/conversation"
	"github.com/erg0nix/parley/internal/params"

	"github.com/spf13/cobra"
)

func newCostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cost [text]",
		Short: "Estimate the cost of a prompt and the conversation budget",
		Args:  cobra.ArbitraryArgs,
		RunE:  runCostCmd,
	}

	cmd.Flags().Int("output-tokens", -1, "expected reply tokens (default: priced at the input rate plus output rate)")

	return cmd
}

func runCostCmd(cmd *cobra.Command, args []string) error {
	text, err := promptText(args, os.Stdin)
	if err != nil {
		return err
	}

	configPath, _ := cmd.Flags().GetString("config")
	levelOverride, _ := cmd.Flags().GetString("log-level")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogging(cfg, levelOverride)

	ch, err := chat.New(cfg.Chat.Model, params.DefaultsFromConfig(cfg), nil, logger)
	if err != nil {
		return err
	}

	outputTokens, _ := cmd.Flags().GetInt("output-tokens")

	var cost float64
	if outputTokens < 0 {
		cost = ch.PromptCostText(text)
	} else {
		cost = ch.PromptCostTokens(conversation.EstimateTokens(text), outputTokens)
	}

	fmt.Println(styleModel.Render(ch.Model()) + " " + styleCost.Render(fmt.Sprintf("$%.6f", cost)))

	fmt.Println(styleDim.Render(budgetSummary(cfg.Chat)))

	return nil
}

func budgetSummary(cfg config.ChatConfig) string {
	maxTokens := cfg.MaxOutputTokens

	spend := chat.TokenSpendingLimit(cfg.MaxConversationCalls, maxTokens)
	needed := fmt.Sprintf("%d", spend)
	if spend == math.MaxInt {
		needed = "more than " + needed
	}

	return fmt.Sprintf("token limit %d allows %d turns of %d tokens; %d calls need %s tokens",
		cfg.MaxTokenSpendingLimit,
		chat.ConversationLimit(cfg.MaxTokenSpendingLimit, maxTokens),
		maxTokens,
		cfg.MaxConversationCalls,
		needed,
	)
}
