package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/table"

	"github.com/erg0nix/parley/internal/capability"

	"github.com/spf13/cobra"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the supported models with their limits and prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Println(modelsTable().Render())
			return nil
		},
	}
}

func modelsTable() *table.Table {
	t := newTable("MODEL", "KIND", "LIMITS", "PRICE")

	for _, id := range capability.ChatModelIDs() {
		p := capability.ChatModels[id]
		t.Row(id, "chat",
			fmt.Sprintf("context %d, output %d", p.ContextWindow, p.MaxOutputTokens),
			fmt.Sprintf("$%g in / $%g out per 1K tokens", p.InputPer1K, p.OutputPer1K))
	}

	for _, id := range capability.ImageModelIDs() {
		p := capability.ImageModels[id]
		t.Row(id, "image",
			fmt.Sprintf("%s, up to %d", strings.Join(p.Resolutions(), " "), p.MaxAmount),
			imagePriceRange(p))
	}

	for _, id := range capability.SpeechModelIDs() {
		p := capability.SpeechModels[id]
		t.Row(id, "speech",
			fmt.Sprintf("%d chars, speed %s", p.MaxChars, p.Speed),
			fmt.Sprintf("$%g per 1K chars", p.PricePer1KChars))
	}

	for _, id := range capability.TranscriptionModelIDs() {
		p := capability.TranscriptionModels[id]
		t.Row(id, "transcription",
			fmt.Sprintf("%d languages, %d MB", len(p.Languages), p.UploadLimitBytes/1_000_000),
			fmt.Sprintf("$%g per minute", p.PricePerMinute))
	}

	return t
}

func imagePriceRange(p capability.ImageProfile) string {
	lo, hi := 0.0, 0.0
	for _, qualities := range p.Prices {
		for _, price := range qualities {
			if lo == 0 || price < lo {
				lo = price
			}
			hi = max(hi, price)
		}
	}

	if lo == hi {
		return fmt.Sprintf("$%g per image", lo)
	}
	return fmt.Sprintf("$%g to $%g per image", lo, hi)
}
