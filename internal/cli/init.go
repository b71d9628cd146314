package cli

import (
	"fmt"
	"os"

	"github.com/erg0nix/parley/internal/config"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE:  runInitCmd,
	}
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = defaultConfigPath()
	}

	if err := writeDefaultConfig(configPath); err != nil {
		return err
	}

	fmt.Println(styleSuccess.Render("wrote "+configPath) + " " +
		styleDim.Render("set api_key or OPENAI_API_KEY before sending requests"))
	return nil
}

func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists; remove it first to regenerate", path)
	}

	if config.IsJSONPath(path) {
		return fmt.Errorf("%s: init writes TOML; choose a .toml path", path)
	}

	if _, err := config.LoadOrCreate(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
