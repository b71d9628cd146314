package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/erg0nix/parley/internal/config"

	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "parley",
		Short:         "parley validates and sends requests to the OpenAI API",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (.toml, .json or .jsonc)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newPromptCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newImageCmd())
	rootCmd.AddCommand(newSpeakCmd())
	rootCmd.AddCommand(newTranscribeCmd())
	rootCmd.AddCommand(newModelsCmd())
	rootCmd.AddCommand(newCostCmd())
	rootCmd.AddCommand(newInitCmd())

	return rootCmd
}

func defaultConfigPath() string {
	return filepath.Join(config.Default().DataDir, "config.toml")
}

func loadConfig(path string) (config.Config, error) {
	configPath := path
	if configPath == "" {
		configPath = defaultConfigPath()
	}

	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return cfg, err
	}
	return config.ApplyEnv(cfg), nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogging(cfg config.Config, override string) *slog.Logger {
	level := cfg.Debug.LogLevel
	if override != "" {
		level = override
	}

	logger := newLogger(os.Stderr, level)
	slog.SetDefault(logger)
	return logger
}
