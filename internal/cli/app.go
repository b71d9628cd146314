package cli

import (
	"fmt"
	"log/slog"

	"github.com/erg0nix/parley/internal/client"
	"github.com/erg0nix/parley/internal/config"

	"github.com/spf13/cobra"
)

type App struct {
	Config     config.Config
	ConfigPath string
	Client     *client.Client
	Logger     *slog.Logger
}

func newApp(cmd *cobra.Command) (*App, error) {
	configPath, _ := cmd.Flags().GetString("config")
	levelOverride, _ := cmd.Flags().GetString("log-level")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := setupLogging(cfg, levelOverride)

	c, err := client.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:     cfg,
		ConfigPath: configPath,
		Client:     c,
		Logger:     logger,
	}, nil
}
