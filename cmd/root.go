package cmd

import (
	"fmt"
	"os"

	"astro-service/config"
	"astro-service/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "astro",
	Short:         "Astrology platform service",
	Long:          "astro serves synastry compatibility, lunar void-of-course periods, the moon calendar and daily horoscopes.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "override log.level (debug, info, warn, error)")
}

// loadConfig reads the config named by --config and initializes the logger from it
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}
