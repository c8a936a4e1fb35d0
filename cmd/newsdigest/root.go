package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsdigest/internal/config"
	"github.com/deusflow/newsdigest/internal/logger"
)

const appName = "newsdigest"

type appFlags struct {
	categoriesPath string
	debug          bool
}

var (
	flags appFlags

	// set by the persistent pre-run for every subcommand
	cfg  *config.Config
	cats *config.CategoriesConfig
)

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Collect, filter and summarize topic news into a daily digest",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if flags.categoriesPath != "" {
			loaded.CategoriesConfigPath = flags.categoriesPath
		}
		if flags.debug {
			loaded.Debug = true
		}
		logger.Init(loaded.Debug)

		categories, err := config.LoadCategories(loaded.CategoriesConfigPath)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		// history only reads the archive
		if cmd != historyCmd {
			if err := loaded.ValidateCredentials(categories); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
		}

		cfg, cats = loaded, categories
		logger.Debug("Configuration loaded", "config", cfg.String(), "categories", len(cats.Categories))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.categoriesPath, "categories", "", "path to the categories YAML (overrides CATEGORIES_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(collectCmd, runCmd, historyCmd)
}
