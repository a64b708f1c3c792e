// Package cli holds the storyscanner cobra commands.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"StoryScanner/internal/config"
	"StoryScanner/internal/logging"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "storyscanner",
	Short: "Aggregate AI news stories into a single payload",
	Long: `storyscanner collects stories from newsletters, forums and news pages,
filters and deduplicates them, resolves preview images and writes one
JSON payload.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config (default $STORY_SCANNER_CONFIG)")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() config.Config {
	return config.Load(configPath)
}

func newLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	return logging.NewWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
}
