package cli

import (
	"github.com/spf13/cobra"

	"StoryScanner/internal/app"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the latest payload and refresh it periodically",
	Long: `Starts the HTTP API (GET /api/articles, GET /healthz) and refreshes the
payload immediately and then every server.refreshInterval.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	ctx := cmd.Context()

	application, err := app.New(ctx, cfg, newLogger(cmd, cfg), app.Options{})
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Serve(ctx)
}
