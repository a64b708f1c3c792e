package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"StoryScanner/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect, enrich and store one payload",
	Long: `Runs the pipeline once: every configured site is scanned, stories are
classified and merged, thumbnails are resolved, and the payload is written
to the configured stores.`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	ctx := cmd.Context()

	application, err := app.New(ctx, cfg, newLogger(cmd, cfg), app.Options{})
	if err != nil {
		return err
	}
	defer application.Close()

	payload, err := application.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	records, nested := payload.Count()
	cmd.Printf("Stored %d records (%d nested stories) at %s\n",
		records, nested, payload.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	return nil
}
