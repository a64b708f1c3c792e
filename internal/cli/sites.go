package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List configured sites",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig()
		for _, site := range cfg.Sites {
			cmd.Printf("%-20s %-6s %-10s %s", site.Name, site.Scanner, site.SourceKind(), site.URL)
			if len(site.Tags) > 0 {
				cmd.Printf(" [%s]", strings.Join(site.Tags, ", "))
			}
			cmd.Println()
		}
		return cfg.Validate()
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}
