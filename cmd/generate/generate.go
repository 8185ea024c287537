// Package generate implements the generate subcommand, one full dashboard
// generation run.
package generate

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/birdnet-dash/internal/conf"
	"github.com/tphakala/birdnet-dash/internal/dashboard"
)

// Command creates the generate subcommand
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Probe stations, scrape detections and generate the dashboard HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			generator := dashboard.NewGenerator(settings)
			defer generator.Close()
			return generator.Run(cmd.Context())
		},
	}
	return cmd
}
