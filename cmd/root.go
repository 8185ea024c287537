package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birdnet-dash/cmd/generate"
	"github.com/tphakala/birdnet-dash/internal/conf"
	"github.com/tphakala/birdnet-dash/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "birdnet-dash",
		Short: "BirdNET-Pi aggregator dashboard generator",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(generate.Command(settings))

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Flags are parsed by now; raise the log level if debug was requested
		if settings.Debug {
			logging.Init(slog.LevelDebug)
		}
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVarP(&settings.OutputDir, "output-dir", "o", settings.OutputDir, "Directory to write index.html to")
	rootCmd.PersistentFlags().StringVar(&settings.DataDir, "data-dir", settings.DataDir, "Directory holding persisted species history")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
