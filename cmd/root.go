// Package cmd assembles the HerdTrack-Go command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/herdtrack/herdtrack-go/cmd/backup"
	"github.com/herdtrack/herdtrack-go/cmd/notify"
	"github.com/herdtrack/herdtrack-go/cmd/serve"
	"github.com/herdtrack/herdtrack-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "herdtrack",
		Short: "HerdTrack-Go livestock tracking backend",
		// Running without a subcommand starts the server, matching how the
		// binary is launched from a unit file.
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve.Run(settings)
		},
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		serve.Command(settings),
		backup.Command(settings),
		notify.Command(settings),
		versionCommand(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := conf.ValidateSettings(settings); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		return nil
	}

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.WebServer.Port, "port", settings.WebServer.Port, "Port for the HTTP API server")
}

// versionCommand prints build information.
func versionCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("HerdTrack-Go %s (built %s)\n", settings.Version, settings.BuildDate)
		},
	}
}
