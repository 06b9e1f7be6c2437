// Package commands implements the CLI commands for the mediablob server.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeArtisanRiz/media-blob-kit/internal/logger"
	"github.com/CodeArtisanRiz/media-blob-kit/pkg/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mediablob",
	Short: "mediablob - multi-tenant media asset service",
	Long: `mediablob stores uploaded media in S3-compatible object storage,
derives image variants through a durable job queue and serves signed
content URLs. Configuration comes entirely from environment variables.

Use "mediablob [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(superuserCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mediablob %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

// loadConfig reads the environment configuration and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}
