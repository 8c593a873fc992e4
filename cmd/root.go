package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	envFile    string
	apiURL     string
	timeoutArg string
	dataDir    string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jonas-chat",
	Short: "Chat with the Jonas AI assistant",
	Long: `A terminal client for the Jonas AI assistant.

Jonas keeps every conversation as a session on the server. This tool lets you
chat interactively, send one-off questions, and browse, export and delete your
saved sessions.

Quick Start:
  jonas-chat chat                      # Open the interactive chat
  jonas-chat send "Write a user story" # Ask a single question
  jonas-chat sessions                  # List saved sessions
  jonas-chat export --format md        # Export the current session

The backend URL comes from --api-url, JONAS_API_URL or the config file.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the per-user config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Load environment variables from this file if it exists")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (overrides config and JONAS_API_URL)")
	rootCmd.PersistentFlags().StringVar(&timeoutArg, "timeout", "", "Request timeout, e.g. 90s (clamped to 60s-180s)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for the local state database")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
