// Package cmd provides CLI commands for pos-journal.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pos-journal",
	Short: "Post daily POS takings to Xero as manual journals",
	Long: `pos-journal reconciles each branch's daily point-of-sale invoices
and receipts from Optomate into one balanced Xero manual journal.

It supports:
- Building taxable, exempt and payment lines per branch per day
- Posting to Xero with a persisted, rotating refresh token
- Refusing to post a branch/day twice (SQLite history)
- Dry-run mode that prints the journal documents
- An optional Beancount archive of everything posted

Example:
  pos-journal init-token
  pos-journal sync --date 2024-03-15
  pos-journal sync PA1 --dry-run
  pos-journal history --limit 20`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(debug)
	},
}

// setupLogging installs the default text logger on stderr.
func setupLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(initTokenCmd)
	rootCmd.AddCommand(historyCmd)
}

func getConfigFile() string {
	return cfgFile
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
