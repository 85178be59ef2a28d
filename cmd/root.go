// Package cmd implements the docvoice command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docvoice/docvoice/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docvoice",
	Short: "Voice-enabled document question answering",
	Long: `docvoice indexes your documents into a vector store and answers
questions about them, by text or by voice. Answers come strictly from the
uploaded content.

Run "docvoice serve" to start the HTTP API, "docvoice upload" to index
documents, "docvoice ask" for a text question, or "docvoice voice" for a
microphone conversation against a running server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	// .env is a development convenience; absence is not an error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "warning: loading .env:", err)
	}
	return rootCmd.Execute() //nolint:wrapcheck
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds the process logger honoring the --verbose flag.
func newLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if verbose {
		cfg.Level = slog.LevelDebug
	}
	return log.New(cfg)
}
