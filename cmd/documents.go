package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docvoice/docvoice/internal/app"
	"github.com/docvoice/docvoice/internal/config"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List indexed documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDocumentsList(cmd.Context())
	},
}

var documentsRemoveCmd = &cobra.Command{
	Use:   "remove <source>",
	Short: "Remove every chunk indexed from a source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDocumentsRemove(cmd.Context(), args[0])
	},
}

func init() {
	documentsCmd.AddCommand(documentsRemoveCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(parent context.Context) error {
	a, err := setupApp(parent)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	sources, err := a.Knowledge.Sources(parent)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	if len(sources) == 0 {
		fmt.Println("No documents indexed.")
		return nil
	}
	for _, source := range sources {
		count, err := a.Knowledge.Count(parent, source)
		if err != nil {
			return fmt.Errorf("counting chunks for %s: %w", source, err)
		}
		fmt.Printf("%s (%d chunks)\n", source, count)
	}
	return nil
}

func runDocumentsRemove(parent context.Context, source string) error {
	a, err := setupApp(parent)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	deleted, err := a.Knowledge.DeleteSource(parent, source)
	if err != nil {
		return fmt.Errorf("removing %s: %w", source, err)
	}
	fmt.Printf("%s: %d chunks removed\n", source, deleted)
	return nil
}

// setupApp loads config and wires the application for one-shot commands.
func setupApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a, err := app.Setup(ctx, cfg, newLogger())
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}
