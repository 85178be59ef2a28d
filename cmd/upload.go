package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docvoice/docvoice/internal/app"
	"github.com/docvoice/docvoice/internal/document"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Index documents into the knowledge store",
	Long: `Extract text from the given files (.txt, .md, .pdf), split it into
chunks, embed each chunk, and store them for retrieval.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpload(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(parent context.Context, paths []string) error {
	a, err := setupApp(parent)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	for _, path := range paths {
		if err := uploadFile(parent, a, path); err != nil {
			return fmt.Errorf("uploading %s: %w", path, err)
		}
	}
	return nil
}

func uploadFile(ctx context.Context, a *app.App, path string) error {
	name := filepath.Base(path)
	if !document.Supported(name) {
		return fmt.Errorf("%w: %s", document.ErrUnsupportedType, name)
	}

	f, err := os.Open(path) //nolint:gosec // user-supplied CLI argument
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer func() { _ = f.Close() }()

	text, err := document.ExtractText(name, f)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}

	chunks, err := a.Splitter.Split(text)
	if err != nil {
		return fmt.Errorf("splitting text: %w", err)
	}

	docs := document.BuildChunks(name, "", chunks)
	added, err := a.Knowledge.AddBatch(ctx, docs)
	if err != nil {
		return fmt.Errorf("indexing chunks (%d stored): %w", added, err)
	}

	fmt.Printf("%s: %d chunks indexed\n", name, added)
	return nil
}
