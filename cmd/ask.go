package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askShowSources bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the uploaded documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "show the document chunks the answer is based on")
	rootCmd.AddCommand(askCmd)
}

func runAsk(parent context.Context, question string) error {
	a, err := setupApp(parent)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	resp, err := a.Answerer.Answer(parent, question, askShowSources)
	if err != nil {
		return fmt.Errorf("answering: %w", err)
	}

	fmt.Println(resp.Answer)

	if askShowSources && len(resp.Sources) > 0 {
		fmt.Printf("\nSources (%d):\n", len(resp.Sources))
		for _, src := range resp.Sources {
			fmt.Printf("  [%d] %s (similarity %.2f)\n", src.ID, src.Metadata["source"], src.Similarity)
			fmt.Printf("      %s\n", src.Content)
		}
	}
	fmt.Printf("\n(%.2fs)\n", resp.ResponseTime)
	return nil
}
