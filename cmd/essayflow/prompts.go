package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jonathan/essayflow/internal/prompts"
)

// promptFiles are the embedded template files, grouped by pipeline phase.
var promptFiles = []string{"drafting.json", "rewriting.json", "structuring.json"}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List the embedded prompt templates",
	Long:  `Lists every prompt template key bundled into the binary, grouped by file. Useful when editing the prompt JSON files to check what the pipeline stages will resolve.`,
	RunE:  runPrompts,
}

func init() {
	rootCmd.AddCommand(promptsCmd)
}

func runPrompts(cmd *cobra.Command, _ []string) error {
	for _, file := range promptFiles {
		keys, err := prompts.List(file)
		if err != nil {
			return fmt.Errorf("failed to list prompts in %s: %w", file, err)
		}
		sort.Strings(keys)

		fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", file)
		for _, key := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", key)
		}
	}
	return nil
}
