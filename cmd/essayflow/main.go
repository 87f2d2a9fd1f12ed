// Package main provides the entry point for the EssayFlow CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "essayflow",
	Short: "EssayFlow essay generation service",
	Long:  "EssayFlow turns assignment documents into structured academic essays through a staged AI pipeline: extraction, drafting, humanization, review refinement and document rendering.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
