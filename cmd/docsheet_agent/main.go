// Package main provides the entry point for the DocSheet agent CLI and server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docsheet_agent",
	Short: "DocSheet document-to-spreadsheet agent",
	Long:  "DocSheet turns heterogeneous source documents (audio, images, PDFs, text) into structured spreadsheet data via transcription, OCR, and generative synthesis, with versioned project state and Google Sheets sync.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
