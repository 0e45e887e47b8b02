package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nathan/docsheet/internal/extraction"
	"github.com/nathan/docsheet/internal/observability"
	"github.com/nathan/docsheet/internal/ocr"
	"github.com/nathan/docsheet/internal/speech"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract text from source files without persisting anything",
	Long:  `Run modality classification and text extraction (transcription for audio, OCR for images and documents) on the given files and print the results. Useful for inspecting what the pipeline would feed into synthesis.`,
	RunE:  runExtract,
}

var (
	extractConfigPath string
	extractFiles      []string
)

func init() {
	extractCmd.Flags().StringVar(&extractConfigPath, "config", "", "Path to config.json file")
	extractCmd.Flags().StringArrayVarP(&extractFiles, "file", "f", nil, "Source file URL (repeatable)")

	extractCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(_ *cobra.Command, _ []string) error {
	cfg, err := loadCLIConfig(extractConfigPath, false)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	extractor := extraction.NewService(
		speech.NewClient(cfg.SpeechAPIKey),
		ocr.NewClient(cfg.OCRAPIKey),
	)

	contents, err := extractor.ExtractAll(context.Background(), extractFiles)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	observability.NewPrinter(os.Stdout).PrintExtractedContents(contents)
	return nil
}
