package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Generate structured insights for a project's dataset",
	Long:  `Ask the model for a structured analysis of the project's current dataset and print the JSON result. Results are cached until the dataset changes.`,
	RunE:  runAnalyze,
}

var (
	analyzeConfigPath string
	analyzeProjectID  string
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to config.json file")
	analyzeCmd.Flags().StringVar(&analyzeProjectID, "project", "", "Project ID to analyze (required)")

	analyzeCmd.MarkFlagRequired("project")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	projectID, err := uuid.Parse(analyzeProjectID)
	if err != nil {
		return fmt.Errorf("invalid project ID format: %w", err)
	}

	cfg, err := loadCLIConfig(analyzeConfigPath, false)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	content, err := a.pipeline.Analyze(ctx, projectID)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, content)
	return nil
}
