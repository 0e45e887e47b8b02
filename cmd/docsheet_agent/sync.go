package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nathan/docsheet/internal/observability"
	"github.com/nathan/docsheet/internal/pipeline"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push a project's dataset to its connected Google Sheet",
	Long:  `Merge the project's current dataset into its connected spreadsheet and print a summary of the result.`,
	RunE:  runSync,
}

var (
	syncConfigPath string
	syncProjectID  string
)

func init() {
	syncCmd.Flags().StringVar(&syncConfigPath, "config", "", "Path to config.json file")
	syncCmd.Flags().StringVar(&syncProjectID, "project", "", "Project ID to sync (required)")

	syncCmd.MarkFlagRequired("project")

	rootCmd.AddCommand(syncCmd)
}

func runSync(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	projectID, err := uuid.Parse(syncProjectID)
	if err != nil {
		return fmt.Errorf("invalid project ID format: %w", err)
	}

	cfg, err := loadCLIConfig(syncConfigPath, false)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	printer := observability.NewPrinter(os.Stdout)
	summary, err := a.pipeline.Sync(ctx, projectID)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoConnectedSheet) {
			printer.PrintSyncSummary("", observability.SyncStats{})
			return nil
		}
		return err
	}

	printer.PrintSyncSummary(summary.SpreadsheetID, observability.SyncStats{
		ExistingRows: summary.ExistingRows,
		NewRows:      summary.NewRows,
		MergedRows:   summary.MergedRows,
		ColumnCount:  summary.ColumnCount,
	})
	return nil
}
