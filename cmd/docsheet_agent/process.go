package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nathan/docsheet/internal/names"
	"github.com/nathan/docsheet/internal/observability"
	"github.com/nathan/docsheet/internal/pipeline"
	"github.com/nathan/docsheet/internal/tabular"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the full document-to-spreadsheet pipeline end-to-end",
	Long: `Orchestrates the entire conversion: extraction (transcription/OCR) -> synthesis -> parsing -> persistence -> sheet sync.

Creates a new project from the given files, or appends files to an existing project with --project.`,
	RunE: runProcess,
}

var (
	processConfigPath string
	processFiles      []string
	processProjectID  string
	processUserID     string
	processName       string
	processColumns    []string
	processContext    string
	processVerbose    bool
)

func init() {
	processCmd.Flags().StringVar(&processConfigPath, "config", "", "Path to config.json file")
	processCmd.Flags().StringArrayVarP(&processFiles, "file", "f", nil, "Source file URL (repeatable)")
	processCmd.Flags().StringVar(&processProjectID, "project", "", "Existing project ID to append files to (mutually exclusive with --user-id)")
	processCmd.Flags().StringVar(&processUserID, "user-id", "", "Owner user ID for a new project")
	processCmd.Flags().StringVarP(&processName, "name", "n", "", "Project name (generated if empty)")
	processCmd.Flags().StringSliceVar(&processColumns, "columns", nil, "Preferred output column names")
	processCmd.Flags().StringVar(&processContext, "context", "", "Free-form context hint for synthesis")
	processCmd.Flags().BoolVarP(&processVerbose, "verbose", "v", false, "Print detailed debug information")

	processCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(processCmd)
}

func runProcess(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	if processProjectID == "" && processUserID == "" {
		return fmt.Errorf("either --project or --user-id must be provided")
	}
	if processProjectID != "" && processUserID != "" {
		return fmt.Errorf("--project and --user-id are mutually exclusive; provide only one")
	}

	cfg, err := loadCLIConfig(processConfigPath, processVerbose)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	opts := pipeline.Options{
		ColumnHints: processColumns,
		ContextHint: processContext,
	}

	var projectID uuid.UUID
	if processProjectID != "" {
		projectID, err = uuid.Parse(processProjectID)
		if err != nil {
			return fmt.Errorf("invalid project ID format: %w", err)
		}
		if err := a.pipeline.AddFiles(ctx, projectID, processFiles, opts); err != nil {
			return err
		}
	} else {
		userID, err := uuid.Parse(processUserID)
		if err != nil {
			return fmt.Errorf("invalid user ID format: %w", err)
		}
		name := processName
		if name == "" {
			name = names.New().Generate()
		}
		project, err := a.database.CreateProject(ctx, userID, name, processFiles)
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		projectID = project.ID
		fmt.Fprintf(os.Stdout, "Created project %q (%s)\n", project.Name, project.ID)

		if err := a.pipeline.Process(ctx, projectID, opts); err != nil {
			return err
		}
	}

	project, err := a.database.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to reload project: %w", err)
	}
	if project == nil {
		return fmt.Errorf("project %s not found after processing", projectID)
	}

	fmt.Fprintf(os.Stdout, "Processed %d file(s): %d rows, %d data points\n",
		len(processFiles), len(project.RecordSet), project.DataPoints)

	if cfg.Verbose {
		printer := observability.NewPrinter(os.Stdout)
		_, headers := tabular.ParseRecords(project.CSVData)
		printer.PrintRecordSet(project.RecordSet, headers)
	}

	return nil
}
