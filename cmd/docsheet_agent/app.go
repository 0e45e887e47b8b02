package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nathan/docsheet/internal/config"
	"github.com/nathan/docsheet/internal/db"
	"github.com/nathan/docsheet/internal/extraction"
	"github.com/nathan/docsheet/internal/llm"
	"github.com/nathan/docsheet/internal/ocr"
	"github.com/nathan/docsheet/internal/pipeline"
	"github.com/nathan/docsheet/internal/sheets"
	"github.com/nathan/docsheet/internal/speech"
	"github.com/nathan/docsheet/internal/synthesis"
)

// app bundles the wired pipeline dependencies for one-shot commands.
type app struct {
	cfg       config.Config
	database  *db.DB
	model     llm.Client
	extractor *extraction.Service
	pipeline  *pipeline.Pipeline
}

// loadCLIConfig loads the optional config file and fills the gaps from the
// environment. File values win over environment values.
func loadCLIConfig(configPath string, verbose bool) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
		if verbose {
			fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", configPath)
		}
	}

	cfg = cfg.MergeWithDefaults(*config.FromEnv())
	cfg.Verbose = cfg.Verbose || verbose
	return cfg, nil
}

// newApp wires a database connection and the full processing pipeline from
// the given config. The caller must call close when done.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or config value is required")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	model, err := llm.NewClient(ctx, nil, cfg.GeminiAPIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	extractor := extraction.NewService(
		speech.NewClient(cfg.SpeechAPIKey),
		ocr.NewClient(cfg.OCRAPIKey),
	)
	synthesizer := synthesis.New(model)

	// Sheet sync stays optional; the pipeline skips it when unconfigured.
	var sheetSvc pipeline.SheetService
	if cfg.GoogleCredentialsFile != "" {
		credentials, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			model.Close()
			database.Close()
			return nil, fmt.Errorf("failed to read google credentials: %w", err)
		}
		sheetClient, err := sheets.NewClient(ctx, credentials, cfg.ServiceAccountEmail)
		if err != nil {
			model.Close()
			database.Close()
			return nil, fmt.Errorf("failed to create sheets client: %w", err)
		}
		sheetSvc = sheetClient
	}

	return &app{
		cfg:       cfg,
		database:  database,
		model:     model,
		extractor: extractor,
		pipeline:  pipeline.New(database, extractor, synthesizer, sheetSvc, model),
	}, nil
}

func (a *app) close() {
	if a.pipeline != nil {
		a.pipeline.Close()
	}
	if a.model != nil {
		_ = a.model.Close()
	}
	if a.database != nil {
		a.database.Close()
	}
}
