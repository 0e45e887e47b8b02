// Package pipeline provides the high-level orchestration for document
// ingestion, dataset synthesis, spreadsheet synchronization, and analysis.
package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nathan/docsheet/internal/db"
	"github.com/nathan/docsheet/internal/extraction"
	"github.com/nathan/docsheet/internal/llm"
	"github.com/nathan/docsheet/internal/observability"
	"github.com/nathan/docsheet/internal/tabular"
)

// Operation names used for log prefixes and error_log records.
const (
	opProcess  = observability.Op("process-project")
	opAddFiles = observability.Op("add-files")
	opSync     = observability.Op("sheet-sync")
	opAnalyze  = observability.Op("analyze-data")
)

// Store is the persistence surface the pipeline needs. *db.DB satisfies it.
type Store interface {
	GetProject(ctx context.Context, projectID uuid.UUID) (*db.Project, error)
	UpdateProjectData(ctx context.Context, projectID uuid.UUID, records tabular.RecordSet, csvData string, dataPoints int) error
	UpdateProjectStatus(ctx context.Context, projectID uuid.UUID, status string) error
	AppendProjectFiles(ctx context.Context, projectID uuid.UUID, fileURLs []string) error
	CreateProjectState(ctx context.Context, projectID uuid.UUID, version int, records tabular.RecordSet, csvData string) error
	LatestStateVersion(ctx context.Context, projectID uuid.UUID) (int, error)
	GetSheetForProject(ctx context.Context, projectID uuid.UUID) (*db.ConnectedSheet, error)
	UpdateSheetLastSync(ctx context.Context, sheetID uuid.UUID) error
	GetAnalysis(ctx context.Context, projectID uuid.UUID) (*db.Analysis, error)
	UpsertAnalysis(ctx context.Context, projectID uuid.UUID, content, fingerprint string) error
	RecordError(ctx context.Context, projectID uuid.UUID, operation, message string) error
}

// Extractor turns source file locators into extracted text.
// *extraction.Service satisfies it.
type Extractor interface {
	ExtractAll(ctx context.Context, locators []string) ([]extraction.ExtractedContent, error)
}

// Synthesizer turns extracted content into CSV text.
// *synthesis.Synthesizer satisfies it.
type Synthesizer interface {
	Synthesize(ctx context.Context, contents []extraction.ExtractedContent, columnHints []string, contextHint string) (string, error)
}

// SheetService is the external spreadsheet surface the pipeline needs.
// *sheets.Client satisfies it.
type SheetService interface {
	Revision(ctx context.Context, spreadsheetID string) (string, error)
	ReadAll(ctx context.Context, spreadsheetID string) (tabular.Table, error)
	ClearAndWrite(ctx context.Context, spreadsheetID string, data tabular.Table) error
}

// Pipeline wires the extraction, synthesis, storage, and spreadsheet layers
// together.
type Pipeline struct {
	store       Store
	extractor   Extractor
	synthesizer Synthesizer
	sheets      SheetService
	model       llm.Client

	syncRequests chan uuid.UUID
	done         chan struct{}
	closeOnce    sync.Once
}

// Options holds per-run ingestion hints carried through to synthesis.
type Options struct {
	ColumnHints []string
	ContextHint string
}

// New creates a Pipeline. The sheets service may be nil when no spreadsheet
// backend is configured; sync then becomes a no-op.
func New(store Store, extractor Extractor, synthesizer Synthesizer, sheetSvc SheetService, model llm.Client) *Pipeline {
	p := &Pipeline{
		store:        store,
		extractor:    extractor,
		synthesizer:  synthesizer,
		sheets:       sheetSvc,
		model:        model,
		syncRequests: make(chan uuid.UUID, 16),
		done:         make(chan struct{}),
	}
	go p.syncWorker()
	return p
}

// Close stops the background sync worker. Queued sync requests that have
// not started are dropped. Close is safe to call more than once.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}
