package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nathan/docsheet/internal/db"
	"github.com/nathan/docsheet/internal/tabular"
)

// AddFiles ingests additional source files into an existing project. Only
// the new files are extracted and synthesized; the resulting rows are
// appended to the project's record set and a new state version is recorded.
// The stored CSV text is replaced with the newly synthesized CSV. The new
// file URLs are recorded on the project only once their extraction and
// synthesis have succeeded, so a failed addition leaves file_urls as it was.
func (p *Pipeline) AddFiles(ctx context.Context, projectID uuid.UUID, fileURLs []string, opts Options) error {
	if len(fileURLs) == 0 {
		return fmt.Errorf("no files to add")
	}

	project, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return fmt.Errorf("project not found: %s", projectID)
	}

	opAddFiles.Log("Starting incremental ingestion projectID=%s newFiles=%d", projectID, len(fileURLs))

	if project.Status != db.StatusProcessing {
		if err := p.store.UpdateProjectStatus(ctx, projectID, db.StatusProcessing); err != nil {
			return err
		}
	}

	contents, err := p.extractor.ExtractAll(ctx, fileURLs)
	if err != nil {
		return p.fail(ctx, projectID, opAddFiles, fmt.Errorf("extraction failed: %w", err))
	}

	csvText, err := p.synthesizer.Synthesize(ctx, contents, opts.ColumnHints, opts.ContextHint)
	if err != nil {
		return p.fail(ctx, projectID, opAddFiles, err)
	}

	newRecords, _ := tabular.ParseRecords(csvText)

	combined := make(tabular.RecordSet, 0, len(project.RecordSet)+len(newRecords))
	combined = append(combined, project.RecordSet...)
	combined = append(combined, newRecords...)

	// Columns that appear only in earlier batches still count; the stored
	// CSV holds the newest batch only, so the record set is the source of
	// truth for the column union.
	dataPoints := combined.ColumnCount()

	if err := p.store.AppendProjectFiles(ctx, projectID, fileURLs); err != nil {
		return p.fail(ctx, projectID, opAddFiles, err)
	}

	if err := p.commit(ctx, projectID, combined, csvText, dataPoints); err != nil {
		return p.fail(ctx, projectID, opAddFiles, err)
	}

	opAddFiles.Log("Incremental ingestion completed projectID=%s totalRows=%d columns=%d",
		projectID, len(combined), dataPoints)

	p.requestSync(projectID)
	return nil
}
