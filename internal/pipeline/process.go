package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nathan/docsheet/internal/db"
	"github.com/nathan/docsheet/internal/observability"
	"github.com/nathan/docsheet/internal/tabular"
)

// Process runs the full ingestion for a project: extract text from every
// source file, synthesize one CSV dataset, persist it with a new state
// version, and queue a spreadsheet sync. Any extraction or
// synthesis failure marks the project FAILED and leaves its dataset and
// version history untouched.
func (p *Pipeline) Process(ctx context.Context, projectID uuid.UUID, opts Options) error {
	project, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return fmt.Errorf("project not found: %s", projectID)
	}

	opProcess.Log("Starting ingestion projectID=%s fileCount=%d", projectID, len(project.FileURLs))

	if project.Status != db.StatusProcessing {
		if err := p.store.UpdateProjectStatus(ctx, projectID, db.StatusProcessing); err != nil {
			return err
		}
	}

	contents, err := p.extractor.ExtractAll(ctx, project.FileURLs)
	if err != nil {
		return p.fail(ctx, projectID, opProcess, fmt.Errorf("extraction failed: %w", err))
	}

	csvText, err := p.synthesizer.Synthesize(ctx, contents, opts.ColumnHints, opts.ContextHint)
	if err != nil {
		return p.fail(ctx, projectID, opProcess, err)
	}

	records, headers := tabular.ParseRecords(csvText)

	if err := p.commit(ctx, projectID, records, csvText, len(headers)); err != nil {
		return p.fail(ctx, projectID, opProcess, err)
	}

	opProcess.Log("Ingestion completed projectID=%s rows=%d columns=%d", projectID, len(records), len(headers))

	p.requestSync(projectID)
	return nil
}

// commit records the next immutable state version and then stores the
// dataset on the project. The snapshot is durable before the project flips
// to COMPLETED, so a completed project always has a matching
// highest-version snapshot.
func (p *Pipeline) commit(ctx context.Context, projectID uuid.UUID, records tabular.RecordSet, csvText string, dataPoints int) error {
	version, err := p.store.LatestStateVersion(ctx, projectID)
	if err != nil {
		return err
	}
	if err := p.store.CreateProjectState(ctx, projectID, version+1, records, csvText); err != nil {
		return err
	}

	if err := p.store.UpdateProjectData(ctx, projectID, records, csvText, dataPoints); err != nil {
		return err
	}
	return nil
}

// fail marks the project FAILED and records the error. The project's last
// committed dataset and version history are left as they were.
func (p *Pipeline) fail(ctx context.Context, projectID uuid.UUID, op observability.Op, cause error) error {
	op.Log("Ingestion failed projectID=%s error=%v", projectID, cause)

	if err := p.store.UpdateProjectStatus(ctx, projectID, db.StatusFailed); err != nil {
		op.Log("Failed to mark project failed projectID=%s error=%v", projectID, err)
	}
	if err := p.store.RecordError(ctx, projectID, string(op), cause.Error()); err != nil {
		op.Log("Failed to record error projectID=%s error=%v", projectID, err)
	}
	return cause
}
