package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nathan/docsheet/internal/tabular"
)

// ErrNoConnectedSheet is returned when a project has no spreadsheet to
// synchronize with.
var ErrNoConnectedSheet = errors.New("no connected spreadsheet")

const (
	// syncTimeout bounds one queued spreadsheet synchronization.
	syncTimeout = 2 * time.Minute

	// syncAttempts is how many times a queued sync runs before the failure
	// is recorded against the project.
	syncAttempts = 3

	// syncRetryDelay spaces out queued sync retries.
	syncRetryDelay = 2 * time.Second

	// writeAttempts bounds the read-merge-write cycle when the spreadsheet
	// is being edited concurrently.
	writeAttempts = 3
)

// SyncSummary describes the outcome of one spreadsheet synchronization.
type SyncSummary struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	ExistingRows  int    `json:"existing_rows"`
	NewRows       int    `json:"new_rows"`
	MergedRows    int    `json:"merged_rows"`
	ColumnCount   int    `json:"column_count"`
}

// Sync merges the project's current dataset into its connected spreadsheet
// and rewrites the sheet with the merged result. Rows already in the sheet
// are kept as-is; the project's rows are appended under the combined column
// set. The sheet's drive revision is checked before the rewrite so a
// concurrent edit restarts the read-merge-write cycle instead of being
// clobbered. Sync never modifies the project itself.
func (p *Pipeline) Sync(ctx context.Context, projectID uuid.UUID) (*SyncSummary, error) {
	if p.sheets == nil {
		return nil, ErrNoConnectedSheet
	}

	sheet, err := p.store.GetSheetForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, ErrNoConnectedSheet
	}

	project, err := p.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project not found: %s", projectID)
	}

	incoming := tabular.ParseTable(project.CSVData)

	var existing, merged tabular.Table
	for attempt := 1; ; attempt++ {
		rev, err := p.sheets.Revision(ctx, sheet.SpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("failed to read spreadsheet revision: %w", err)
		}

		existing, err = p.sheets.ReadAll(ctx, sheet.SpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
		}

		merged = tabular.Merge(existing, incoming)

		current, err := p.sheets.Revision(ctx, sheet.SpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("failed to read spreadsheet revision: %w", err)
		}
		if current != rev {
			if attempt >= writeAttempts {
				return nil, fmt.Errorf("spreadsheet changed during sync, gave up after %d attempts", attempt)
			}
			opSync.Log("Spreadsheet changed during merge, retrying projectID=%s attempt=%d", projectID, attempt)
			continue
		}

		opSync.Log("Merging data existingRows=%d newRows=%d mergedRows=%d columns=%d",
			len(existing.DataRows()), len(incoming.DataRows()), len(merged.DataRows()), len(merged.Headers()))

		if err := p.sheets.ClearAndWrite(ctx, sheet.SpreadsheetID, merged); err != nil {
			return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
		}
		break
	}

	if err := p.store.UpdateSheetLastSync(ctx, sheet.ID); err != nil {
		opSync.Log("Failed to update last sync sheetID=%s error=%v", sheet.ID, err)
	}

	return &SyncSummary{
		SpreadsheetID: sheet.SpreadsheetID,
		ExistingRows:  len(existing.DataRows()),
		NewRows:       len(incoming.DataRows()),
		MergedRows:    len(merged.DataRows()),
		ColumnCount:   len(merged.Headers()),
	}, nil
}

// requestSync queues a spreadsheet synchronization for the project without
// blocking or affecting the ingestion outcome. A full queue drops the
// request; the project's next ingestion queues another one.
func (p *Pipeline) requestSync(projectID uuid.UUID) {
	select {
	case p.syncRequests <- projectID:
	case <-p.done:
	default:
		opSync.Log("Sync queue full, dropping request projectID=%s", projectID)
	}
}

// syncWorker drains queued sync requests one at a time, retrying transient
// failures before recording the error against the project. It exits when
// the pipeline is closed.
func (p *Pipeline) syncWorker() {
	for {
		select {
		case <-p.done:
			return
		case projectID := <-p.syncRequests:
			p.runQueuedSync(projectID)
		}
	}
}

func (p *Pipeline) runQueuedSync(projectID uuid.UUID) {
	var lastErr error
	for attempt := 1; attempt <= syncAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		_, err := p.Sync(ctx, projectID)
		cancel()
		if err == nil || errors.Is(err, ErrNoConnectedSheet) {
			return
		}
		lastErr = err
		opSync.Log("Queued sync failed projectID=%s attempt=%d/%d error=%v", projectID, attempt, syncAttempts, err)
		if attempt < syncAttempts {
			time.Sleep(syncRetryDelay)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()
	if err := p.store.RecordError(ctx, projectID, string(opSync), lastErr.Error()); err != nil {
		opSync.Log("Failed to record error projectID=%s error=%v", projectID, err)
	}
}
