package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RecordError persists an operational error for later inspection. ProjectID
// may be uuid.Nil when the error is not tied to a project.
func (db *DB) RecordError(ctx context.Context, projectID uuid.UUID, operation, message string) error {
	var pid *uuid.UUID
	if projectID != uuid.Nil {
		pid = &projectID
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO error_log (project_id, operation, message) VALUES ($1, $2, $3)`,
		pid, operation, message,
	)
	if err != nil {
		return fmt.Errorf("failed to record error: %w", err)
	}
	return nil
}
