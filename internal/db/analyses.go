package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetAnalysis retrieves the cached analysis for a project
func (db *DB) GetAnalysis(ctx context.Context, projectID uuid.UUID) (*Analysis, error) {
	var a Analysis
	err := db.pool.QueryRow(ctx,
		`SELECT project_id, content, fingerprint, updated_at
		 FROM analyses WHERE project_id = $1`,
		projectID,
	).Scan(&a.ProjectID, &a.Content, &a.Fingerprint, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &a, nil
}

// UpsertAnalysis stores an analysis for a project, replacing any prior one
func (db *DB) UpsertAnalysis(ctx context.Context, projectID uuid.UUID, content, fingerprint string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO analyses (project_id, content, fingerprint)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (project_id) DO UPDATE SET content = $2, fingerprint = $3, updated_at = NOW()`,
		projectID, content, fingerprint,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}
