package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nathan/docsheet/internal/tabular"
)

// CreateProjectState records an immutable snapshot at the given version.
// Versions are unique per project; a retry that replays an already-recorded
// version is a no-op rather than an error.
func (db *DB) CreateProjectState(ctx context.Context, projectID uuid.UUID, version int, records tabular.RecordSet, csvData string) error {
	jsonBytes, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal record set: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO project_states (project_id, version, record_set, csv_data)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (project_id, version) DO NOTHING`,
		projectID, version, jsonBytes, csvData,
	)
	if err != nil {
		return fmt.Errorf("failed to create project state v%d: %w", version, err)
	}
	return nil
}

// LatestStateVersion returns the highest recorded version for a project,
// or 0 when no snapshot exists yet
func (db *DB) LatestStateVersion(ctx context.Context, projectID uuid.UUID) (int, error) {
	var version int
	err := db.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM project_states WHERE project_id = $1`,
		projectID,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest state version: %w", err)
	}
	return version, nil
}

// GetLatestState retrieves the most recent snapshot for a project
func (db *DB) GetLatestState(ctx context.Context, projectID uuid.UUID) (*ProjectState, error) {
	var s ProjectState
	var recordSet []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, project_id, version, record_set, csv_data, created_at
		 FROM project_states WHERE project_id = $1
		 ORDER BY version DESC LIMIT 1`,
		projectID,
	).Scan(&s.ID, &s.ProjectID, &s.Version, &recordSet, &s.CSVData, &s.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest state: %w", err)
	}
	if len(recordSet) > 0 {
		if err := json.Unmarshal(recordSet, &s.RecordSet); err != nil {
			return nil, fmt.Errorf("failed to decode record set: %w", err)
		}
	}
	return &s, nil
}

// ListStateVersions retrieves snapshot metadata for a project, newest first
func (db *DB) ListStateVersions(ctx context.Context, projectID uuid.UUID) ([]ProjectState, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, project_id, version, created_at
		 FROM project_states WHERE project_id = $1 ORDER BY version DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list state versions: %w", err)
	}
	defer rows.Close()

	var states []ProjectState
	for rows.Next() {
		var s ProjectState
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Version, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		states = append(states, s)
	}
	return states, nil
}
