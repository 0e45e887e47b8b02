package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nathan/docsheet/internal/tabular"
)

// CreateProject creates a new project in PROCESSING status and returns it
func (db *DB) CreateProject(ctx context.Context, userID uuid.UUID, name string, fileURLs []string) (*Project, error) {
	var p Project
	err := db.pool.QueryRow(ctx,
		`INSERT INTO projects (user_id, name, file_urls, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, name, file_urls, status, data_points, created_at, updated_at`,
		userID, name, fileURLs, StatusProcessing,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.FileURLs, &p.Status, &p.DataPoints, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &p, nil
}

// GetProject retrieves a project by ID
func (db *DB) GetProject(ctx context.Context, projectID uuid.UUID) (*Project, error) {
	return db.getProject(ctx,
		`SELECT id, user_id, name, file_urls, status, record_set, csv_data, data_points, created_at, updated_at
		 FROM projects WHERE id = $1`,
		projectID,
	)
}

// GetProjectForUser retrieves a project by ID scoped to its owner
func (db *DB) GetProjectForUser(ctx context.Context, projectID, userID uuid.UUID) (*Project, error) {
	return db.getProject(ctx,
		`SELECT id, user_id, name, file_urls, status, record_set, csv_data, data_points, created_at, updated_at
		 FROM projects WHERE id = $1 AND user_id = $2`,
		projectID, userID,
	)
}

func (db *DB) getProject(ctx context.Context, query string, args ...any) (*Project, error) {
	var p Project
	var recordSet []byte
	var csvData *string
	err := db.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.UserID, &p.Name, &p.FileURLs, &p.Status,
		&recordSet, &csvData, &p.DataPoints, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if csvData != nil {
		p.CSVData = *csvData
	}
	if len(recordSet) > 0 {
		if err := json.Unmarshal(recordSet, &p.RecordSet); err != nil {
			return nil, fmt.Errorf("failed to decode record set: %w", err)
		}
	}
	return &p, nil
}

// ListProjects retrieves a user's projects, newest first
func (db *DB) ListProjects(ctx context.Context, userID uuid.UUID, limit int) ([]ProjectSummary, error) {
	if limit == 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, file_urls, status, updated_at
		 FROM projects WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []ProjectSummary
	for rows.Next() {
		var p ProjectSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.FileURLs, &p.Status, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// UpdateProjectData stores the synthesized dataset on a project and marks it
// COMPLETED. DataPoints is the number of columns in the record set.
func (db *DB) UpdateProjectData(ctx context.Context, projectID uuid.UUID, records tabular.RecordSet, csvData string, dataPoints int) error {
	jsonBytes, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal record set: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`UPDATE projects
		 SET record_set = $1, csv_data = $2, data_points = $3, status = $4, updated_at = NOW()
		 WHERE id = $5`,
		jsonBytes, csvData, dataPoints, StatusCompleted, projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project data: %w", err)
	}
	return nil
}

// UpdateProjectStatus sets a project's status
func (db *DB) UpdateProjectStatus(ctx context.Context, projectID uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE projects SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}
	return nil
}

// AppendProjectFiles records additional source files on a project. The
// pipeline calls it only once the new files have extracted successfully,
// so failed additions never land on file_urls
func (db *DB) AppendProjectFiles(ctx context.Context, projectID uuid.UUID, fileURLs []string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE projects
		 SET file_urls = file_urls || $1, updated_at = NOW()
		 WHERE id = $2`,
		fileURLs, projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to append project files: %w", err)
	}
	return nil
}

// DeleteProject deletes a project and its state history (via cascade)
func (db *DB) DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM projects WHERE id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("project not found: %s", projectID)
	}
	return nil
}
