package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateConnectedSheet records a spreadsheet connection for a user
func (db *DB) CreateConnectedSheet(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID, spreadsheetID, spreadsheetURL, title string) (*ConnectedSheet, error) {
	var s ConnectedSheet
	err := db.pool.QueryRow(ctx,
		`INSERT INTO connected_sheets (user_id, project_id, spreadsheet_id, spreadsheet_url, title)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, project_id, spreadsheet_id, spreadsheet_url, title, last_sync, created_at`,
		userID, projectID, spreadsheetID, spreadsheetURL, title,
	).Scan(&s.ID, &s.UserID, &s.ProjectID, &s.SpreadsheetID, &s.SpreadsheetURL, &s.Title, &s.LastSync, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create connected sheet: %w", err)
	}
	return &s, nil
}

// GetSheetForProject retrieves the spreadsheet connected to a project
func (db *DB) GetSheetForProject(ctx context.Context, projectID uuid.UUID) (*ConnectedSheet, error) {
	return db.getSheet(ctx,
		`SELECT id, user_id, project_id, spreadsheet_id, spreadsheet_url, title, last_sync, created_at
		 FROM connected_sheets WHERE project_id = $1`,
		projectID,
	)
}

// GetSheetBySpreadsheetID retrieves a connection by its external spreadsheet ID
func (db *DB) GetSheetBySpreadsheetID(ctx context.Context, userID uuid.UUID, spreadsheetID string) (*ConnectedSheet, error) {
	return db.getSheet(ctx,
		`SELECT id, user_id, project_id, spreadsheet_id, spreadsheet_url, title, last_sync, created_at
		 FROM connected_sheets WHERE user_id = $1 AND spreadsheet_id = $2`,
		userID, spreadsheetID,
	)
}

func (db *DB) getSheet(ctx context.Context, query string, args ...any) (*ConnectedSheet, error) {
	var s ConnectedSheet
	err := db.pool.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.UserID, &s.ProjectID, &s.SpreadsheetID, &s.SpreadsheetURL, &s.Title, &s.LastSync, &s.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connected sheet: %w", err)
	}
	return &s, nil
}

// LinkSheetToProject associates an existing connection with a project
func (db *DB) LinkSheetToProject(ctx context.Context, sheetID, projectID uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE connected_sheets SET project_id = $1 WHERE id = $2`,
		projectID, sheetID,
	)
	if err != nil {
		return fmt.Errorf("failed to link sheet to project: %w", err)
	}
	return nil
}

// UpdateSheetLastSync stamps a connection with the time of its latest
// successful synchronization
func (db *DB) UpdateSheetLastSync(ctx context.Context, sheetID uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE connected_sheets SET last_sync = NOW() WHERE id = $1`,
		sheetID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last sync: %w", err)
	}
	return nil
}
