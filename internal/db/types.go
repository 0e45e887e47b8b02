package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/nathan/docsheet/internal/tabular"
)

// Project status values. A project starts PROCESSING, moves to COMPLETED
// once synthesis and parsing succeed and a state snapshot is recorded, or
// to FAILED on any extraction or synthesis error. PROCESSING is re-entered
// when additional files are ingested into a COMPLETED project.
const (
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Project represents an ingestion project record
type Project struct {
	ID         uuid.UUID         `json:"id"`
	UserID     uuid.UUID         `json:"user_id"`
	Name       string            `json:"name"`
	FileURLs   []string          `json:"file_urls"`
	Status     string            `json:"status"`
	RecordSet  tabular.RecordSet `json:"record_set,omitempty"`
	CSVData    string            `json:"csv_data,omitempty"`
	DataPoints int               `json:"data_points"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ProjectSummary is a lightweight view of a project for listing
type ProjectSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	FileURLs  []string  `json:"file_urls"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectState is an immutable versioned snapshot of a project's dataset.
// Versions are 1-based, strictly increasing and never reused.
type ProjectState struct {
	ID        uuid.UUID         `json:"id"`
	ProjectID uuid.UUID         `json:"project_id"`
	Version   int               `json:"version"`
	RecordSet tabular.RecordSet `json:"record_set"`
	CSVData   string            `json:"csv_data"`
	CreatedAt time.Time         `json:"created_at"`
}

// ConnectedSheet references externally-held tabular storage linked to a
// project. The underlying spreadsheet is owned by the external service.
type ConnectedSheet struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	ProjectID      *uuid.UUID `json:"project_id,omitempty"`
	SpreadsheetID  string     `json:"spreadsheet_id"`
	SpreadsheetURL string     `json:"spreadsheet_url"`
	Title          string     `json:"title"`
	LastSync       *time.Time `json:"last_sync,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Analysis is a cached insight artifact derived from a project's record
// set. Fingerprint is the content hash of the record set the analysis was
// generated from; a mismatch means the artifact is stale.
type Analysis struct {
	ProjectID   uuid.UUID `json:"project_id"`
	Content     string    `json:"content"`
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updated_at"`
}
