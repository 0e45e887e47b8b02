package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nathan/docsheet/internal/db"
	"github.com/nathan/docsheet/internal/export"
	"github.com/nathan/docsheet/internal/pipeline"
	"github.com/nathan/docsheet/internal/server/middleware"
	"github.com/nathan/docsheet/internal/tabular"
)

// ingestTimeout bounds one background ingestion run.
const ingestTimeout = 10 * time.Minute

// CreateProjectRequest represents the request body for POST /projects
type CreateProjectRequest struct {
	Name           string   `json:"name"`
	FileURLs       []string `json:"file_urls" validate:"required,min=1,dive,url"`
	ColumnNames    []string `json:"column_names,omitempty"`
	Context        string   `json:"context,omitempty"`
	SpreadsheetURL string   `json:"spreadsheet_url,omitempty" validate:"omitempty,url"`
	CreateSheet    bool     `json:"create_sheet,omitempty"`
}

// AddFilesRequest represents the request body for POST /projects/{id}/files
type AddFilesRequest struct {
	FileURLs    []string `json:"file_urls" validate:"required,min=1,dive,url"`
	ColumnNames []string `json:"column_names,omitempty"`
	Context     string   `json:"context,omitempty"`
}

// ProjectResponse is the project payload returned by the API
type ProjectResponse struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	FileURLs   []string          `json:"file_urls"`
	Status     string            `json:"status"`
	Records    tabular.RecordSet `json:"records,omitempty"`
	CSVData    string            `json:"csv_data,omitempty"`
	DataPoints int               `json:"data_points"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func projectResponse(p *db.Project) ProjectResponse {
	return ProjectResponse{
		ID:         p.ID,
		Name:       p.Name,
		FileURLs:   p.FileURLs,
		Status:     p.Status,
		Records:    p.RecordSet,
		CSVData:    p.CSVData,
		DataPoints: p.DataPoints,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// handleCreateProject creates a project and starts its ingestion in the
// background. The response carries the project in PROCESSING status.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if req.Name == "" {
		req.Name = s.nameGen.Generate()
	}

	project, err := s.db.CreateProject(r.Context(), userID, req.Name, req.FileURLs)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	// Sheet attachment is best effort: the project keeps processing without
	// a spreadsheet when it fails.
	if s.sheetAPI != nil && (req.SpreadsheetURL != "" || req.CreateSheet) {
		if err := s.attachSheet(r.Context(), project, req.SpreadsheetURL); err != nil {
			log.Printf("[create-project] Sheet attach failed projectID=%s error=%v", project.ID, err)
		}
	}

	opts := pipeline.Options{ColumnHints: req.ColumnNames, ContextHint: req.Context}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()
		if err := s.runner.Process(ctx, project.ID, opts); err != nil {
			log.Printf("[create-project] Ingestion failed projectID=%s error=%v", project.ID, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, projectResponse(project))
}

// handleListProjects lists the caller's projects, newest first
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	projects, err := s.db.ListProjects(r.Context(), userID, 0)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

// handleGetProject retrieves one of the caller's projects with its
// connected sheet and current version
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	sheet, err := s.db.GetSheetForProject(r.Context(), project.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	version, err := s.db.LatestStateVersion(r.Context(), project.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	resp := struct {
		ProjectResponse
		Version int                `json:"version"`
		Sheet   *db.ConnectedSheet `json:"sheet,omitempty"`
	}{projectResponse(project), version, sheet}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleDeleteProject removes a project and its history
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	userID, projectID, ok := s.authedProjectID(w, r)
	if !ok {
		return
	}

	if err := s.db.DeleteProject(r.Context(), projectID, userID); err != nil {
		s.errorResponse(w, http.StatusNotFound, "Project not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleListVersions lists a project's state snapshot history
func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	project, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	versions, err := s.db.ListStateVersions(r.Context(), project.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"versions": versions,
		"count":    len(versions),
	})
}

// handleLatestVersion returns the most recent state snapshot with its data
func (s *Server) handleLatestVersion(w http.ResponseWriter, r *http.Request) {
	project, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	state, err := s.db.GetLatestState(r.Context(), project.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if state == nil {
		s.errorResponse(w, http.StatusNotFound, "Project has no saved versions yet")
		return
	}

	s.jsonResponse(w, http.StatusOK, state)
}

// handleAddFiles ingests additional files into an existing project
func (s *Server) handleAddFiles(w http.ResponseWriter, r *http.Request) {
	project, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	var req AddFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	opts := pipeline.Options{ColumnHints: req.ColumnNames, ContextHint: req.Context}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()
		if err := s.runner.AddFiles(ctx, project.ID, req.FileURLs, opts); err != nil {
			log.Printf("[add-files] Ingestion failed projectID=%s error=%v", project.ID, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"project_id": project.ID,
		"status":     db.StatusProcessing,
		"file_count": len(req.FileURLs),
	})
}

// handleSyncProject pushes the project dataset to its connected spreadsheet
func (s *Server) handleSyncProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	summary, err := s.runner.Sync(r.Context(), project.ID)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoConnectedSheet) {
			s.errorResponse(w, http.StatusBadRequest, "No spreadsheet connected to this project")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Sync failed: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, summary)
}

// handleAnalyzeProject returns structured insights for the project dataset
func (s *Server) handleAnalyzeProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	content, err := s.runner.Analyze(r.Context(), project.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Analysis failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(content)); err != nil {
		log.Printf("Error writing analysis response: %v", err)
	}
}

// handleDownload streams the project dataset in the requested format
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	project, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	format := export.Format(r.PathValue("format"))
	_, headers := tabular.ParseRecords(project.CSVData)

	result, err := export.Encode(format, project.RecordSet, headers)
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			s.errorResponse(w, http.StatusBadRequest, "Unsupported format: "+string(format))
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Export failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", project.Name+"."+result.Extension))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		log.Printf("Error writing download response: %v", err)
	}
}

// authedProjectID extracts the caller and the {id} path value
func (s *Server) authedProjectID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}

	projectID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid project ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, projectID, true
}

// projectFromRequest loads the caller's project named by the {id} path value
func (s *Server) projectFromRequest(w http.ResponseWriter, r *http.Request) (*db.Project, bool) {
	userID, projectID, ok := s.authedProjectID(w, r)
	if !ok {
		return nil, false
	}

	project, err := s.db.GetProjectForUser(r.Context(), projectID, userID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return nil, false
	}
	if project == nil {
		s.errorResponse(w, http.StatusNotFound, "Project not found")
		return nil, false
	}
	return project, true
}
