package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nathan/docsheet/internal/db"
	"github.com/nathan/docsheet/internal/server/middleware"
	"github.com/nathan/docsheet/internal/sheets"
)

// SheetAccessRequest represents the request body for POST /sheets/access-check
type SheetAccessRequest struct {
	SpreadsheetURL string `json:"spreadsheet_url" validate:"required,url"`
}

// handleSheetAccessCheck verifies the service account can reach a
// user-provided spreadsheet before it is connected to a project
func (s *Server) handleSheetAccessCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.GetUserID(r); err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.sheetAPI == nil {
		s.errorResponse(w, HTTPStatus(&ErrSheetsUnavailable{}), (&ErrSheetsUnavailable{}).Error())
		return
	}

	var req SheetAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if sheets.ExtractSpreadsheetID(req.SpreadsheetURL) == "" {
		s.errorResponse(w, http.StatusBadRequest, "Could not extract a spreadsheet ID from the URL")
		return
	}

	result := s.sheetAPI.CheckAccess(r.Context(), req.SpreadsheetURL)
	s.jsonResponse(w, http.StatusOK, result)
}

// ConnectSheetRequest represents the optional request body for
// POST /projects/{id}/sheet. An empty body means "create a new spreadsheet".
type ConnectSheetRequest struct {
	SpreadsheetURL string `json:"spreadsheet_url"`
}

// handleCreateProjectSheet connects a spreadsheet to a project. With a
// spreadsheet_url in the body it links the user's existing spreadsheet;
// otherwise it creates a fresh one.
func (s *Server) handleCreateProjectSheet(w http.ResponseWriter, r *http.Request) {
	project, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}
	if s.sheetAPI == nil {
		s.errorResponse(w, HTTPStatus(&ErrSheetsUnavailable{}), (&ErrSheetsUnavailable{}).Error())
		return
	}

	var req ConnectSheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.SpreadsheetURL != "" {
		s.connectExistingSheet(w, r, project, req.SpreadsheetURL)
		return
	}

	existing, err := s.db.GetSheetForProject(r.Context(), project.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if existing != nil {
		s.jsonResponse(w, http.StatusOK, existing)
		return
	}

	spreadsheetID, spreadsheetURL, err := s.sheetAPI.Create(r.Context(), project.Name)
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, "Failed to create spreadsheet: "+err.Error())
		return
	}

	sheet, err := s.db.CreateConnectedSheet(r.Context(), project.UserID, &project.ID, spreadsheetID, spreadsheetURL, project.Name)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusCreated, sheet)
}

// connectExistingSheet links a spreadsheet the user already owns to the
// project, reusing an existing connection record when one exists.
func (s *Server) connectExistingSheet(w http.ResponseWriter, r *http.Request, project *db.Project, spreadsheetURL string) {
	spreadsheetID := sheets.ExtractSpreadsheetID(spreadsheetURL)
	if spreadsheetID == "" {
		s.errorResponse(w, http.StatusBadRequest, "Could not extract a spreadsheet ID from the URL")
		return
	}

	access := s.sheetAPI.CheckAccess(r.Context(), spreadsheetURL)
	if !access.HasAccess {
		s.errorResponse(w, http.StatusBadRequest, "Cannot access spreadsheet: "+access.Error)
		return
	}

	existing, err := s.db.GetSheetBySpreadsheetID(r.Context(), project.UserID, spreadsheetID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if existing != nil {
		if err := s.db.LinkSheetToProject(r.Context(), existing.ID, project.ID); err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
			return
		}
		existing.ProjectID = &project.ID
		s.jsonResponse(w, http.StatusOK, existing)
		return
	}

	sheet, err := s.db.CreateConnectedSheet(r.Context(), project.UserID, &project.ID, spreadsheetID, spreadsheetURL, access.Title)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusCreated, sheet)
}

// attachSheet connects a spreadsheet to a freshly created project. With a
// URL it links the user's existing spreadsheet; without one it creates a new
// spreadsheet named after the project.
func (s *Server) attachSheet(ctx context.Context, project *db.Project, spreadsheetURL string) error {
	if spreadsheetURL == "" {
		spreadsheetID, createdURL, err := s.sheetAPI.Create(ctx, project.Name)
		if err != nil {
			return fmt.Errorf("failed to create spreadsheet: %w", err)
		}
		_, err = s.db.CreateConnectedSheet(ctx, project.UserID, &project.ID, spreadsheetID, createdURL, project.Name)
		return err
	}

	spreadsheetID := sheets.ExtractSpreadsheetID(spreadsheetURL)
	if spreadsheetID == "" {
		return fmt.Errorf("could not extract a spreadsheet ID from %q", spreadsheetURL)
	}

	access := s.sheetAPI.CheckAccess(ctx, spreadsheetURL)
	if !access.HasAccess {
		return fmt.Errorf("cannot access spreadsheet %s: %s", spreadsheetID, access.Error)
	}

	existing, err := s.db.GetSheetBySpreadsheetID(ctx, project.UserID, spreadsheetID)
	if err != nil {
		return err
	}
	if existing != nil {
		return s.db.LinkSheetToProject(ctx, existing.ID, project.ID)
	}

	_, err = s.db.CreateConnectedSheet(ctx, project.UserID, &project.ID, spreadsheetID, spreadsheetURL, access.Title)
	return err
}
