package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathan/docsheet/internal/db"
	"github.com/nathan/docsheet/internal/pipeline"
	"github.com/nathan/docsheet/internal/tabular"
)

func waitStarted(t *testing.T, runner *mockRunner) {
	t.Helper()
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a background pipeline run to start")
	}
}

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "POST", "/projects", CreateProjectRequest{
		Name:     "Vendor Invoices",
		FileURLs: []string{"https://files.example.com/a.pdf"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Vendor Invoices", resp.Name)
	assert.Equal(t, db.StatusProcessing, resp.Status)

	waitStarted(t, env.runner)
	env.runner.mu.Lock()
	defer env.runner.mu.Unlock()
	require.Len(t, env.runner.processed, 1)
	assert.Equal(t, resp.ID, env.runner.processed[0])
}

func TestCreateProjectDefaultsName(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "POST", "/projects", CreateProjectRequest{
		FileURLs: []string{"https://files.example.com/a.pdf"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Name)
	waitStarted(t, env.runner)
}

func TestCreateProjectWithNewSheet(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "POST", "/projects", CreateProjectRequest{
		Name:        "Sheeted",
		FileURLs:    []string{"https://files.example.com/a.pdf"},
		CreateSheet: true,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	sheet, err := env.db.GetSheetForProject(t.Context(), resp.ID)
	require.NoError(t, err)
	require.NotNil(t, sheet)
	assert.Equal(t, "sheet-created", sheet.SpreadsheetID)
	waitStarted(t, env.runner)
}

func TestCreateProjectRequiresFiles(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "POST", "/projects", CreateProjectRequest{Name: "Empty"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProjectRejectsBadURL(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "POST", "/projects", CreateProjectRequest{
		FileURLs: []string{"not a url"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProject(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Receipts", []string{"https://files.example.com/r.png"})
	require.NoError(t, err)

	rec := env.request(t, "GET", "/projects/"+project.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Receipts", resp.Name)
}

func TestGetProjectScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	other, err := env.db.CreateProject(t.Context(), uuid.New(), "Not Yours", nil)
	require.NoError(t, err)

	rec := env.request(t, "GET", "/projects/"+other.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProjectInvalidID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "GET", "/projects/nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProjects(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.db.CreateProject(t.Context(), env.userID, "One", nil)
	require.NoError(t, err)
	_, err = env.db.CreateProject(t.Context(), uuid.New(), "Other user's", nil)
	require.NoError(t, err)

	rec := env.request(t, "GET", "/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestDeleteProject(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Doomed", nil)
	require.NoError(t, err)

	rec := env.request(t, "DELETE", "/projects/"+project.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, "GET", "/projects/"+project.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddFiles(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Growing", []string{"https://files.example.com/a.pdf"})
	require.NoError(t, err)

	rec := env.request(t, "POST", "/projects/"+project.ID.String()+"/files", AddFilesRequest{
		FileURLs: []string{"https://files.example.com/b.mp3"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	waitStarted(t, env.runner)
	env.runner.mu.Lock()
	defer env.runner.mu.Unlock()
	require.Len(t, env.runner.added, 1)
	assert.Equal(t, []string{"https://files.example.com/b.mp3"}, env.runner.added[0])
}

func TestSyncProject(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Synced", nil)
	require.NoError(t, err)
	env.runner.syncSummary = &pipeline.SyncSummary{ExistingRows: 2, NewRows: 1, MergedRows: 3, ColumnCount: 4}

	rec := env.request(t, "POST", "/projects/"+project.ID.String()+"/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary pipeline.SyncSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.MergedRows)
}

func TestSyncProjectWithoutSheet(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Lonely", nil)
	require.NoError(t, err)
	env.runner.syncErr = pipeline.ErrNoConnectedSheet

	rec := env.request(t, "POST", "/projects/"+project.ID.String()+"/sync", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeProject(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Analyzed", nil)
	require.NoError(t, err)
	env.runner.analysis = `{"overview":"fine","insights":[],"quality":"good","recommendations":[]}`

	rec := env.request(t, "POST", "/projects/"+project.ID.String()+"/analysis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, env.runner.analysis, rec.Body.String())
}

func TestDownloadCSV(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Contacts", nil)
	require.NoError(t, err)
	project.CSVData = "Name,Email\nAlice,alice@example.com"
	project.RecordSet = tabular.RecordSet{{"Name": "Alice", "Email": "alice@example.com"}}

	rec := env.request(t, "GET", "/projects/"+project.ID.String()+"/download/csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Contacts.csv")
	assert.Contains(t, rec.Body.String(), "Alice")
}

func TestDownloadUnsupportedFormat(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Contacts", nil)
	require.NoError(t, err)

	rec := env.request(t, "GET", "/projects/"+project.ID.String()+"/download/pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatestVersion(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Versioned", nil)
	require.NoError(t, err)
	env.db.versions[project.ID] = []db.ProjectState{
		{ID: uuid.New(), ProjectID: project.ID, Version: 1, CSVData: "Name\nAlice"},
		{ID: uuid.New(), ProjectID: project.ID, Version: 2, CSVData: "Name\nAlice\nBob"},
	}

	rec := env.request(t, "GET", "/projects/"+project.ID.String()+"/versions/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state db.ProjectState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 2, state.Version)
}

func TestLatestVersionWithoutSnapshots(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Fresh", nil)
	require.NoError(t, err)

	rec := env.request(t, "GET", "/projects/"+project.ID.String()+"/versions/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSheetAccessCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "POST", "/sheets/access-check", SheetAccessRequest{
		SpreadsheetURL: "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		HasAccess bool   `json:"hasAccess"`
		Title     string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.HasAccess)
	assert.Equal(t, "Budget", result.Title)
}

func TestSheetAccessCheckRejectsUnparseableURL(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, "POST", "/sheets/access-check", SheetAccessRequest{
		SpreadsheetURL: "https://example.com/not-a-sheet",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProjectSheet(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Budget", nil)
	require.NoError(t, err)

	rec := env.request(t, "POST", "/projects/"+project.ID.String()+"/sheet", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var sheet db.ConnectedSheet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sheet))
	assert.Equal(t, "sheet-created", sheet.SpreadsheetID)

	// A second call returns the existing connection.
	rec = env.request(t, "POST", "/projects/"+project.ID.String()+"/sheet", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConnectExistingSheet(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Linked", nil)
	require.NoError(t, err)

	rec := env.request(t, "POST", "/projects/"+project.ID.String()+"/sheet", ConnectSheetRequest{
		SpreadsheetURL: "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var sheet db.ConnectedSheet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sheet))
	assert.Equal(t, "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", sheet.SpreadsheetID)
	assert.Equal(t, "Budget", sheet.Title)

	// Connecting the same spreadsheet to another project reuses the record.
	second, err := env.db.CreateProject(t.Context(), env.userID, "Linked Too", nil)
	require.NoError(t, err)

	rec = env.request(t, "POST", "/projects/"+second.ID.String()+"/sheet", ConnectSheetRequest{
		SpreadsheetURL: "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var linked db.ConnectedSheet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &linked))
	assert.Equal(t, sheet.ID, linked.ID)
	require.NotNil(t, linked.ProjectID)
	assert.Equal(t, second.ID, *linked.ProjectID)
}

func TestConnectExistingSheetRejectsBadURL(t *testing.T) {
	env := newTestEnv(t)
	project, err := env.db.CreateProject(t.Context(), env.userID, "Linked", nil)
	require.NoError(t, err)

	rec := env.request(t, "POST", "/projects/"+project.ID.String()+"/sheet", ConnectSheetRequest{
		SpreadsheetURL: "https://example.com/not-a-sheet",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
