package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathan/docsheet/internal/config"
	"github.com/nathan/docsheet/internal/db"
	"github.com/nathan/docsheet/internal/pipeline"
	"github.com/nathan/docsheet/internal/sheets"
)

// mockDatabase is an in-memory Database for handler tests.
type mockDatabase struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*db.Project
	sheets   map[uuid.UUID]*db.ConnectedSheet
	versions map[uuid.UUID][]db.ProjectState
}

func newMockDatabase() *mockDatabase {
	return &mockDatabase{
		projects: map[uuid.UUID]*db.Project{},
		sheets:   map[uuid.UUID]*db.ConnectedSheet{},
		versions: map[uuid.UUID][]db.ProjectState{},
	}
}

func (m *mockDatabase) CreateProject(ctx context.Context, userID uuid.UUID, name string, fileURLs []string) (*db.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &db.Project{ID: uuid.New(), UserID: userID, Name: name, FileURLs: fileURLs, Status: db.StatusProcessing}
	m.projects[p.ID] = p
	return p, nil
}

func (m *mockDatabase) GetProjectForUser(ctx context.Context, projectID, userID uuid.UUID) (*db.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	return p, nil
}

func (m *mockDatabase) ListProjects(ctx context.Context, userID uuid.UUID, limit int) ([]db.ProjectSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.ProjectSummary
	for _, p := range m.projects {
		if p.UserID == userID {
			out = append(out, db.ProjectSummary{ID: p.ID, Name: p.Name, FileURLs: p.FileURLs, Status: p.Status})
		}
	}
	return out, nil
}

func (m *mockDatabase) DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.UserID != userID {
		return &ErrProjectNotFound{ProjectID: projectID}
	}
	delete(m.projects, projectID)
	return nil
}

func (m *mockDatabase) ListStateVersions(ctx context.Context, projectID uuid.UUID) ([]db.ProjectState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[projectID], nil
}

func (m *mockDatabase) LatestStateVersion(ctx context.Context, projectID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest := 0
	for _, st := range m.versions[projectID] {
		if st.Version > latest {
			latest = st.Version
		}
	}
	return latest, nil
}

func (m *mockDatabase) GetLatestState(ctx context.Context, projectID uuid.UUID) (*db.ProjectState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := m.versions[projectID]
	if len(states) == 0 {
		return nil, nil
	}
	latest := states[len(states)-1]
	return &latest, nil
}

func (m *mockDatabase) CreateConnectedSheet(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID, spreadsheetID, spreadsheetURL, title string) (*db.ConnectedSheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &db.ConnectedSheet{ID: uuid.New(), UserID: userID, ProjectID: projectID, SpreadsheetID: spreadsheetID, SpreadsheetURL: spreadsheetURL, Title: title}
	if projectID != nil {
		m.sheets[*projectID] = s
	}
	return s, nil
}

func (m *mockDatabase) GetSheetForProject(ctx context.Context, projectID uuid.UUID) (*db.ConnectedSheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sheets[projectID], nil
}

func (m *mockDatabase) GetSheetBySpreadsheetID(ctx context.Context, userID uuid.UUID, spreadsheetID string) (*db.ConnectedSheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sheets {
		if s.UserID == userID && s.SpreadsheetID == spreadsheetID {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockDatabase) LinkSheetToProject(ctx context.Context, sheetID, projectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sheets {
		if s.ID == sheetID {
			s.ProjectID = &projectID
			m.sheets[projectID] = s
			return nil
		}
	}
	return nil
}

// mockRunner records pipeline invocations.
type mockRunner struct {
	mu          sync.Mutex
	processed   []uuid.UUID
	added       [][]string
	syncSummary *pipeline.SyncSummary
	syncErr     error
	analysis    string
	analysisErr error
	started     chan struct{}
}

func newMockRunner() *mockRunner {
	return &mockRunner{started: make(chan struct{}, 8)}
}

func (m *mockRunner) Process(ctx context.Context, projectID uuid.UUID, opts pipeline.Options) error {
	m.mu.Lock()
	m.processed = append(m.processed, projectID)
	m.mu.Unlock()
	m.started <- struct{}{}
	return nil
}

func (m *mockRunner) AddFiles(ctx context.Context, projectID uuid.UUID, fileURLs []string, opts pipeline.Options) error {
	m.mu.Lock()
	m.added = append(m.added, fileURLs)
	m.mu.Unlock()
	m.started <- struct{}{}
	return nil
}

func (m *mockRunner) Sync(ctx context.Context, projectID uuid.UUID) (*pipeline.SyncSummary, error) {
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return m.syncSummary, nil
}

func (m *mockRunner) Analyze(ctx context.Context, projectID uuid.UUID) (string, error) {
	if m.analysisErr != nil {
		return "", m.analysisErr
	}
	return m.analysis, nil
}

func (m *mockRunner) Close() {}

// mockSheetAPI fakes the spreadsheet backend.
type mockSheetAPI struct {
	access sheets.AccessResult
}

func (m *mockSheetAPI) CheckAccess(ctx context.Context, spreadsheetURL string) sheets.AccessResult {
	return m.access
}

func (m *mockSheetAPI) Create(ctx context.Context, title string) (string, string, error) {
	return "sheet-created", "https://docs.google.com/spreadsheets/d/sheet-created", nil
}

// mockObjects fakes object storage.
type mockObjects struct {
	mu   sync.Mutex
	keys []string
}

func (m *mockObjects) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return "https://files.example.com/" + key, nil
}

func (m *mockObjects) SignedDownloadURL(ctx context.Context, key string) (string, error) {
	return "https://files.example.com/" + key + "?signed=1", nil
}

type testEnv struct {
	server *Server
	db     *mockDatabase
	runner *mockRunner
	userID uuid.UUID
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	jwtSvc := NewJWTService(&config.JWTConfig{Secret: "test-secret", ExpirationHours: 1})
	userID := uuid.New()
	token, err := jwtSvc.GenerateToken(userID)
	require.NoError(t, err)

	database := newMockDatabase()
	runner := newMockRunner()
	s := newServer(serverDeps{
		db:       database,
		runner:   runner,
		sheetAPI: &mockSheetAPI{access: sheets.AccessResult{HasAccess: true, Title: "Budget"}},
		objects:  &mockObjects{},
		jwt:      jwtSvc,
		port:     "0",
	})

	return &testEnv{server: s, db: database, runner: runner, userID: userID, token: token}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+e.token)

	rec := httptest.NewRecorder()
	e.server.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	env.server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRandomProjectNameIsPublic(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/project-names/random", nil)
	rec := httptest.NewRecorder()
	env.server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["name"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/projects", nil)
	rec := httptest.NewRecorder()
	env.server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/projects", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	env.server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflights(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("OPTIONS", "/projects", nil)
	rec := httptest.NewRecorder()
	env.server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
