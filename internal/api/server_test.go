package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/foxzi/outreach/internal/action"
	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/db"
	"github.com/foxzi/outreach/internal/metrics"
	"github.com/foxzi/outreach/internal/models"
	"github.com/foxzi/outreach/internal/pipeline"
	"github.com/foxzi/outreach/internal/repository"
)

type stubContacts struct{}

func (stubContacts) Query(userID string, f models.ContactFilter) ([]models.Contact, error) {
	return []models.Contact{{ID: "c1", Name: "Jane Doe"}}, nil
}
func (stubContacts) MoveStage(userID, contactID, stage string) error         { return nil }
func (stubContacts) UpdateField(userID, contactID, field, value string) error { return nil }
func (stubContacts) BulkUpdate(userID string, ids []string, field, value string) (int, error) {
	return len(ids), nil
}
func (stubContacts) Delete(userID string, ids []string) (int, error) { return len(ids), nil }

type testServer struct {
	server    *Server
	runs      *repository.RunRepository
	campaigns *repository.CampaignRepository
	cfg       *config.Config
}

func setupServer(t *testing.T, apiKeyHash string) *testServer {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runs := repository.NewRunRepository(database.DB)
	contacts := repository.NewContactRepository(database.DB)
	manager := pipeline.NewManager(runs, contacts, logger)

	audit, err := action.NewLogger(filepath.Join(t.TempDir(), "actions.db"))
	if err != nil {
		t.Fatalf("failed to open action log: %v", err)
	}
	t.Cleanup(func() { audit.Close() })

	m := metrics.New()
	handlers := action.NewHandlers(action.Services{Contacts: stubContacts{}}, logger)
	executor := action.NewExecutor(handlers, audit, m, logger)

	cfg := &config.Config{}
	cfg.Auth.APIKeyHash = apiKeyHash

	return &testServer{
		server:    NewServer(executor, manager, audit, m, cfg, logger),
		runs:      runs,
		campaigns: repository.NewCampaignRepository(database.DB),
		cfg:       cfg,
	}
}

func postAction(t *testing.T, ts *testServer, headers map[string]string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions", bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("unexpected status: %s", resp.Status)
	}
}

func TestAuthRequired(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash key: %v", err)
	}
	ts := setupServer(t, string(hash))

	body := `{"userId":"user-1","mode":"assistant","type":"query_contacts"}`

	w := postAction(t, ts, nil, body)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}

	w = postAction(t, ts, map[string]string{"Authorization": "Bearer wrong-key"}, body)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", w.Code)
	}

	w = postAction(t, ts, map[string]string{"Authorization": "Bearer secret-key"}, body)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with correct key, got %d", w.Code)
	}

	w = postAction(t, ts, map[string]string{"X-API-Key": "secret-key"}, body)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with X-API-Key, got %d", w.Code)
	}
}

func TestExecuteActionValidation(t *testing.T) {
	ts := setupServer(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"userId":`},
		{"missing userId", `{"mode":"manager","type":"query_contacts"}`},
		{"missing mode", `{"userId":"user-1","type":"query_contacts"}`},
		{"missing type", `{"userId":"user-1","mode":"manager"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if w := postAction(t, ts, nil, tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestExecuteAction(t *testing.T) {
	ts := setupServer(t, "")

	w := postAction(t, ts, nil, `{"userId":"user-1","mode":"assistant","type":"query_contacts","payload":{}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var res action.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if !res.Success {
		t.Errorf("expected success, got %+v", res)
	}
}

func TestExecuteActionFailureIsStillHTTP200(t *testing.T) {
	ts := setupServer(t, "")

	// Assistant mode may not delete: an action-level failure, not a
	// transport error.
	w := postAction(t, ts, nil, `{"userId":"user-1","mode":"assistant","type":"delete_contacts","payload":{"contactIds":["c1"]}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var res action.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if res.Success {
		t.Error("expected action-level failure")
	}
}

func TestActionLogEndpoint(t *testing.T) {
	ts := setupServer(t, "")

	postAction(t, ts, nil, `{"userId":"user-1","mode":"assistant","type":"query_contacts","payload":{}}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/actions/log?userId=user-1", nil)
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp LogResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("expected 1 entry, got %d", resp.Count)
	}

	// userId is required
	req = httptest.NewRequest(http.MethodGet, "/api/v1/actions/log", nil)
	w = httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without userId, got %d", w.Code)
	}
}

func TestRunStatusNotFound(t *testing.T) {
	ts := setupServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/no-such-campaign/run", nil)
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRunStatus(t *testing.T) {
	ts := setupServer(t, "")

	campaign := &models.Campaign{UserID: "user-1", Name: "Q3 outreach"}
	if err := ts.campaigns.Create(campaign); err != nil {
		t.Fatalf("failed to create campaign: %v", err)
	}

	run := &models.CampaignRun{
		UserID:     "user-1",
		CampaignID: campaign.ID,
		State:      models.RunStateEmailFinding,
		TotalCount: 5,
	}
	if err := ts.runs.Start(run); err != nil {
		t.Fatalf("failed to start run: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/"+campaign.ID+"/run", nil)
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var got models.CampaignRun
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode run: %v", err)
	}
	if got.ID != run.ID || got.State != models.RunStateEmailFinding {
		t.Errorf("unexpected run: %+v", got)
	}
}
