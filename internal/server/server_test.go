package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/solacehub/solace-sense/internal/dispatch"
	"github.com/solacehub/solace-sense/internal/engine"
	"github.com/solacehub/solace-sense/internal/journal"
	"github.com/solacehub/solace-sense/internal/rules"
	"github.com/solacehub/solace-sense/internal/window"
)

type stubCollaborator struct{}

func (stubCollaborator) Start(ctx context.Context) error          { return nil }
func (stubCollaborator) Stop() error                              { return nil }
func (stubCollaborator) Deliver(ctx context.Context, e dispatch.Event) error { return nil }
func (stubCollaborator) Name() string                             { return "stub" }
func (stubCollaborator) IsEnabled() bool                          { return true }

func testServer(t *testing.T, jnl *journal.Journal) *Server {
	t.Helper()
	reg := rules.NewRegistry()
	disp := dispatch.NewDispatcher([]dispatch.Collaborator{stubCollaborator{}}, 8, nil)
	eng, err := engine.New(reg, disp, rules.DefaultPersona, 8)
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	return New("127.0.0.1:0", eng, disp, jnl, "test")
}

func doRequest(t *testing.T, srv *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	srv := testServer(t, nil)
	w := doRequest(t, srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var hr HealthResponse
	json.NewDecoder(w.Body).Decode(&hr)
	if hr.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", hr.Status)
	}
	if _, ok := hr.Services["engine"]; !ok {
		t.Error("Expected engine service in health response")
	}
	if _, ok := hr.Services["journal"]; ok {
		t.Error("Journal service should be absent when journal is nil")
	}
}

func TestStateHandler(t *testing.T) {
	srv := testServer(t, nil)
	w := doRequest(t, srv, http.MethodGet, "/api/v1/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var sr StateResponse
	json.NewDecoder(w.Body).Decode(&sr)
	if sr.Engine.Persona != rules.DefaultPersona {
		t.Errorf("Expected persona %s, got %s", rules.DefaultPersona, sr.Engine.Persona)
	}
	if len(sr.Dispatch.Collaborators) != 1 || sr.Dispatch.Collaborators[0] != "stub" {
		t.Errorf("Unexpected collaborators: %v", sr.Dispatch.Collaborators)
	}
}

func TestPersonaGet(t *testing.T) {
	srv := testServer(t, nil)
	w := doRequest(t, srv, http.MethodGet, "/api/v1/persona", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var pr PersonaResponse
	json.NewDecoder(w.Body).Decode(&pr)
	if pr.Active != rules.DefaultPersona {
		t.Errorf("Expected active %s, got %s", rules.DefaultPersona, pr.Active)
	}
	if len(pr.Available) != 4 {
		t.Errorf("Expected 4 personas, got %v", pr.Available)
	}
}

func TestPersonaSwitch(t *testing.T) {
	srv := testServer(t, nil)
	w := doRequest(t, srv, http.MethodPost, "/api/v1/persona", []byte(`{"persona":"ember"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var pr PersonaResponse
	json.NewDecoder(w.Body).Decode(&pr)
	if pr.Active != "ember" {
		t.Errorf("Expected active ember, got %s", pr.Active)
	}
}

func TestPersonaSwitchUnknown(t *testing.T) {
	srv := testServer(t, nil)
	w := doRequest(t, srv, http.MethodPost, "/api/v1/persona", []byte(`{"persona":"nobody"}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestPersonaMethodNotAllowed(t *testing.T) {
	srv := testServer(t, nil)
	w := doRequest(t, srv, http.MethodDelete, "/api/v1/persona", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestRecentActionsWithoutJournal(t *testing.T) {
	srv := testServer(t, nil)
	w := doRequest(t, srv, http.MethodGet, "/api/v1/actions/recent", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestRecentActions(t *testing.T) {
	jnl, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open failed: %v", err)
	}
	defer jnl.Close()

	reg := rules.NewRegistry()
	auroraRules, _ := reg.RulesFor("aurora")
	ev := dispatch.NewEvent("aurora", auroraRules[0], 131, window.Snapshot{}, time.Now().UTC())
	res := dispatch.Result{
		Event: ev,
		Outcomes: []dispatch.Outcome{
			{Collaborator: "stub", Status: dispatch.StatusDelivered, Elapsed: time.Millisecond},
		},
	}
	if err := jnl.Record(context.Background(), res); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	srv := testServer(t, jnl)
	w := doRequest(t, srv, http.MethodGet, "/api/v1/actions/recent?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var ar ActionsResponse
	json.NewDecoder(w.Body).Decode(&ar)
	if ar.Count != 1 {
		t.Fatalf("Expected 1 action, got %d", ar.Count)
	}
	if ar.Actions[0].ID != ev.ID {
		t.Errorf("Expected action %s, got %s", ev.ID, ar.Actions[0].ID)
	}
	if len(ar.Actions[0].Outcomes) != 1 {
		t.Errorf("Expected 1 outcome, got %d", len(ar.Actions[0].Outcomes))
	}
}

func TestRecentActionsInvalidLimit(t *testing.T) {
	jnl, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open failed: %v", err)
	}
	defer jnl.Close()

	srv := testServer(t, jnl)
	w := doRequest(t, srv, http.MethodGet, "/api/v1/actions/recent?limit=banana", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, nil)
	w := doRequest(t, srv, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Error("Expected Prometheus exposition output")
	}
}

func TestShutdown(t *testing.T) {
	srv := testServer(t, nil)
	go srv.Start()
	time.Sleep(100 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
