package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ludoforge/internal/domain"
	models "ludoforge/internal/domain/models/rulebook"
	rbSvc "ludoforge/internal/domain/services/rulebook"
	"ludoforge/internal/editor"
	"ludoforge/internal/httputil"
)

type fakeProjectService struct {
	projects map[string]*models.Project // keyed by id
}

func (f *fakeProjectService) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProjectService) CreateProject(ctx context.Context, req *rbSvc.CreateProjectRequest) (*models.Project, error) {
	p := &models.Project{ID: "p-new", UserID: req.UserID, Name: req.Name}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeProjectService) GetProject(ctx context.Context, id, userID string) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok || p.UserID != userID {
		return nil, &domain.NotFoundError{Message: "project not found"}
	}
	return p, nil
}

type fakeRulebookService struct {
	stored map[string]*models.Rulebook // keyed by project id
	writes int
}

func (f *fakeRulebookService) Load(ctx context.Context, projectID, userID string) (*models.Rulebook, error) {
	rb, ok := f.stored[projectID]
	if !ok {
		return nil, &domain.NotFoundError{Message: "rulebook not found"}
	}
	return rb, nil
}

func (f *fakeRulebookService) Write(ctx context.Context, req *rbSvc.WriteRequest) (*models.Rulebook, error) {
	f.writes++
	rb, ok := f.stored[req.ProjectID]
	if !ok {
		rb = &models.Rulebook{ID: "rb-" + req.ProjectID, ProjectID: req.ProjectID, Version: 0}
		f.stored[req.ProjectID] = rb
	}
	rb.Content = req.Content
	rb.Version++
	return rb, nil
}

func (f *fakeRulebookService) GetRulebook(ctx context.Context, id, userID string) (*models.Rulebook, error) {
	for _, rb := range f.stored {
		if rb.ID == id {
			return rb, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "rulebook not found"}
}

func (f *fakeRulebookService) UpdateRulebook(ctx context.Context, id, userID string, req *rbSvc.UpdateRulebookRequest) (*models.Rulebook, error) {
	return nil, &domain.NotFoundError{Message: "rulebook not found"}
}

func (f *fakeRulebookService) ListVersions(ctx context.Context, rulebookID, userID string) ([]models.VersionMeta, error) {
	return nil, nil
}

func (f *fakeRulebookService) GetVersion(ctx context.Context, rulebookID, userID string, versionNumber int) (*models.Version, error) {
	return nil, &domain.NotFoundError{Message: "version not found"}
}

func (f *fakeRulebookService) RestoreVersion(ctx context.Context, rulebookID, userID string, versionNumber int) (*models.Rulebook, error) {
	return nil, &domain.NotFoundError{Message: "version not found"}
}

func newSessionTestServer(t *testing.T) (*httptest.Server, *fakeRulebookService) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	projects := &fakeProjectService{projects: map[string]*models.Project{
		"p1": {ID: "p1", UserID: "u1", Name: "Catan Clone"},
	}}
	rulebooks := &fakeRulebookService{stored: map[string]*models.Rulebook{}}
	registry := editor.NewSessionRegistry(time.Minute, time.Hour, logger)
	h := NewSessionHandler(projects, rulebooks, registry, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/projects/{id}/session", h.OpenSession)
	mux.HandleFunc("GET /api/projects/{id}/session", h.GetSession)
	mux.HandleFunc("DELETE /api/projects/{id}/session", h.CloseSession)
	mux.HandleFunc("POST /api/projects/{id}/session/commands", h.DispatchCommand)
	mux.HandleFunc("POST /api/projects/{id}/session/keys", h.HandleKey)
	mux.HandleFunc("POST /api/projects/{id}/session/save", h.SaveSession)

	// Stand-in for the auth middleware
	authed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, httputil.WithUserID(r, "u1"))
	})

	srv := httptest.NewServer(authed)
	t.Cleanup(srv.Close)
	return srv, rulebooks
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, SessionResponse) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var sr SessionResponse
	if resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, sr
}

func TestOpenSession_SeedsFreshProject(t *testing.T) {
	srv, _ := newSessionTestServer(t)

	resp, sr := doJSON(t, "POST", srv.URL+"/api/projects/p1/session", `{}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if sr.SessionID == "" {
		t.Error("expected a session ID")
	}
	if sr.SaveStatus.State != editor.SaveIdle {
		t.Errorf("expected idle save state, got %s", sr.SaveStatus.State)
	}

	// Fresh project gets the seeded skeleton titled after the project
	doc, err := json.Marshal(sr.Document)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	if !bytes.Contains(doc, []byte("Catan Clone")) {
		t.Errorf("seeded document should carry the project title, got %s", doc)
	}
}

func TestOpenSession_SecondOpenConflicts(t *testing.T) {
	srv, _ := newSessionTestServer(t)

	resp, _ := doJSON(t, "POST", srv.URL+"/api/projects/p1/session", `{}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "POST", srv.URL+"/api/projects/p1/session", `{}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 on second open, got %d", resp.StatusCode)
	}
}

func TestOpenSession_UnknownProject(t *testing.T) {
	srv, _ := newSessionTestServer(t)

	resp, _ := doJSON(t, "POST", srv.URL+"/api/projects/nope/session", `{}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDispatchCommand_MutatesDocument(t *testing.T) {
	srv, _ := newSessionTestServer(t)

	if resp, _ := doJSON(t, "POST", srv.URL+"/api/projects/p1/session", `{}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("open failed: %d", resp.StatusCode)
	}

	resp, sr := doJSON(t, "POST", srv.URL+"/api/projects/p1/session/commands",
		`{"command": "insertText", "args": {"text": "Roll two dice."}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if sr.SaveStatus.State != editor.SaveDirty {
		t.Errorf("expected dirty after mutation, got %s", sr.SaveStatus.State)
	}
	doc, _ := json.Marshal(sr.Document)
	if !bytes.Contains(doc, []byte("Roll two dice.")) {
		t.Errorf("inserted text missing from document: %s", doc)
	}
}

func TestDispatchCommand_UnknownCommand(t *testing.T) {
	srv, _ := newSessionTestServer(t)

	doJSON(t, "POST", srv.URL+"/api/projects/p1/session", `{}`)

	resp, _ := doJSON(t, "POST", srv.URL+"/api/projects/p1/session/commands",
		`{"command": "frobnicate"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown command, got %d", resp.StatusCode)
	}
}

func TestHandleKey_BoundAndUnbound(t *testing.T) {
	srv, _ := newSessionTestServer(t)

	doJSON(t, "POST", srv.URL+"/api/projects/p1/session", `{}`)

	resp, sr := doJSON(t, "POST", srv.URL+"/api/projects/p1/session/keys", `{"chord": "Ctrl+B"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if sr.Handled == nil || !*sr.Handled {
		t.Error("Ctrl+B should be handled")
	}

	resp, sr = doJSON(t, "POST", srv.URL+"/api/projects/p1/session/keys", `{"chord": "Ctrl+Q"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if sr.Handled == nil || *sr.Handled {
		t.Error("Ctrl+Q should pass through unhandled")
	}
}

func TestSaveSession_WritesThroughService(t *testing.T) {
	srv, rulebooks := newSessionTestServer(t)

	doJSON(t, "POST", srv.URL+"/api/projects/p1/session", `{}`)
	doJSON(t, "POST", srv.URL+"/api/projects/p1/session/commands",
		`{"command": "insertText", "args": {"text": "New rule."}}`)

	resp, sr := doJSON(t, "POST", srv.URL+"/api/projects/p1/session/save", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if rulebooks.writes != 1 {
		t.Errorf("expected 1 write, got %d", rulebooks.writes)
	}
	if sr.SaveStatus.State != editor.SaveSaved {
		t.Errorf("expected saved state, got %s", sr.SaveStatus.State)
	}
}

func TestCloseSession_ReleasesSlot(t *testing.T) {
	srv, _ := newSessionTestServer(t)

	doJSON(t, "POST", srv.URL+"/api/projects/p1/session", `{}`)

	resp, _ := doJSON(t, "DELETE", srv.URL+"/api/projects/p1/session", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	// Slot is free again
	resp, _ = doJSON(t, "POST", srv.URL+"/api/projects/p1/session", `{}`)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201 after close, got %d", resp.StatusCode)
	}
}
