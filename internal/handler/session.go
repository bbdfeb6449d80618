package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"ludoforge/internal/domain"
	rbSvc "ludoforge/internal/domain/services/rulebook"
	"ludoforge/internal/editor"
	"ludoforge/internal/httputil"
	svcRulebook "ludoforge/internal/service/rulebook"
)

// SessionHandler exposes server-side editing sessions. Sessions are
// keyed by project: a project has at most one rulebook, and the
// registry enforces one live session per project in this process.
type SessionHandler struct {
	projectService  rbSvc.ProjectService
	rulebookService rbSvc.RulebookService
	registry        *editor.SessionRegistry
	logger          *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	projectService rbSvc.ProjectService,
	rulebookService rbSvc.RulebookService,
	registry *editor.SessionRegistry,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		projectService:  projectService,
		rulebookService: rulebookService,
		registry:        registry,
		logger:          logger,
	}
}

// OpenSessionRequest is the body for opening an editing session
type OpenSessionRequest struct {
	ReadOnly bool `json:"read_only"`
}

// SessionResponse describes a live session to the client
type SessionResponse struct {
	SessionID  string            `json:"session_id"`
	ProjectID  string            `json:"project_id"`
	ReadOnly   bool              `json:"read_only"`
	SaveStatus editor.SaveStatus `json:"save_status"`
	Document   interface{}       `json:"document,omitempty"`
	Handled    *bool             `json:"handled,omitempty"`
}

// DispatchRequest is the body for dispatching an editor command
type DispatchRequest struct {
	Command string             `json:"command"`
	Args    editor.CommandArgs `json:"args"`
}

// KeyRequest is the body for resolving a keyboard chord
type KeyRequest struct {
	Chord string `json:"chord"`
}

// OpenSession opens an editing session over a project's rulebook.
// A fresh project (no rulebook yet) gets a seeded skeleton document.
// POST /api/projects/{id}/session
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if projectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Project ID is required")
		return
	}

	userID := httputil.GetUserID(r)

	var req OpenSessionRequest
	if r.ContentLength > 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	// Ownership check before anything touches the registry
	project, err := h.projectService.GetProject(r.Context(), projectID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	// Load persisted content. Not-found here means no rulebook yet, so
	// the session starts from a seeded skeleton and the first save
	// creates version 1.
	var content []byte
	rb, err := h.rulebookService.Load(r.Context(), projectID, userID)
	switch {
	case err == nil:
		content = rb.Content
	case errors.Is(err, domain.ErrNotFound):
		content = nil
	default:
		handleError(w, err)
		return
	}

	persist := svcRulebook.NewSessionPersistence(h.rulebookService, projectID, userID)
	session, err := editor.NewSession(content, project.Name, req.ReadOnly, persist,
		editor.WithLogger(h.logger))
	if err != nil {
		handleError(w, err)
		return
	}

	if !h.registry.Register(projectID, session) {
		session.Close(r.Context())
		httputil.RespondError(w, http.StatusConflict, "an editing session is already active for this project")
		return
	}

	h.logger.Info("session opened",
		"session_id", session.ID(),
		"project_id", projectID,
		"read_only", req.ReadOnly)

	h.respondSession(w, http.StatusCreated, projectID, session, true, nil)
}

// GetSession reports the session's save status and current document
// GET /api/projects/{id}/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, projectID, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.respondSession(w, http.StatusOK, projectID, session, true, nil)
}

// DispatchCommand applies one editor command to the session's document
// POST /api/projects/{id}/session/commands
func (h *SessionHandler) DispatchCommand(w http.ResponseWriter, r *http.Request) {
	session, projectID, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req DispatchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Command == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Command is required")
		return
	}

	if err := session.Dispatch(r.Context(), req.Command, req.Args); err != nil {
		handleError(w, err)
		return
	}

	h.respondSession(w, http.StatusOK, projectID, session, true, nil)
}

// HandleKey resolves a keyboard chord against the keymap and dispatches
// the bound command. Unbound chords are reported as unhandled so the
// client can treat them as plain input.
// POST /api/projects/{id}/session/keys
func (h *SessionHandler) HandleKey(w http.ResponseWriter, r *http.Request) {
	session, projectID, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req KeyRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	handled, err := session.HandleKey(r.Context(), req.Chord)
	if err != nil {
		handleError(w, err)
		return
	}

	h.respondSession(w, http.StatusOK, projectID, session, true, &handled)
}

// SaveSession forces a manual save. A manual save also clears the
// suspension left behind by a permanent persistence failure.
// POST /api/projects/{id}/session/save
func (h *SessionHandler) SaveSession(w http.ResponseWriter, r *http.Request) {
	session, projectID, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := session.Save(r.Context()); err != nil {
		handleError(w, err)
		return
	}

	h.respondSession(w, http.StatusOK, projectID, session, false, nil)
}

// CloseSession flushes unsaved changes and releases the session
// DELETE /api/projects/{id}/session
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	session, projectID, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := session.Close(r.Context()); err != nil {
		h.registry.Remove(projectID)
		handleError(w, err)
		return
	}
	h.registry.Remove(projectID)

	h.logger.Info("session closed", "session_id", session.ID(), "project_id", projectID)
	w.WriteHeader(http.StatusNoContent)
}

// lookup resolves the live session for a project, enforcing ownership
// first so session existence is not leaked across users.
func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*editor.Session, string, bool) {
	projectID := r.PathValue("id")
	if projectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Project ID is required")
		return nil, "", false
	}

	userID := httputil.GetUserID(r)
	if _, err := h.projectService.GetProject(r.Context(), projectID, userID); err != nil {
		handleError(w, err)
		return nil, "", false
	}

	session := h.registry.Get(projectID)
	if session == nil {
		httputil.RespondError(w, http.StatusNotFound, "no active session for this project")
		return nil, "", false
	}
	return session, projectID, true
}

func (h *SessionHandler) respondSession(w http.ResponseWriter, status int, projectID string, session *editor.Session, includeDocument bool, handled *bool) {
	resp := SessionResponse{
		SessionID:  session.ID(),
		ProjectID:  projectID,
		ReadOnly:   session.ReadOnly(),
		SaveStatus: session.SaveStatus(),
		Handled:    handled,
	}

	if includeDocument {
		doc, err := session.DocumentJSON()
		if err != nil {
			handleError(w, err)
			return
		}
		resp.Document = doc
	}

	httputil.RespondJSON(w, status, resp)
}
