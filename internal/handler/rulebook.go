package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	rbSvc "ludoforge/internal/domain/services/rulebook"
	"ludoforge/internal/editor/export"
	"ludoforge/internal/httputil"
)

// RulebookHandler handles rulebook content, metadata, and version history
type RulebookHandler struct {
	rulebookService rbSvc.RulebookService
	logger          *slog.Logger
}

// NewRulebookHandler creates a new rulebook handler
func NewRulebookHandler(rulebookService rbSvc.RulebookService, logger *slog.Logger) *RulebookHandler {
	return &RulebookHandler{
		rulebookService: rulebookService,
		logger:          logger,
	}
}

// GetProjectRulebook retrieves the rulebook belonging to a project
// GET /api/projects/{id}/rulebook
func (h *RulebookHandler) GetProjectRulebook(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if projectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Project ID is required")
		return
	}

	userID := httputil.GetUserID(r)

	rb, err := h.rulebookService.Load(r.Context(), projectID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rb)
}

// SaveProjectRulebook saves rulebook content for a project.
// First save creates the rulebook, later saves update it and append a
// version snapshot.
// PUT /api/projects/{id}/rulebook
func (h *RulebookHandler) SaveProjectRulebook(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if projectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Project ID is required")
		return
	}

	userID := httputil.GetUserID(r)

	var req rbSvc.WriteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ProjectID = projectID
	req.EditorID = userID

	rb, err := h.rulebookService.Write(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rb)
}

// GetRulebook retrieves a rulebook by its own ID
// GET /api/rulebooks/{id}
func (h *RulebookHandler) GetRulebook(w http.ResponseWriter, r *http.Request) {
	rulebookID := r.PathValue("id")
	if rulebookID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Rulebook ID is required")
		return
	}

	userID := httputil.GetUserID(r)

	rb, err := h.rulebookService.GetRulebook(r.Context(), rulebookID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rb)
}

// UpdateRulebook updates rulebook metadata (title, publish flag)
// PATCH /api/rulebooks/{id}
func (h *RulebookHandler) UpdateRulebook(w http.ResponseWriter, r *http.Request) {
	rulebookID := r.PathValue("id")
	if rulebookID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Rulebook ID is required")
		return
	}

	userID := httputil.GetUserID(r)

	var req rbSvc.UpdateRulebookRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rb, err := h.rulebookService.UpdateRulebook(r.Context(), rulebookID, userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rb)
}

// ListVersions retrieves version history metadata, newest first
// GET /api/rulebooks/{id}/versions
func (h *RulebookHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	rulebookID := r.PathValue("id")
	if rulebookID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Rulebook ID is required")
		return
	}

	userID := httputil.GetUserID(r)

	versions, err := h.rulebookService.ListVersions(r.Context(), rulebookID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, versions)
}

// GetVersion retrieves one version snapshot including its content
// GET /api/rulebooks/{id}/versions/{n}
func (h *RulebookHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	rulebookID := r.PathValue("id")
	versionNumber, err := parseVersionNumber(r)
	if rulebookID == "" || err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Rulebook ID and version number are required")
		return
	}

	userID := httputil.GetUserID(r)

	version, err := h.rulebookService.GetVersion(r.Context(), rulebookID, userID, versionNumber)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, version)
}

// RestoreVersion writes an old snapshot's content as a new save
// POST /api/rulebooks/{id}/versions/{n}/restore
func (h *RulebookHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	rulebookID := r.PathValue("id")
	versionNumber, err := parseVersionNumber(r)
	if rulebookID == "" || err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Rulebook ID and version number are required")
		return
	}

	userID := httputil.GetUserID(r)

	rb, err := h.rulebookService.RestoreVersion(r.Context(), rulebookID, userID, versionNumber)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rb)
}

// ExportMarkdown renders the rulebook's current content as Markdown
// GET /api/rulebooks/{id}/export
func (h *RulebookHandler) ExportMarkdown(w http.ResponseWriter, r *http.Request) {
	rulebookID := r.PathValue("id")
	if rulebookID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Rulebook ID is required")
		return
	}

	userID := httputil.GetUserID(r)

	rb, err := h.rulebookService.GetRulebook(r.Context(), rulebookID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	markdown, err := export.Markdown(rb.Content)
	if err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(markdown))
}

func parseVersionNumber(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("n"))
}
