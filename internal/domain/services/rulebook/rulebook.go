package rulebook

import (
	"context"
	"encoding/json"

	"ludoforge/internal/domain/models/rulebook"
)

// WriteRequest carries one attributed save of a project's rulebook.
type WriteRequest struct {
	ProjectID     string          `json:"project_id"`
	EditorID      string          `json:"-"` // Set by handler from auth context, not from request body
	Content       json.RawMessage `json:"content"`
	ChangeSummary *string         `json:"change_summary,omitempty"`
}

// UpdateRulebookRequest represents a metadata update (title, publish flag).
// Content is saved through Write, never through here.
type UpdateRulebookRequest struct {
	Title       *string `json:"title,omitempty"`
	IsPublished *bool   `json:"is_published,omitempty"`
}

// RulebookService defines business logic operations for rulebooks and
// their version history. Write is the persistence contract the editing
// session depends on: create-on-first-save or update, plus an appended
// version snapshot, atomic from the caller's point of view.
type RulebookService interface {
	// Load retrieves the serialized document content for a project's
	// rulebook. Returns ErrNotFound when no rulebook exists yet.
	Load(ctx context.Context, projectID, userID string) (*rulebook.Rulebook, error)

	// Write persists content for a project's rulebook. First save creates
	// the rulebook at version 1; later saves with changed content bump the
	// version and append a snapshot. A save whose content matches what is
	// stored is a no-op and returns the current record unchanged.
	Write(ctx context.Context, req *WriteRequest) (*rulebook.Rulebook, error)

	// GetRulebook retrieves a rulebook by its own ID
	GetRulebook(ctx context.Context, id, userID string) (*rulebook.Rulebook, error)

	// UpdateRulebook updates title and/or publish flag
	UpdateRulebook(ctx context.Context, id, userID string, req *UpdateRulebookRequest) (*rulebook.Rulebook, error)

	// ListVersions retrieves version metadata, newest first
	ListVersions(ctx context.Context, rulebookID, userID string) ([]rulebook.VersionMeta, error)

	// GetVersion retrieves one version snapshot including content
	GetVersion(ctx context.Context, rulebookID, userID string, versionNumber int) (*rulebook.Version, error)

	// RestoreVersion writes an old snapshot's content as a new save.
	// History is append-only: restoring never rewrites existing versions.
	RestoreVersion(ctx context.Context, rulebookID, userID string, versionNumber int) (*rulebook.Rulebook, error)
}
