package rulebook

import (
	"context"

	"ludoforge/internal/domain/models/rulebook"
)

// CreateProjectRequest represents a request to create a project
type CreateProjectRequest struct {
	Name   string `json:"name"`
	UserID string `json:"-"` // Set by handler from auth context, not from request body
}

// ProjectService defines the thin project surface this core exposes.
// Projects mostly live elsewhere in the platform; the editor needs them
// only as owners of rulebooks.
type ProjectService interface {
	// ListProjects retrieves all projects for a user, ordered by updated_at DESC
	ListProjects(ctx context.Context, userID string) ([]rulebook.Project, error)

	// CreateProject creates a new project
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*rulebook.Project, error)

	// GetProject retrieves a project by ID, scoped to the user
	GetProject(ctx context.Context, id, userID string) (*rulebook.Project, error)
}
