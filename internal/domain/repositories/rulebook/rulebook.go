package rulebook

import (
	"context"

	"ludoforge/internal/domain/models/rulebook"
)

// RulebookRepository defines data access operations for rulebooks and
// their version history. Version rows are append-only.
type RulebookRepository interface {
	// Create creates a new rulebook and returns it with generated ID and timestamps
	Create(ctx context.Context, rb *rulebook.Rulebook) error

	// GetByID retrieves a rulebook by ID
	GetByID(ctx context.Context, id string) (*rulebook.Rulebook, error)

	// GetByProject retrieves the rulebook belonging to a project.
	// A project has at most one rulebook, created lazily on first save.
	GetByProject(ctx context.Context, projectID string) (*rulebook.Rulebook, error)

	// Update updates a rulebook's mutable fields (title, content, version,
	// counts, publish flag, last editor)
	Update(ctx context.Context, rb *rulebook.Rulebook) error

	// AppendVersion inserts an immutable version snapshot
	AppendVersion(ctx context.Context, v *rulebook.Version) error

	// ListVersions retrieves version metadata (no content), newest first
	ListVersions(ctx context.Context, rulebookID string) ([]rulebook.VersionMeta, error)

	// GetVersion retrieves one version snapshot including its content
	GetVersion(ctx context.Context, rulebookID string, versionNumber int) (*rulebook.Version, error)
}

// ProjectRepository defines the read surface this core needs from the
// platform's project records, plus creation for the seed command.
type ProjectRepository interface {
	// Create creates a new project and returns it with generated ID and timestamps
	Create(ctx context.Context, project *rulebook.Project) error

	// GetByID retrieves a project by ID
	GetByID(ctx context.Context, id, userID string) (*rulebook.Project, error)

	// List retrieves all projects for a user, ordered by updated_at DESC
	List(ctx context.Context, userID string) ([]rulebook.Project, error)
}
