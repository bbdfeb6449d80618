package rulebook

import (
	"context"
	"fmt"

	"ludoforge/internal/domain"
	models "ludoforge/internal/domain/models/rulebook"
	rbRepo "ludoforge/internal/domain/repositories/rulebook"

	"ludoforge/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRulebookRepository implements the RulebookRepository interface
type PostgresRulebookRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewRulebookRepository creates a new rulebook repository
func NewRulebookRepository(config *postgres.RepositoryConfig) rbRepo.RulebookRepository {
	return &PostgresRulebookRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new rulebook
func (r *PostgresRulebookRepository) Create(ctx context.Context, rb *models.Rulebook) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, title, content, version, is_published, word_count, page_count, last_edited_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, r.tables.Rulebooks)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		rb.ProjectID,
		rb.Title,
		rb.Content,
		rb.Version,
		rb.IsPublished,
		rb.WordCount,
		rb.PageCount,
		rb.LastEditedBy,
	).Scan(&rb.ID, &rb.CreatedAt, &rb.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			existingID, queryErr := r.getExistingRulebookID(ctx, rb.ProjectID)
			if queryErr != nil {
				return fmt.Errorf("rulebook for project %s already exists: %w", rb.ProjectID, domain.ErrConflict)
			}
			return &domain.ConflictError{
				Message:      fmt.Sprintf("rulebook for project %s already exists", rb.ProjectID),
				ResourceType: "rulebook",
				ResourceID:   existingID,
			}
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("project %s: %w", rb.ProjectID, domain.ErrNotFound)
		}
		return fmt.Errorf("create rulebook: %w", err)
	}

	return nil
}

// getExistingRulebookID finds the rulebook already claiming a project.
func (r *PostgresRulebookRepository) getExistingRulebookID(ctx context.Context, projectID string) (string, error) {
	query := fmt.Sprintf(`
		SELECT id FROM %s WHERE project_id = $1
	`, r.tables.Rulebooks)

	var id string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, projectID).Scan(&id); err != nil {
		return "", fmt.Errorf("find existing rulebook: %w", err)
	}
	return id, nil
}

// GetByID retrieves a rulebook by ID
func (r *PostgresRulebookRepository) GetByID(ctx context.Context, id string) (*models.Rulebook, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, title, content, version, is_published, word_count, page_count, last_edited_by, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Rulebooks)

	executor := postgres.GetExecutor(ctx, r.pool)
	return scanRulebook(executor.QueryRow(ctx, query, id), id)
}

// GetByProject retrieves the rulebook belonging to a project
func (r *PostgresRulebookRepository) GetByProject(ctx context.Context, projectID string) (*models.Rulebook, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, title, content, version, is_published, word_count, page_count, last_edited_by, created_at, updated_at
		FROM %s
		WHERE project_id = $1
	`, r.tables.Rulebooks)

	executor := postgres.GetExecutor(ctx, r.pool)
	return scanRulebook(executor.QueryRow(ctx, query, projectID), projectID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRulebook(row rowScanner, ref string) (*models.Rulebook, error) {
	var rb models.Rulebook
	err := row.Scan(
		&rb.ID,
		&rb.ProjectID,
		&rb.Title,
		&rb.Content,
		&rb.Version,
		&rb.IsPublished,
		&rb.WordCount,
		&rb.PageCount,
		&rb.LastEditedBy,
		&rb.CreatedAt,
		&rb.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("rulebook %s: %w", ref, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get rulebook: %w", err)
	}
	return &rb, nil
}

// Update updates a rulebook's mutable fields
func (r *PostgresRulebookRepository) Update(ctx context.Context, rb *models.Rulebook) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, content = $2, version = $3, is_published = $4, word_count = $5, page_count = $6, last_edited_by = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`, r.tables.Rulebooks)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		rb.Title,
		rb.Content,
		rb.Version,
		rb.IsPublished,
		rb.WordCount,
		rb.PageCount,
		rb.LastEditedBy,
		rb.ID,
	).Scan(&rb.UpdatedAt)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return fmt.Errorf("rulebook %s: %w", rb.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update rulebook: %w", err)
	}

	return nil
}

// AppendVersion inserts an immutable version snapshot
func (r *PostgresRulebookRepository) AppendVersion(ctx context.Context, v *models.Version) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (rulebook_id, version_number, content, change_summary, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, r.tables.RulebookVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		v.RulebookID,
		v.VersionNumber,
		v.Content,
		v.ChangeSummary,
		v.CreatedBy,
	).Scan(&v.ID, &v.CreatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return fmt.Errorf("version %d of rulebook %s already recorded: %w", v.VersionNumber, v.RulebookID, domain.ErrConflict)
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("rulebook %s: %w", v.RulebookID, domain.ErrNotFound)
		}
		return fmt.Errorf("append version: %w", err)
	}

	return nil
}

// ListVersions retrieves version metadata (no content), newest first
func (r *PostgresRulebookRepository) ListVersions(ctx context.Context, rulebookID string) ([]models.VersionMeta, error) {
	query := fmt.Sprintf(`
		SELECT id, rulebook_id, version_number, change_summary, created_by, created_at
		FROM %s
		WHERE rulebook_id = $1
		ORDER BY version_number DESC
	`, r.tables.RulebookVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, rulebookID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.VersionMeta
	for rows.Next() {
		var v models.VersionMeta
		err := rows.Scan(
			&v.ID,
			&v.RulebookID,
			&v.VersionNumber,
			&v.ChangeSummary,
			&v.CreatedBy,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	return versions, nil
}

// GetVersion retrieves one version snapshot including its content
func (r *PostgresRulebookRepository) GetVersion(ctx context.Context, rulebookID string, versionNumber int) (*models.Version, error) {
	query := fmt.Sprintf(`
		SELECT id, rulebook_id, version_number, content, change_summary, created_by, created_at
		FROM %s
		WHERE rulebook_id = $1 AND version_number = $2
	`, r.tables.RulebookVersions)

	var v models.Version
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, rulebookID, versionNumber).Scan(
		&v.ID,
		&v.RulebookID,
		&v.VersionNumber,
		&v.Content,
		&v.ChangeSummary,
		&v.CreatedBy,
		&v.CreatedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("version %d of rulebook %s: %w", versionNumber, rulebookID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get version: %w", err)
	}

	return &v, nil
}
