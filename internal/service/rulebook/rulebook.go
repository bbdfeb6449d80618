package rulebook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"ludoforge/internal/config"
	"ludoforge/internal/domain"
	models "ludoforge/internal/domain/models/rulebook"
	"ludoforge/internal/domain/repositories"
	rbRepo "ludoforge/internal/domain/repositories/rulebook"
	rbSvc "ludoforge/internal/domain/services/rulebook"
	"ludoforge/internal/editor/document"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// rulebookService implements the RulebookService interface
type rulebookService struct {
	rbRepo      rbRepo.RulebookRepository
	projectRepo rbRepo.ProjectRepository
	txManager   repositories.TransactionManager
	logger      *slog.Logger
}

// NewRulebookService creates a new rulebook service
func NewRulebookService(
	rbRepo rbRepo.RulebookRepository,
	projectRepo rbRepo.ProjectRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) rbSvc.RulebookService {
	return &rulebookService{
		rbRepo:      rbRepo,
		projectRepo: projectRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

// validateAccess checks that the project exists, is not deleted, and
// belongs to the user. Ownership failures surface as not-found so the
// API does not leak which project IDs exist.
func (s *rulebookService) validateAccess(ctx context.Context, projectID, userID string) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Load retrieves the serialized document content for a project's rulebook
func (s *rulebookService) Load(ctx context.Context, projectID, userID string) (*models.Rulebook, error) {
	if _, err := s.validateAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.rbRepo.GetByProject(ctx, projectID)
}

// Write persists content for a project's rulebook: create on first
// save, update plus version snapshot on later saves. The update and the
// snapshot land in one transaction. A save whose normalized content
// matches what is stored writes nothing.
func (s *rulebookService) Write(ctx context.Context, req *rbSvc.WriteRequest) (*models.Rulebook, error) {
	if err := validation.Validate(req.ProjectID, validation.Required); err != nil {
		return nil, &domain.ValidationError{Message: "project_id is required"}
	}
	if err := validation.Validate(req.EditorID, validation.Required); err != nil {
		return nil, &domain.ValidationError{Message: "editor identity is required"}
	}
	if len(req.Content) == 0 {
		return nil, &domain.ValidationError{Message: "content is required"}
	}
	if req.ChangeSummary != nil {
		if err := validation.Validate(*req.ChangeSummary, validation.RuneLength(0, config.MaxChangeSummaryLength)); err != nil {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("change summary exceeds %d characters", config.MaxChangeSummaryLength)}
		}
	}

	if _, err := s.validateAccess(ctx, req.ProjectID, req.EditorID); err != nil {
		return nil, err
	}

	// Parsing validates structure and yields a canonical byte form, so
	// the material-change comparison below is not fooled by key order
	// or whitespace.
	doc, err := document.FromJSON(req.Content)
	if err != nil {
		return nil, err
	}
	normalized, err := doc.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("normalize content: %w", err)
	}
	if doc.CharacterCount() > config.MaxRulebookCharacters {
		return nil, &domain.CapacityError{
			Message: fmt.Sprintf("content exceeds the %d character limit", config.MaxRulebookCharacters),
		}
	}

	wordCount := doc.WordCount()
	pages := pageCount(wordCount)

	var result *models.Rulebook
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		rb, err := s.rbRepo.GetByProject(txCtx, req.ProjectID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			rb = &models.Rulebook{
				ProjectID:    req.ProjectID,
				Title:        deriveTitle(doc),
				Content:      normalized,
				Version:      1,
				WordCount:    wordCount,
				PageCount:    pages,
				LastEditedBy: req.EditorID,
			}
			if err := s.rbRepo.Create(txCtx, rb); err != nil {
				return err
			}
			s.logger.Info("rulebook created on first save",
				"rulebook_id", rb.ID,
				"project_id", req.ProjectID,
			)
		case err != nil:
			return err
		default:
			if materiallyEqual(rb.Content, normalized) {
				result = rb
				return nil
			}
			rb.Content = normalized
			rb.Version++
			rb.WordCount = wordCount
			rb.PageCount = pages
			rb.LastEditedBy = req.EditorID
			if err := s.rbRepo.Update(txCtx, rb); err != nil {
				return err
			}
		}

		version := &models.Version{
			RulebookID:    rb.ID,
			VersionNumber: rb.Version,
			Content:       normalized,
			ChangeSummary: req.ChangeSummary,
			CreatedBy:     req.EditorID,
		}
		if err := s.rbRepo.AppendVersion(txCtx, version); err != nil {
			return err
		}

		result = rb
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetRulebook retrieves a rulebook by its own ID
func (s *rulebookService) GetRulebook(ctx context.Context, id, userID string) (*models.Rulebook, error) {
	rb, err := s.rbRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.validateAccess(ctx, rb.ProjectID, userID); err != nil {
		return nil, err
	}
	return rb, nil
}

// UpdateRulebook updates title and/or publish flag
func (s *rulebookService) UpdateRulebook(ctx context.Context, id, userID string, req *rbSvc.UpdateRulebookRequest) (*models.Rulebook, error) {
	if req.Title == nil && req.IsPublished == nil {
		return nil, &domain.ValidationError{Message: "nothing to update"}
	}
	if req.Title != nil {
		if err := validation.Validate(*req.Title, validation.Required, validation.RuneLength(1, config.MaxRulebookTitleLength)); err != nil {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("title must be between 1 and %d characters", config.MaxRulebookTitleLength),
			}
		}
	}

	rb, err := s.GetRulebook(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		rb.Title = *req.Title
	}
	if req.IsPublished != nil {
		rb.IsPublished = *req.IsPublished
	}
	rb.LastEditedBy = userID

	if err := s.rbRepo.Update(ctx, rb); err != nil {
		return nil, err
	}
	return rb, nil
}

// ListVersions retrieves version metadata, newest first
func (s *rulebookService) ListVersions(ctx context.Context, rulebookID, userID string) ([]models.VersionMeta, error) {
	if _, err := s.GetRulebook(ctx, rulebookID, userID); err != nil {
		return nil, err
	}
	return s.rbRepo.ListVersions(ctx, rulebookID)
}

// GetVersion retrieves one version snapshot including content
func (s *rulebookService) GetVersion(ctx context.Context, rulebookID, userID string, versionNumber int) (*models.Version, error) {
	if _, err := s.GetRulebook(ctx, rulebookID, userID); err != nil {
		return nil, err
	}
	return s.rbRepo.GetVersion(ctx, rulebookID, versionNumber)
}

// RestoreVersion writes an old snapshot's content as a new save, so
// history stays append-only and the restore itself is in the history.
func (s *rulebookService) RestoreVersion(ctx context.Context, rulebookID, userID string, versionNumber int) (*models.Rulebook, error) {
	rb, err := s.GetRulebook(ctx, rulebookID, userID)
	if err != nil {
		return nil, err
	}

	version, err := s.rbRepo.GetVersion(ctx, rulebookID, versionNumber)
	if err != nil {
		return nil, err
	}

	summary := fmt.Sprintf("Restored from version %d", versionNumber)
	restored, err := s.Write(ctx, &rbSvc.WriteRequest{
		ProjectID:     rb.ProjectID,
		EditorID:      userID,
		Content:       version.Content,
		ChangeSummary: &summary,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("rulebook restored",
		"rulebook_id", rulebookID,
		"from_version", versionNumber,
		"new_version", restored.Version,
	)
	return restored, nil
}

// deriveTitle takes the rulebook title from the document's first
// heading.
func deriveTitle(doc *document.Document) string {
	for _, block := range doc.Root().Children {
		if block.Kind != document.KindHeading {
			continue
		}
		var sb bytes.Buffer
		for _, child := range block.Children {
			if child.Kind == document.KindText {
				sb.WriteString(child.Text)
			}
		}
		if title := sb.String(); title != "" {
			if len([]rune(title)) > config.MaxRulebookTitleLength {
				return string([]rune(title)[:config.MaxRulebookTitleLength])
			}
			return title
		}
	}
	return "Untitled Rulebook"
}

// pageCount estimates printed pages from the word count. A rulebook
// with any content at all is at least one page.
func pageCount(words int) int {
	if words == 0 {
		return 1
	}
	return (words + config.WordsPerPage - 1) / config.WordsPerPage
}

// materiallyEqual reports whether stored and incoming content are the
// same document. Stored content was normalized by the same serializer,
// so byte equality is sufficient once both sides are canonical.
func materiallyEqual(stored, incoming json.RawMessage) bool {
	if bytes.Equal(stored, incoming) {
		return true
	}
	// Stored rows written by older schema versions may not be canonical.
	doc, err := document.FromJSON(stored)
	if err != nil {
		return false
	}
	canonical, err := doc.ToJSON()
	if err != nil {
		return false
	}
	return bytes.Equal(canonical, incoming)
}
