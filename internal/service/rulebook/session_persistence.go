package rulebook

import (
	"context"
	"encoding/json"
	"errors"

	"ludoforge/internal/domain"
	rbSvc "ludoforge/internal/domain/services/rulebook"
)

// SessionPersistence adapts the rulebook service to the editing
// session's persistence contract, binding a project and an editor
// identity to every write. Failures are classified so the session
// knows whether autosave retries are worthwhile: a write the backend
// will never accept (gone project, invalid or oversized content) is
// permanent, anything else is transient.
type SessionPersistence struct {
	service   rbSvc.RulebookService
	projectID string
	editorID  string
}

// NewSessionPersistence builds the persistence adapter one session
// writes through.
func NewSessionPersistence(service rbSvc.RulebookService, projectID, editorID string) *SessionPersistence {
	return &SessionPersistence{
		service:   service,
		projectID: projectID,
		editorID:  editorID,
	}
}

// Write persists the session's current content as one attributed save.
func (p *SessionPersistence) Write(ctx context.Context, content json.RawMessage) error {
	_, err := p.service.Write(ctx, &rbSvc.WriteRequest{
		ProjectID: p.projectID,
		EditorID:  p.editorID,
		Content:   content,
	})
	if err == nil {
		return nil
	}

	permanent := errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrCapacity) ||
		errors.Is(err, domain.ErrForbidden)

	return &domain.PersistenceError{
		Message:   "save rulebook",
		Permanent: permanent,
		Err:       err,
	}
}
