package rulebook

import (
	"context"
	"fmt"
	"log/slog"

	"ludoforge/internal/config"
	"ludoforge/internal/domain"
	models "ludoforge/internal/domain/models/rulebook"
	rbRepo "ludoforge/internal/domain/repositories/rulebook"
	rbSvc "ludoforge/internal/domain/services/rulebook"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// projectService implements the ProjectService interface
type projectService struct {
	projectRepo rbRepo.ProjectRepository
	logger      *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(projectRepo rbRepo.ProjectRepository, logger *slog.Logger) rbSvc.ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		logger:      logger,
	}
}

// ListProjects retrieves all projects for a user
func (s *projectService) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return s.projectRepo.List(ctx, userID)
}

// CreateProject creates a new project
func (s *projectService) CreateProject(ctx context.Context, req *rbSvc.CreateProjectRequest) (*models.Project, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.RuneLength(1, config.MaxProjectNameLength)),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	project := &models.Project{
		UserID: req.UserID,
		Name:   req.Name,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.Info("project created", "project_id", project.ID, "user_id", req.UserID)
	return project, nil
}

// GetProject retrieves a project by ID, scoped to the user
func (s *projectService) GetProject(ctx context.Context, id, userID string) (*models.Project, error) {
	return s.projectRepo.GetByID(ctx, id, userID)
}
