package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aganswers/drivesync/internal/core/domain"
	"github.com/aganswers/drivesync/internal/core/ports/driven"
	"github.com/aganswers/drivesync/internal/core/ports/driving"
	"github.com/aganswers/drivesync/internal/logger"
)

// Ensure ProjectService implements the interface.
var _ driving.ProjectService = (*ProjectService)(nil)

// ProjectService manages projects and their Google Groups.
type ProjectService struct {
	projects driven.ProjectStore
	groups   driven.GroupDirectory
	now      func() time.Time
}

// NewProjectService creates a project service. groups may be nil when
// group provisioning is not configured.
func NewProjectService(projects driven.ProjectStore, groups driven.GroupDirectory) *ProjectService {
	return &ProjectService{projects: projects, groups: groups, now: time.Now}
}

// Create registers a project.
func (s *ProjectService) Create(ctx context.Context, name string, admins []string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", domain.ErrInvalidInput)
	}

	cleaned := make([]string, 0, len(admins))
	for _, a := range admins {
		if a = strings.TrimSpace(a); a != "" {
			cleaned = append(cleaned, a)
		}
	}

	project := &domain.Project{
		ID:        uuid.NewString(),
		Name:      name,
		Admins:    cleaned,
		CreatedAt: s.now(),
	}
	if err := s.projects.Save(ctx, project); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	return project, nil
}

// Get returns a project by ID.
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.Get(ctx, id)
}

// List returns all projects.
func (s *ProjectService) List(ctx context.Context) ([]domain.Project, error) {
	return s.projects.List(ctx)
}

// ProvisionGroup creates the project's group unless it already has one.
func (s *ProjectService) ProvisionGroup(ctx context.Context, projectID string) (string, error) {
	if s.groups == nil {
		return "", fmt.Errorf("%w: group provisioning is not configured", domain.ErrConfiguration)
	}
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("get project: %w", err)
	}
	if project.GroupEmail != "" {
		return project.GroupEmail, nil
	}

	email, err := s.groups.CreateProjectGroup(ctx, project.Name)
	if err != nil {
		return "", err
	}
	if err := s.projects.SetGroupEmail(ctx, projectID, email); err != nil {
		return "", fmt.Errorf("record group email: %w", err)
	}
	return email, nil
}

// DeprovisionGroup deletes the project's group and clears it from the project.
func (s *ProjectService) DeprovisionGroup(ctx context.Context, projectID string) error {
	project, err := s.groupProject(ctx, projectID)
	if err != nil {
		return err
	}

	deleted, err := s.groups.DeleteProjectGroup(ctx, project.GroupEmail)
	if err != nil {
		return err
	}
	if !deleted {
		logger.Warn("group %s of project %s was already gone", project.GroupEmail, projectID)
	}
	return s.projects.SetGroupEmail(ctx, projectID, "")
}

// EnsureGroupAdmin makes sure the admin identity owns the project's group.
func (s *ProjectService) EnsureGroupAdmin(ctx context.Context, projectID string) (bool, error) {
	project, err := s.groupProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	return s.groups.EnsureAdminIsMember(ctx, project.GroupEmail)
}

// GroupFiles lists files shared with the project's group.
func (s *ProjectService) GroupFiles(ctx context.Context, projectID string) ([]domain.FileMetadata, error) {
	project, err := s.groupProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.groups.ListFilesSharedWithGroup(ctx, project.GroupEmail)
}

// groupProject loads a project that must already have a group.
func (s *ProjectService) groupProject(ctx context.Context, projectID string) (*domain.Project, error) {
	if s.groups == nil {
		return nil, fmt.Errorf("%w: group provisioning is not configured", domain.ErrConfiguration)
	}
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project.GroupEmail == "" {
		return nil, fmt.Errorf("project %s has no group: %w", projectID, domain.ErrNotFound)
	}
	return project, nil
}
