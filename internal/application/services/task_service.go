package services

import (
	"context"
	"strings"
	"time"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/utils"
)

// TaskService handles activity tasks, mostly created by workflow actions
type TaskService struct {
	db    *database.Connection
	tasks *persistence.TaskRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(db *database.Connection) *TaskService {
	return &TaskService{
		db:    db,
		tasks: persistence.NewTaskRepository(db.DB()),
	}
}

// TaskInput carries the writable task fields
type TaskInput struct {
	OwnerID     string
	Subject     string
	DueDate     *time.Time
	RelatedType string
	RelatedID   string
}

// Create inserts an open task. An empty owner defaults to the actor.
func (s *TaskService) Create(ctx context.Context, actor *models.UserSession, input TaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewValidationError("subject", "task subject is required")
	}
	if input.OwnerID == "" {
		input.OwnerID = actor.ID
	}

	task := &models.Task{
		ID:          utils.GenerateID(),
		OrgID:       actor.OrgID,
		OwnerID:     input.OwnerID,
		Subject:     input.Subject,
		Status:      models.TaskStatusOpen,
		DueDate:     input.DueDate,
		RelatedType: input.RelatedType,
		RelatedID:   input.RelatedID,
	}
	if err := s.tasks.Create(ctx, s.db, task); err != nil {
		return nil, err
	}
	return task, nil
}

// CreateSystem inserts a task on behalf of an automation rule
func (s *TaskService) CreateSystem(ctx context.Context, exec persistence.Executor, orgID string, input TaskInput) (*models.Task, error) {
	if exec == nil {
		exec = s.db
	}
	task := &models.Task{
		ID:          utils.GenerateID(),
		OrgID:       orgID,
		OwnerID:     input.OwnerID,
		Subject:     input.Subject,
		Status:      models.TaskStatusOpen,
		DueDate:     input.DueDate,
		RelatedType: input.RelatedType,
		RelatedID:   input.RelatedID,
	}
	if err := s.tasks.Create(ctx, exec, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Get fetches a task by ID
func (s *TaskService) Get(ctx context.Context, actor *models.UserSession, id string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperrors.NewNotFoundError("Task", id)
	}
	return task, nil
}

// List returns the actor's tasks
func (s *TaskService) List(ctx context.Context, actor *models.UserSession, status string, limit int) ([]*models.Task, error) {
	return s.tasks.FindForOwner(ctx, actor.OrgID, actor.ID, status, limit)
}

// Complete marks a task done
func (s *TaskService) Complete(ctx context.Context, actor *models.UserSession, id string) (*models.Task, error) {
	task, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskStatusCompleted {
		return task, nil
	}

	if err := s.tasks.Update(ctx, s.db, actor.OrgID, id, map[string]interface{}{
		"status": models.TaskStatusCompleted,
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}
