package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/relaycrm/backend/internal/domain/events"
	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/expression"
	"github.com/relaycrm/backend/pkg/utils"
)

// ApprovalService routes records through configured approval processes.
// A record qualifies for a process when the entry condition matches; the
// approver is either a named user or the submitter's manager, falling back
// to an org admin when the chain is empty.
type ApprovalService struct {
	db            *database.Connection
	approvals     *persistence.ApprovalRepository
	users         *persistence.UserRepository
	txManager     *persistence.TransactionManager
	outbox        *OutboxService
	notifications *NotificationService
	engine        *expression.Engine
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(db *database.Connection, txManager *persistence.TransactionManager,
	outbox *OutboxService, notifications *NotificationService, engine *expression.Engine) *ApprovalService {
	return &ApprovalService{
		db:            db,
		approvals:     persistence.NewApprovalRepository(db.DB()),
		users:         persistence.NewUserRepository(db.DB()),
		txManager:     txManager,
		outbox:        outbox,
		notifications: notifications,
		engine:        engine,
	}
}

// ProcessInput defines an approval process
type ProcessInput struct {
	Name           string
	ObjectType     string
	EntryCondition string
	ApproverType   string
	ApproverID     *string
}

// CreateProcess stores an approval process definition
func (s *ApprovalService) CreateProcess(ctx context.Context, actor *models.UserSession, input ProcessInput) (*models.ApprovalProcess, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("create", "ApprovalProcess")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name", "process name is required")
	}
	if input.ApproverType != models.ApproverTypeNamed && input.ApproverType != models.ApproverTypeManager {
		return nil, apperrors.NewValidationError("approver_type", "approver type must be Named or Manager")
	}
	if input.ApproverType == models.ApproverTypeNamed {
		if input.ApproverID == nil {
			return nil, apperrors.NewValidationError("approver_id", "named approver requires approver_id")
		}
		approver, err := s.users.FindByID(ctx, actor.OrgID, *input.ApproverID)
		if err != nil {
			return nil, err
		}
		if approver == nil {
			return nil, apperrors.NewNotFoundError("User", *input.ApproverID)
		}
	}
	if err := s.engine.Validate(input.EntryCondition); err != nil {
		return nil, apperrors.NewValidationError("entry_condition", fmt.Sprintf("invalid entry condition: %v", err))
	}

	process := &models.ApprovalProcess{
		ID:             utils.GenerateID(),
		OrgID:          actor.OrgID,
		Name:           input.Name,
		ObjectType:     input.ObjectType,
		EntryCondition: input.EntryCondition,
		ApproverType:   input.ApproverType,
		ApproverID:     input.ApproverID,
		IsActive:       true,
	}
	if err := s.approvals.CreateProcess(ctx, s.db, process); err != nil {
		return nil, err
	}
	return process, nil
}

// ListProcesses lists active processes for an object type
func (s *ApprovalService) ListProcesses(ctx context.Context, actor *models.UserSession, objectType string) ([]*models.ApprovalProcess, error) {
	return s.approvals.FindActiveProcesses(ctx, actor.OrgID, objectType)
}

// SubmitRecord runs the record through the first matching process and opens
// a work item. Returns nil when no process qualifies; errors when the record
// already has a pending request.
func (s *ApprovalService) SubmitRecord(ctx context.Context, actor *models.UserSession, objectType, recordID string, env map[string]interface{}) (*models.ApprovalWorkItem, error) {
	processes, err := s.approvals.FindActiveProcesses(ctx, actor.OrgID, objectType)
	if err != nil {
		return nil, err
	}

	var matched *models.ApprovalProcess
	for _, p := range processes {
		ok, err := s.engine.EvaluateCondition(p.EntryCondition, env)
		if err != nil {
			log.Printf("⚠️ Approval entry condition for %s failed to evaluate: %v", p.Name, err)
			continue
		}
		if ok {
			matched = p
			break
		}
	}
	if matched == nil {
		return nil, nil
	}

	pending, err := s.approvals.HasPendingWorkItem(ctx, actor.OrgID, objectType, recordID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperrors.NewConflictError("ApprovalWorkItem", "record_id", recordID)
	}

	approverID, err := s.resolveApprover(ctx, actor, matched)
	if err != nil {
		return nil, err
	}

	item := &models.ApprovalWorkItem{
		ID:            utils.GenerateID(),
		OrgID:         actor.OrgID,
		ProcessID:     matched.ID,
		ObjectType:    objectType,
		RecordID:      recordID,
		Status:        models.ApprovalStatusPending,
		SubmittedByID: actor.ID,
		ApproverID:    approverID,
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.approvals.CreateWorkItem(ctx, tx, item); err != nil {
			return fmt.Errorf("failed to create work item: %w", err)
		}
		_, err := s.notifications.Notify(ctx, tx, actor.OrgID, approverID,
			"Approval requested",
			fmt.Sprintf("%s submitted a %s for your approval", actor.Name, objectType),
			fmt.Sprintf("/approvals/%s", item.ID), "approval")
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📤 Approval work item %s opened for %s %s (approver %s)", item.ID, objectType, recordID, approverID)
	return item, nil
}

// resolveApprover picks the approver per the process rule. Manager rules
// fall back to the first org admin when the submitter has no manager.
func (s *ApprovalService) resolveApprover(ctx context.Context, actor *models.UserSession, process *models.ApprovalProcess) (string, error) {
	if process.ApproverType == models.ApproverTypeNamed {
		if process.ApproverID == nil {
			return "", apperrors.NewValidationError("approver_id", "named approver process has no approver")
		}
		return *process.ApproverID, nil
	}

	if actor.ManagerID != nil && *actor.ManagerID != "" {
		manager, err := s.users.FindByID(ctx, actor.OrgID, *actor.ManagerID)
		if err != nil {
			return "", err
		}
		if manager != nil && manager.IsActive {
			return manager.ID, nil
		}
	}

	admins, err := s.users.FindAdmins(ctx, actor.OrgID)
	if err != nil {
		return "", err
	}
	for _, admin := range admins {
		if admin.ID != actor.ID {
			return admin.ID, nil
		}
	}
	if len(admins) > 0 {
		// Solo admin orgs approve their own submissions
		return admins[0].ID, nil
	}
	return "", apperrors.NewValidationError("approver", "no approver available for this record")
}

// Inbox lists the actor's pending approval requests
func (s *ApprovalService) Inbox(ctx context.Context, actor *models.UserSession) ([]*models.ApprovalWorkItem, error) {
	return s.approvals.FindPendingForApprover(ctx, actor.OrgID, actor.ID)
}

// History lists every request raised for a record, newest first
func (s *ApprovalService) History(ctx context.Context, actor *models.UserSession, objectType, recordID string) ([]*models.ApprovalWorkItem, error) {
	return s.approvals.FindForRecord(ctx, actor.OrgID, objectType, recordID)
}

// GetWorkItem fetches one work item
func (s *ApprovalService) GetWorkItem(ctx context.Context, actor *models.UserSession, id string) (*models.ApprovalWorkItem, error) {
	item, err := s.approvals.FindWorkItemByID(ctx, s.db, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("ApprovalWorkItem", id)
	}
	return item, nil
}

// Decide approves or rejects a pending work item. Only the assigned
// approver may decide. The decision event fans out through the outbox so
// the owning record can advance its own status.
func (s *ApprovalService) Decide(ctx context.Context, actor *models.UserSession, id string, approved bool, comments string) (*models.ApprovalWorkItem, error) {
	item, err := s.GetWorkItem(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if item.Status != models.ApprovalStatusPending {
		return nil, apperrors.NewStateTransitionError("ApprovalWorkItem", item.Status, models.ApprovalStatusApproved)
	}
	if item.ApproverID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("decide", "ApprovalWorkItem")
	}

	status := models.ApprovalStatusRejected
	if approved {
		status = models.ApprovalStatusApproved
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		decided, err := s.approvals.Decide(ctx, tx, actor.OrgID, id, status, actor.ID, comments, time.Now())
		if err != nil {
			return err
		}
		if !decided {
			return apperrors.NewConflictError("ApprovalWorkItem", "status", item.Status)
		}

		txCtx := s.txManager.InjectTx(ctx, tx)
		payload := events.ApprovalPayload{
			OrgID:      actor.OrgID,
			WorkItemID: id,
			ObjectType: item.ObjectType,
			RecordID:   item.RecordID,
			Approved:   approved,
			DecidedBy:  actor.ID,
		}
		if err := s.outbox.EnqueueEvent(txCtx, events.ApprovalDecided, payload); err != nil {
			return err
		}

		_, err = s.notifications.Notify(ctx, tx, actor.OrgID, item.SubmittedByID,
			fmt.Sprintf("%s %s", item.ObjectType, strings.ToLower(status)),
			fmt.Sprintf("Your %s was %s by %s", item.ObjectType, strings.ToLower(status), actor.Name),
			fmt.Sprintf("/approvals/%s", id), "approval")
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Approval work item %s decided: %s", id, status)
	return s.GetWorkItem(ctx, actor, id)
}

// Recall withdraws the submitter's own pending request. The recall event
// fans out like a decision so the owning record drops back to Draft instead
// of sitting in review forever.
func (s *ApprovalService) Recall(ctx context.Context, actor *models.UserSession, id string) (*models.ApprovalWorkItem, error) {
	item, err := s.GetWorkItem(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if item.Status != models.ApprovalStatusPending {
		return nil, apperrors.NewStateTransitionError("ApprovalWorkItem", item.Status, models.ApprovalStatusRecalled)
	}
	if item.SubmittedByID != actor.ID {
		return nil, apperrors.NewPermissionError("recall", "ApprovalWorkItem")
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		decided, err := s.approvals.Decide(ctx, tx, actor.OrgID, id, models.ApprovalStatusRecalled, actor.ID, "recalled by submitter", time.Now())
		if err != nil {
			return err
		}
		if !decided {
			return apperrors.NewConflictError("ApprovalWorkItem", "status", item.Status)
		}

		txCtx := s.txManager.InjectTx(ctx, tx)
		payload := events.ApprovalPayload{
			OrgID:      actor.OrgID,
			WorkItemID: id,
			ObjectType: item.ObjectType,
			RecordID:   item.RecordID,
			Approved:   false,
			DecidedBy:  actor.ID,
		}
		if err := s.outbox.EnqueueEvent(txCtx, events.ApprovalRecalled, payload); err != nil {
			return err
		}

		_, err = s.notifications.Notify(ctx, tx, actor.OrgID, item.ApproverID,
			fmt.Sprintf("%s approval recalled", item.ObjectType),
			fmt.Sprintf("%s withdrew their %s approval request", actor.Name, item.ObjectType),
			fmt.Sprintf("/approvals/%s", id), "approval")
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🔄 Approval work item %s recalled by submitter", id)
	return s.GetWorkItem(ctx, actor, id)
}
