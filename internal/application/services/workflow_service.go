package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/relaycrm/backend/internal/agent"
	"github.com/relaycrm/backend/internal/domain/events"
	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/expression"
	"github.com/relaycrm/backend/pkg/utils"
)

// recordUpdater applies a partial update to one record of the object type.
// Workflow field updates go straight through the repository so they do not
// re-enter the event pipeline and loop.
type recordUpdater func(ctx context.Context, orgID, id string, updates map[string]interface{}) error

// WorkflowService evaluates automation rules against record events and
// executes their actions
type WorkflowService struct {
	db            *database.Connection
	workflows     *persistence.WorkflowRepository
	tasks         *TaskService
	emails        *EmailService
	notifications *NotificationService
	orchestrator  *agent.Orchestrator
	engine        *expression.Engine
	updaters      map[string]recordUpdater
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(db *database.Connection, tasks *TaskService, emails *EmailService,
	notifications *NotificationService, orchestrator *agent.Orchestrator,
	engine *expression.Engine) *WorkflowService {

	leads := persistence.NewLeadRepository(db.DB())
	contacts := persistence.NewContactRepository(db.DB())
	accounts := persistence.NewAccountRepository(db.DB())
	opportunities := persistence.NewOpportunityRepository(db.DB())
	conn := db

	return &WorkflowService{
		db:            db,
		workflows:     persistence.NewWorkflowRepository(db.DB()),
		tasks:         tasks,
		emails:        emails,
		notifications: notifications,
		orchestrator:  orchestrator,
		engine:        engine,
		updaters: map[string]recordUpdater{
			ObjectLead: func(ctx context.Context, orgID, id string, updates map[string]interface{}) error {
				return leads.Update(ctx, conn, orgID, id, updates)
			},
			ObjectContact: func(ctx context.Context, orgID, id string, updates map[string]interface{}) error {
				return contacts.Update(ctx, conn, orgID, id, updates)
			},
			ObjectAccount: func(ctx context.Context, orgID, id string, updates map[string]interface{}) error {
				return accounts.Update(ctx, conn, orgID, id, updates)
			},
			ObjectOpportunity: func(ctx context.Context, orgID, id string, updates map[string]interface{}) error {
				return opportunities.Update(ctx, conn, orgID, id, updates)
			},
		},
	}
}

// WorkflowInput carries the writable workflow fields
type WorkflowInput struct {
	Name         string
	ObjectType   string
	TriggerType  string
	Condition    string
	ActionType   string
	ActionConfig string
	Schedule     *string
}

// Create validates and stores a workflow rule. Scheduled rules get their
// first next_run_at from the cron expression.
func (s *WorkflowService) Create(ctx context.Context, actor *models.UserSession, input WorkflowInput) (*models.Workflow, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("create", "Workflow")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name", "workflow name is required")
	}

	switch input.TriggerType {
	case models.TriggerAfterCreate, models.TriggerAfterUpdate, models.TriggerScheduled:
	default:
		return nil, apperrors.NewValidationError("trigger_type", "unknown trigger type: "+input.TriggerType)
	}
	switch input.ActionType {
	case models.ActionFieldUpdate, models.ActionCreateTask, models.ActionSendEmail,
		models.ActionNotify, models.ActionEnqueueAgent:
	default:
		return nil, apperrors.NewValidationError("action_type", "unknown action type: "+input.ActionType)
	}
	if err := s.engine.Validate(input.Condition); err != nil {
		return nil, apperrors.NewValidationError("condition", fmt.Sprintf("invalid condition: %v", err))
	}
	if input.ActionConfig != "" && !json.Valid([]byte(input.ActionConfig)) {
		return nil, apperrors.NewValidationError("action_config", "action config must be valid JSON")
	}

	w := &models.Workflow{
		ID:           utils.GenerateID(),
		OrgID:        actor.OrgID,
		Name:         input.Name,
		ObjectType:   input.ObjectType,
		TriggerType:  input.TriggerType,
		Condition:    input.Condition,
		ActionType:   input.ActionType,
		ActionConfig: input.ActionConfig,
		IsActive:     true,
		Schedule:     input.Schedule,
	}

	if input.TriggerType == models.TriggerScheduled {
		if input.Schedule == nil || *input.Schedule == "" {
			return nil, apperrors.NewValidationError("schedule", "scheduled workflows need a cron expression")
		}
		next, err := nextCronRun(*input.Schedule, time.Now())
		if err != nil {
			return nil, apperrors.NewValidationError("schedule", fmt.Sprintf("invalid cron expression: %v", err))
		}
		w.NextRunAt = &next
	}

	if err := s.workflows.Create(ctx, s.db, w); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}
	return w, nil
}

// Get fetches a workflow by ID
func (s *WorkflowService) Get(ctx context.Context, actor *models.UserSession, id string) (*models.Workflow, error) {
	w, err := s.workflows.FindByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, apperrors.NewNotFoundError("Workflow", id)
	}
	return w, nil
}

// List returns the org's workflows
func (s *WorkflowService) List(ctx context.Context, actor *models.UserSession) ([]*models.Workflow, error) {
	return s.workflows.FindAll(ctx, actor.OrgID)
}

// Update applies changes to a workflow; condition and schedule changes are
// re-validated
func (s *WorkflowService) Update(ctx context.Context, actor *models.UserSession, id string, updates map[string]interface{}) (*models.Workflow, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("update", "Workflow")
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}

	if cond, ok := updates["condition_expr"].(string); ok {
		if err := s.engine.Validate(cond); err != nil {
			return nil, apperrors.NewValidationError("condition", fmt.Sprintf("invalid condition: %v", err))
		}
	}
	if schedule, ok := updates["schedule"].(string); ok {
		next, err := nextCronRun(schedule, time.Now())
		if err != nil {
			return nil, apperrors.NewValidationError("schedule", fmt.Sprintf("invalid cron expression: %v", err))
		}
		updates["next_run_at"] = next
	}

	if err := s.workflows.Update(ctx, s.db, actor.OrgID, id, updates); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Delete removes a workflow
func (s *WorkflowService) Delete(ctx context.Context, actor *models.UserSession, id string) error {
	if !actor.IsAdmin() {
		return apperrors.NewPermissionError("delete", "Workflow")
	}
	return s.workflows.Delete(ctx, s.db, actor.OrgID, id)
}

// OnRecordEvent runs all matching rules for a record event. Called from the
// event bus; a failing rule is logged and does not block the others.
func (s *WorkflowService) OnRecordEvent(ctx context.Context, triggerType string, p events.RecordPayload) error {
	rules, err := s.workflows.FindActiveByTrigger(ctx, p.OrgID, p.ObjectType, triggerType)
	if err != nil {
		return err
	}

	for _, w := range rules {
		env := make(map[string]interface{}, len(p.Record)+1)
		for k, v := range p.Record {
			env[k] = v
		}
		old := p.OldRecord
		if old == nil {
			old = map[string]interface{}{}
		}
		env["old"] = old

		matched, err := s.engine.EvaluateCondition(w.Condition, env)
		if err != nil {
			log.Printf("⚠️ Workflow %s condition failed to evaluate: %v", w.Name, err)
			continue
		}
		if !matched {
			continue
		}

		if err := s.executeAction(ctx, w, &p, env); err != nil {
			log.Printf("❌ Workflow %s action failed: %v", w.Name, err)
			continue
		}
		log.Printf("🔄 Workflow %s fired for %s %s", w.Name, p.ObjectType, p.RecordID)
	}
	return nil
}

// RunScheduled executes one due scheduled rule and returns the next run
// time. Record-bound actions (field updates) are meaningless without a
// record and are skipped.
func (s *WorkflowService) RunScheduled(ctx context.Context, w *models.Workflow) (time.Time, error) {
	now := time.Now()
	next, err := nextCronRun(derefString(w.Schedule), now)
	if err != nil {
		// Broken schedule: push it a day out so it stops hot-looping
		next = now.Add(24 * time.Hour)
	}

	if w.ActionType == models.ActionFieldUpdate {
		log.Printf("⚠️ Scheduled workflow %s has a record-bound action, skipping", w.Name)
		return next, nil
	}

	payload := events.RecordPayload{OrgID: w.OrgID, ObjectType: w.ObjectType}
	if err := s.executeAction(ctx, w, &payload, map[string]interface{}{}); err != nil {
		return next, err
	}
	log.Printf("🔄 Scheduled workflow %s ran", w.Name)
	return next, nil
}

// Action config shapes, one per action type
type fieldUpdateConfig struct {
	Updates map[string]interface{} `json:"updates"`
}

type createTaskConfig struct {
	OwnerID   string `json:"owner_id"`
	Subject   string `json:"subject"`
	DueInDays int    `json:"due_in_days"`
}

type sendEmailConfig struct {
	To      string `json:"to"`
	ToField string `json:"to_field"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type notifyConfig struct {
	RecipientID string `json:"recipient_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}

type enqueueAgentConfig struct {
	Agent    string `json:"agent"`
	Priority int    `json:"priority"`
	Reason   string `json:"reason"`
}

func (s *WorkflowService) executeAction(ctx context.Context, w *models.Workflow, p *events.RecordPayload, env map[string]interface{}) error {
	switch w.ActionType {
	case models.ActionFieldUpdate:
		var cfg fieldUpdateConfig
		if err := json.Unmarshal([]byte(w.ActionConfig), &cfg); err != nil {
			return fmt.Errorf("bad field_update config: %w", err)
		}
		if len(cfg.Updates) == 0 {
			return nil
		}
		updater, ok := s.updaters[w.ObjectType]
		if !ok {
			return fmt.Errorf("field updates are not supported for %s", w.ObjectType)
		}
		return updater(ctx, w.OrgID, p.RecordID, cfg.Updates)

	case models.ActionCreateTask:
		var cfg createTaskConfig
		if err := json.Unmarshal([]byte(w.ActionConfig), &cfg); err != nil {
			return fmt.Errorf("bad create_task config: %w", err)
		}
		ownerID := cfg.OwnerID
		if ownerID == "" {
			ownerID = envString(env, "owner_id")
		}
		if ownerID == "" {
			return fmt.Errorf("create_task has no owner")
		}
		input := TaskInput{
			OwnerID:     ownerID,
			Subject:     cfg.Subject,
			RelatedType: p.ObjectType,
			RelatedID:   p.RecordID,
		}
		if cfg.DueInDays > 0 {
			due := time.Now().AddDate(0, 0, cfg.DueInDays)
			input.DueDate = &due
		}
		_, err := s.tasks.CreateSystem(ctx, nil, w.OrgID, input)
		return err

	case models.ActionSendEmail:
		var cfg sendEmailConfig
		if err := json.Unmarshal([]byte(w.ActionConfig), &cfg); err != nil {
			return fmt.Errorf("bad send_email config: %w", err)
		}
		to := cfg.To
		if cfg.ToField != "" {
			to = envString(env, cfg.ToField)
		}
		if to == "" {
			return fmt.Errorf("send_email has no recipient")
		}
		_, err := s.emails.Queue(ctx, nil, w.OrgID, QueueInput{
			ToAddress:   to,
			Subject:     cfg.Subject,
			Body:        cfg.Body,
			RelatedType: p.ObjectType,
			RelatedID:   p.RecordID,
		})
		return err

	case models.ActionNotify:
		var cfg notifyConfig
		if err := json.Unmarshal([]byte(w.ActionConfig), &cfg); err != nil {
			return fmt.Errorf("bad notify config: %w", err)
		}
		recipient := cfg.RecipientID
		if recipient == "" {
			recipient = envString(env, "owner_id")
		}
		if recipient == "" {
			return fmt.Errorf("notify has no recipient")
		}
		_, err := s.notifications.Notify(ctx, nil, w.OrgID, recipient,
			cfg.Title, cfg.Body, recordLink(p.ObjectType, p.RecordID), "workflow")
		return err

	case models.ActionEnqueueAgent:
		var cfg enqueueAgentConfig
		if err := json.Unmarshal([]byte(w.ActionConfig), &cfg); err != nil {
			return fmt.Errorf("bad enqueue_agent config: %w", err)
		}
		reason := cfg.Reason
		if reason == "" {
			reason = "workflow:" + w.Name
		}
		payload := map[string]interface{}{
			"org_id":      w.OrgID,
			"object_type": p.ObjectType,
			"record_id":   p.RecordID,
		}
		_, err := s.orchestrator.Trigger(agent.TriggerRequest{
			Agent:    cfg.Agent,
			Reason:   reason,
			Priority: cfg.Priority,
			Payload:  payload,
		})
		return err

	default:
		return fmt.Errorf("unknown action type %s", w.ActionType)
	}
}

func nextCronRun(spec string, after time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(after), nil
}

func envString(env map[string]interface{}, key string) string {
	v, _ := env[key].(string)
	return v
}

func recordLink(objectType, recordID string) string {
	return fmt.Sprintf("/%ss/%s", strings.ToLower(objectType), recordID)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
