package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/relaycrm/backend/internal/domain/models"
)

type WorkflowRepository struct {
	db *sql.DB
}

func NewWorkflowRepository(db *sql.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

const workflowColumns = `id, org_id, name, object_type, trigger_type, condition_expr, action_type,
		action_config, is_active, schedule, next_run_at, last_run_at, is_running,
		created_date, modified_date`

// Create inserts a workflow rule
func (r *WorkflowRepository) Create(ctx context.Context, exec Executor, w *models.Workflow) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, name, object_type, trigger_type, condition_expr, action_type,
			action_config, is_active, schedule, next_run_at, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableWorkflows)

	_, err := exec.ExecContext(ctx, query,
		w.ID, w.OrgID, w.Name, w.ObjectType, w.TriggerType, w.Condition,
		w.ActionType, w.ActionConfig, w.IsActive, w.Schedule, w.NextRunAt)
	return err
}

// FindByID retrieves a workflow within the org
func (r *WorkflowRepository) FindByID(ctx context.Context, orgID, id string) (*models.Workflow, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1", workflowColumns, TableWorkflows)
	w, err := scanWorkflow(r.db.QueryRowContext(ctx, query, orgID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return w, err
}

// FindAll lists the org's workflows
func (r *WorkflowRepository) FindAll(ctx context.Context, orgID string) ([]*models.Workflow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE org_id = ?
		ORDER BY created_date DESC
	`, workflowColumns, TableWorkflows)

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWorkflows(rows)
}

// FindActiveByTrigger lists active rules matching a record event
func (r *WorkflowRepository) FindActiveByTrigger(ctx context.Context, orgID, objectType, triggerType string) ([]*models.Workflow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE org_id = ? AND object_type = ? AND trigger_type = ? AND is_active = TRUE
		ORDER BY created_date ASC
	`, workflowColumns, TableWorkflows)

	rows, err := r.db.QueryContext(ctx, query, orgID, objectType, triggerType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWorkflows(rows)
}

// FindDueScheduled lists active scheduled rules whose next run is due and
// that are not already running
func (r *WorkflowRepository) FindDueScheduled(ctx context.Context, asOf time.Time, limit int) ([]*models.Workflow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE trigger_type = ? AND is_active = TRUE AND is_running = FALSE
			AND next_run_at IS NOT NULL AND next_run_at <= ?
		ORDER BY next_run_at ASC
		LIMIT ?
	`, workflowColumns, TableWorkflows)

	rows, err := r.db.QueryContext(ctx, query, models.TriggerScheduled, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWorkflows(rows)
}

// TryAcquireRun flips is_running for one due workflow. Returns false when
// another scheduler instance got there first.
func (r *WorkflowRepository) TryAcquireRun(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET is_running = TRUE, modified_date = NOW()
		WHERE id = ? AND is_running = FALSE
	`, TableWorkflows)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// FinishRun releases the run lock and advances the schedule
func (r *WorkflowRepository) FinishRun(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET is_running = FALSE, last_run_at = ?, next_run_at = ?, modified_date = NOW()
		WHERE id = ?
	`, TableWorkflows)

	_, err := r.db.ExecContext(ctx, query, lastRun, nextRun, id)
	return err
}

// Update applies a partial update to a workflow
func (r *WorkflowRepository) Update(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TableWorkflows, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

// Delete removes a workflow
func (r *WorkflowRepository) Delete(ctx context.Context, exec Executor, orgID, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE org_id = ? AND id = ?", TableWorkflows)
	_, err := exec.ExecContext(ctx, query, orgID, id)
	return err
}

func collectWorkflows(rows *sql.Rows) ([]*models.Workflow, error) {
	workflows := make([]*models.Workflow, 0)
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

func scanWorkflow(s rowScanner) (*models.Workflow, error) {
	var w models.Workflow
	var schedule sql.NullString
	var nextRunAt, lastRunAt sql.NullTime

	err := s.Scan(&w.ID, &w.OrgID, &w.Name, &w.ObjectType, &w.TriggerType, &w.Condition,
		&w.ActionType, &w.ActionConfig, &w.IsActive, &schedule, &nextRunAt, &lastRunAt,
		&w.IsRunning, &w.CreatedDate, &w.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if schedule.Valid {
		w.Schedule = &schedule.String
	}
	if nextRunAt.Valid {
		w.NextRunAt = &nextRunAt.Time
	}
	if lastRunAt.Valid {
		w.LastRunAt = &lastRunAt.Time
	}
	return &w, nil
}
