package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/relaycrm/backend/internal/domain/models"
)

// ApprovalRepository handles approval processes and work items
type ApprovalRepository struct {
	db *sql.DB
}

func NewApprovalRepository(db *sql.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// CreateProcess inserts an approval process definition
func (r *ApprovalRepository) CreateProcess(ctx context.Context, exec Executor, p *models.ApprovalProcess) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, name, object_type, entry_condition, approver_type, approver_id,
			is_active, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableApprovalProcesses)

	_, err := exec.ExecContext(ctx, query,
		p.ID, p.OrgID, p.Name, p.ObjectType, p.EntryCondition,
		p.ApproverType, p.ApproverID, p.IsActive)
	return err
}

// FindActiveProcesses lists active processes for an object type
func (r *ApprovalRepository) FindActiveProcesses(ctx context.Context, orgID, objectType string) ([]*models.ApprovalProcess, error) {
	query := fmt.Sprintf(`
		SELECT id, org_id, name, object_type, entry_condition, approver_type, approver_id,
			is_active, created_date, modified_date
		FROM %s WHERE org_id = ? AND object_type = ? AND is_active = TRUE
		ORDER BY created_date ASC
	`, TableApprovalProcesses)

	rows, err := r.db.QueryContext(ctx, query, orgID, objectType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	processes := make([]*models.ApprovalProcess, 0)
	for rows.Next() {
		var p models.ApprovalProcess
		var approverID sql.NullString
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.ObjectType, &p.EntryCondition,
			&p.ApproverType, &approverID, &p.IsActive, &p.CreatedDate, &p.ModifiedDate); err != nil {
			return nil, err
		}
		if approverID.Valid {
			p.ApproverID = &approverID.String
		}
		processes = append(processes, &p)
	}
	return processes, rows.Err()
}

const workItemColumns = `id, org_id, process_id, object_type, record_id, status, submitted_by_id,
		approver_id, comments, decided_by_id, decided_date, created_date, modified_date`

// CreateWorkItem inserts a pending approval request
func (r *ApprovalRepository) CreateWorkItem(ctx context.Context, exec Executor, w *models.ApprovalWorkItem) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, process_id, object_type, record_id, status, submitted_by_id,
			approver_id, comments, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableApprovalWorkItems)

	_, err := exec.ExecContext(ctx, query,
		w.ID, w.OrgID, w.ProcessID, w.ObjectType, w.RecordID, w.Status,
		w.SubmittedByID, w.ApproverID, w.Comments)
	return err
}

// FindWorkItemByID retrieves a work item within the org
func (r *ApprovalRepository) FindWorkItemByID(ctx context.Context, exec Executor, orgID, id string) (*models.ApprovalWorkItem, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1", workItemColumns, TableApprovalWorkItems)
	w, err := scanWorkItem(exec.QueryRowContext(ctx, query, orgID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return w, err
}

// HasPendingWorkItem reports whether a record already has an open request
func (r *ApprovalRepository) HasPendingWorkItem(ctx context.Context, orgID, objectType, recordID string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`
		SELECT EXISTS(SELECT 1 FROM %s WHERE org_id = ? AND object_type = ? AND record_id = ? AND status = ?)
	`, TableApprovalWorkItems)

	err := r.db.QueryRowContext(ctx, query, orgID, objectType, recordID, models.ApprovalStatusPending).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// FindPendingForApprover lists a user's inbox of pending requests
func (r *ApprovalRepository) FindPendingForApprover(ctx context.Context, orgID, approverID string) ([]*models.ApprovalWorkItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE org_id = ? AND approver_id = ? AND status = ?
		ORDER BY created_date ASC
	`, workItemColumns, TableApprovalWorkItems)

	rows, err := r.db.QueryContext(ctx, query, orgID, approverID, models.ApprovalStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*models.ApprovalWorkItem, 0)
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

// FindForRecord lists every request ever raised for a record, newest first
func (r *ApprovalRepository) FindForRecord(ctx context.Context, orgID, objectType, recordID string) ([]*models.ApprovalWorkItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE org_id = ? AND object_type = ? AND record_id = ?
		ORDER BY created_date DESC
	`, workItemColumns, TableApprovalWorkItems)

	rows, err := r.db.QueryContext(ctx, query, orgID, objectType, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*models.ApprovalWorkItem, 0)
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

// Decide stamps the decision on a pending work item. The status guard keeps
// two approvers from deciding the same item twice.
func (r *ApprovalRepository) Decide(ctx context.Context, exec Executor, orgID, id, status, decidedByID, comments string, decidedAt time.Time) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = ?, decided_by_id = ?, comments = ?, decided_date = ?, modified_date = NOW()
		WHERE org_id = ? AND id = ? AND status = ?
	`, TableApprovalWorkItems)

	result, err := exec.ExecContext(ctx, query,
		status, decidedByID, comments, decidedAt, orgID, id, models.ApprovalStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanWorkItem(s rowScanner) (*models.ApprovalWorkItem, error) {
	var w models.ApprovalWorkItem
	var decidedByID sql.NullString
	var decidedDate sql.NullTime

	err := s.Scan(&w.ID, &w.OrgID, &w.ProcessID, &w.ObjectType, &w.RecordID, &w.Status,
		&w.SubmittedByID, &w.ApproverID, &w.Comments, &decidedByID, &decidedDate,
		&w.CreatedDate, &w.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if decidedByID.Valid {
		w.DecidedByID = &decidedByID.String
	}
	if decidedDate.Valid {
		w.DecidedDate = &decidedDate.Time
	}
	return &w, nil
}
