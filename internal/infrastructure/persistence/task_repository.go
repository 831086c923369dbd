package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaycrm/backend/internal/domain/models"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, org_id, owner_id, subject, status, due_date, related_type, related_id,
		created_date, modified_date`

// Create inserts a task
func (r *TaskRepository) Create(ctx context.Context, exec Executor, t *models.Task) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, owner_id, subject, status, due_date, related_type, related_id,
			created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableTasks)

	_, err := exec.ExecContext(ctx, query,
		t.ID, t.OrgID, t.OwnerID, t.Subject, t.Status, t.DueDate, t.RelatedType, t.RelatedID)
	return err
}

// FindByID retrieves a task within the org
func (r *TaskRepository) FindByID(ctx context.Context, orgID, id string) (*models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1", taskColumns, TableTasks)
	t, err := scanTask(r.db.QueryRowContext(ctx, query, orgID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// FindForOwner lists a user's tasks, open ones first then by due date
func (r *TaskRepository) FindForOwner(ctx context.Context, orgID, ownerID, status string, limit int) ([]*models.Task, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND owner_id = ?", taskColumns, TableTasks)
	args := []interface{}{orgID, ownerID}

	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY status ASC, due_date ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update applies a partial update to a task
func (r *TaskRepository) Update(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TableTasks, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

func scanTask(s rowScanner) (*models.Task, error) {
	var t models.Task
	var dueDate sql.NullTime

	err := s.Scan(&t.ID, &t.OrgID, &t.OwnerID, &t.Subject, &t.Status, &dueDate,
		&t.RelatedType, &t.RelatedID, &t.CreatedDate, &t.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	return &t, nil
}
