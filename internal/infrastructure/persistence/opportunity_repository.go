package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/relaycrm/backend/internal/domain/models"
)

type OpportunityRepository struct {
	db *sql.DB
}

func NewOpportunityRepository(db *sql.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

const opportunityColumns = `id, org_id, owner_id, account_id, name, stage, amount, probability,
		close_date, closed_at, created_date, modified_date`

// Create inserts a new opportunity
func (r *OpportunityRepository) Create(ctx context.Context, exec Executor, o *models.Opportunity) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, owner_id, account_id, name, stage, amount, probability,
			close_date, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableOpportunities)

	_, err := exec.ExecContext(ctx, query,
		o.ID, o.OrgID, o.OwnerID, o.AccountID, o.Name, o.Stage,
		o.Amount, o.Probability, o.CloseDate)
	return err
}

// FindByID retrieves an opportunity within the org
func (r *OpportunityRepository) FindByID(ctx context.Context, exec Executor, orgID, id string) (*models.Opportunity, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1", opportunityColumns, TableOpportunities)
	o, err := scanOpportunity(exec.QueryRowContext(ctx, query, orgID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// FindAll lists opportunities, optionally filtered by stage or account
func (r *OpportunityRepository) FindAll(ctx context.Context, orgID, stage, accountID string, limit, offset int) ([]*models.Opportunity, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ?", opportunityColumns, TableOpportunities)
	args := []interface{}{orgID}

	if stage != "" {
		query += " AND stage = ?"
		args = append(args, stage)
	}
	if accountID != "" {
		query += " AND account_id = ?"
		args = append(args, accountID)
	}
	query += " ORDER BY created_date DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	opps := make([]*models.Opportunity, 0)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

// FindOpenByOwner lists open (not closed) opportunities for a single owner.
// Used by the pipeline digest agent.
func (r *OpportunityRepository) FindOpenByOwner(ctx context.Context, orgID, ownerID string) ([]*models.Opportunity, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE org_id = ? AND owner_id = ? AND stage NOT IN (?, ?)
		ORDER BY close_date ASC
	`, opportunityColumns, TableOpportunities)

	rows, err := r.db.QueryContext(ctx, query, orgID, ownerID,
		models.StageClosedWon, models.StageClosedLost)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	opps := make([]*models.Opportunity, 0)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

// Update applies a partial update to an opportunity
func (r *OpportunityRepository) Update(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TableOpportunities, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

// MarkClosed stamps the terminal stage and closed_at atomically
func (r *OpportunityRepository) MarkClosed(ctx context.Context, exec Executor, orgID, id, stage string, closedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET stage = ?, probability = ?, closed_at = ?, modified_date = NOW()
		WHERE org_id = ? AND id = ?
	`, TableOpportunities)

	_, err := exec.ExecContext(ctx, query, stage, models.StageProbability[stage], closedAt, orgID, id)
	return err
}

// Delete removes an opportunity
func (r *OpportunityRepository) Delete(ctx context.Context, exec Executor, orgID, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE org_id = ? AND id = ?", TableOpportunities)
	_, err := exec.ExecContext(ctx, query, orgID, id)
	return err
}

func scanOpportunity(s rowScanner) (*models.Opportunity, error) {
	var o models.Opportunity
	var closeDate, closedAt sql.NullTime

	err := s.Scan(&o.ID, &o.OrgID, &o.OwnerID, &o.AccountID, &o.Name, &o.Stage,
		&o.Amount, &o.Probability, &closeDate, &closedAt,
		&o.CreatedDate, &o.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if closeDate.Valid {
		o.CloseDate = &closeDate.Time
	}
	if closedAt.Valid {
		o.ClosedAt = &closedAt.Time
	}
	return &o, nil
}
