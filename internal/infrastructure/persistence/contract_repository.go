package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/relaycrm/backend/internal/domain/models"
)

type ContractRepository struct {
	db *sql.DB
}

func NewContractRepository(db *sql.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

const contractColumns = `id, org_id, owner_id, account_id, quote_id, name, status, value, term_months,
		start_date, end_date, activated_at, created_date, modified_date`

// Create inserts a contract
func (r *ContractRepository) Create(ctx context.Context, exec Executor, c *models.Contract) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, owner_id, account_id, quote_id, name, status, value, term_months,
			start_date, end_date, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableContracts)

	_, err := exec.ExecContext(ctx, query,
		c.ID, c.OrgID, c.OwnerID, c.AccountID, c.QuoteID, c.Name, c.Status,
		c.Value, c.TermMonths, c.StartDate, c.EndDate)
	return err
}

// FindByID retrieves a contract within the org
func (r *ContractRepository) FindByID(ctx context.Context, exec Executor, orgID, id string) (*models.Contract, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1", contractColumns, TableContracts)
	c, err := scanContract(exec.QueryRowContext(ctx, query, orgID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// FindAll lists contracts, optionally filtered by status or account
func (r *ContractRepository) FindAll(ctx context.Context, orgID, status, accountID string, limit, offset int) ([]*models.Contract, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ?", contractColumns, TableContracts)
	args := []interface{}{orgID}

	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
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

	contracts := make([]*models.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// FindExpiring returns activated contracts whose end date has passed.
// The scheduler's expiry sweep marks these Expired.
func (r *ContractRepository) FindExpiring(ctx context.Context, asOf time.Time, limit int) ([]*models.Contract, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE status = ? AND end_date IS NOT NULL AND end_date < ?
		ORDER BY end_date ASC
		LIMIT ?
	`, contractColumns, TableContracts)

	rows, err := r.db.QueryContext(ctx, query, models.ContractStatusActivated, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contracts := make([]*models.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// Update applies a partial update to a contract
func (r *ContractRepository) Update(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TableContracts, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

func scanContract(s rowScanner) (*models.Contract, error) {
	var c models.Contract
	var quoteID sql.NullString
	var startDate, endDate, activatedAt sql.NullTime

	err := s.Scan(&c.ID, &c.OrgID, &c.OwnerID, &c.AccountID, &quoteID, &c.Name, &c.Status,
		&c.Value, &c.TermMonths, &startDate, &endDate, &activatedAt,
		&c.CreatedDate, &c.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if quoteID.Valid {
		c.QuoteID = &quoteID.String
	}
	if startDate.Valid {
		c.StartDate = &startDate.Time
	}
	if endDate.Valid {
		c.EndDate = &endDate.Time
	}
	if activatedAt.Valid {
		c.ActivatedAt = &activatedAt.Time
	}
	return &c, nil
}
