package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaycrm/backend/internal/domain/models"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, org_id, owner_id, name, domain, industry, employees, annual_revenue,
		billing_country, billing_state, territory_id, created_date, modified_date`

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, exec Executor, a *models.Account) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, owner_id, name, domain, industry, employees, annual_revenue,
			billing_country, billing_state, territory_id, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableAccounts)

	_, err := exec.ExecContext(ctx, query,
		a.ID, a.OrgID, a.OwnerID, a.Name, a.Domain, a.Industry, a.Employees,
		a.AnnualRevenue, a.BillingCountry, a.BillingState, a.TerritoryID)
	return err
}

// FindByID retrieves an account within the org
func (r *AccountRepository) FindByID(ctx context.Context, exec Executor, orgID, id string) (*models.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1", accountColumns, TableAccounts)
	a, err := scanAccount(exec.QueryRowContext(ctx, query, orgID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// FindByName retrieves an account by exact name, used for dedupe during
// lead conversion
func (r *AccountRepository) FindByName(ctx context.Context, exec Executor, orgID, name string) (*models.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND name = ? LIMIT 1", accountColumns, TableAccounts)
	a, err := scanAccount(exec.QueryRowContext(ctx, query, orgID, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// FindByDomain retrieves an account by website domain. Conversion prefers
// a domain match over a name match.
func (r *AccountRepository) FindByDomain(ctx context.Context, exec Executor, orgID, domain string) (*models.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND domain = ? LIMIT 1", accountColumns, TableAccounts)
	a, err := scanAccount(exec.QueryRowContext(ctx, query, orgID, domain))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// FindAll lists accounts of the org, newest first
func (r *AccountRepository) FindAll(ctx context.Context, orgID string, limit, offset int) ([]*models.Account, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE org_id = ?
		ORDER BY created_date DESC LIMIT ? OFFSET ?
	`, accountColumns, TableAccounts)

	rows, err := r.db.QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Update applies a partial update to an account
func (r *AccountRepository) Update(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TableAccounts, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

// Delete removes an account
func (r *AccountRepository) Delete(ctx context.Context, exec Executor, orgID, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE org_id = ? AND id = ?", TableAccounts)
	_, err := exec.ExecContext(ctx, query, orgID, id)
	return err
}

func scanAccount(s rowScanner) (*models.Account, error) {
	var a models.Account
	var territoryID sql.NullString

	err := s.Scan(&a.ID, &a.OrgID, &a.OwnerID, &a.Name, &a.Domain, &a.Industry,
		&a.Employees, &a.AnnualRevenue, &a.BillingCountry, &a.BillingState,
		&territoryID, &a.CreatedDate, &a.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if territoryID.Valid {
		a.TerritoryID = &territoryID.String
	}
	return &a, nil
}
