package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaycrm/backend/internal/domain/models"
)

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `id, org_id, owner_id, first_name, last_name, company, email, phone, website,
		title, status, source, score, industry, employees, notes,
		converted_contact_id, converted_account_id, converted_opportunity_id, enriched_at,
		created_date, modified_date`

// Create inserts a new lead
func (r *LeadRepository) Create(ctx context.Context, exec Executor, lead *models.Lead) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, owner_id, first_name, last_name, company, email, phone, website,
			title, status, source, score, industry, employees, notes, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableLeads)

	_, err := exec.ExecContext(ctx, query,
		lead.ID, lead.OrgID, lead.OwnerID, lead.FirstName, lead.LastName, lead.Company,
		lead.Email, lead.Phone, lead.Website, lead.Title, lead.Status, lead.Source,
		lead.Score, lead.Industry, lead.Employees, lead.Notes)
	return err
}

// FindByID retrieves a lead within the org
func (r *LeadRepository) FindByID(ctx context.Context, exec Executor, orgID, id string) (*models.Lead, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1
	`, leadColumns, TableLeads)

	return scanLead(exec.QueryRowContext(ctx, query, orgID, id))
}

// FindAll lists leads of the org, optionally filtered by status
func (r *LeadRepository) FindAll(ctx context.Context, orgID, status string, limit, offset int) ([]*models.Lead, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE org_id = ?`, leadColumns, TableLeads)
	args := []interface{}{orgID}

	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_date DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]*models.Lead, 0)
	for rows.Next() {
		l, err := scanLeadRows(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// FindStale returns non-converted leads without enrichment data, oldest
// first. Used by the enrichment sweep agent.
func (r *LeadRepository) FindStale(ctx context.Context, orgID string, limit int) ([]*models.Lead, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE org_id = ? AND status NOT IN (?, ?) AND enriched_at IS NULL
		ORDER BY created_date ASC
		LIMIT ?
	`, leadColumns, TableLeads)

	rows, err := r.db.QueryContext(ctx, query, orgID,
		models.LeadStatusConverted, models.LeadStatusUnqualified, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]*models.Lead, 0)
	for rows.Next() {
		l, err := scanLeadRows(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// Update applies a partial update to a lead
func (r *LeadRepository) Update(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TableLeads, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

// MarkConverted records the conversion results on the lead. Runs inside the
// conversion transaction.
func (r *LeadRepository) MarkConverted(ctx context.Context, exec Executor, orgID, id, contactID, accountID string, opportunityID *string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = ?, converted_contact_id = ?, converted_account_id = ?,
			converted_opportunity_id = ?, modified_date = NOW()
		WHERE org_id = ? AND id = ?
	`, TableLeads)

	_, err := exec.ExecContext(ctx, query,
		models.LeadStatusConverted, contactID, accountID, opportunityID, orgID, id)
	return err
}

// Delete removes a lead
func (r *LeadRepository) Delete(ctx context.Context, exec Executor, orgID, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE org_id = ? AND id = ?", TableLeads)
	_, err := exec.ExecContext(ctx, query, orgID, id)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLeadFields(s rowScanner) (*models.Lead, error) {
	var l models.Lead
	var convertedContact, convertedAccount, convertedOpp sql.NullString
	var enrichedAt sql.NullTime

	err := s.Scan(&l.ID, &l.OrgID, &l.OwnerID, &l.FirstName, &l.LastName, &l.Company,
		&l.Email, &l.Phone, &l.Website, &l.Title, &l.Status, &l.Source,
		&l.Score, &l.Industry, &l.Employees, &l.Notes,
		&convertedContact, &convertedAccount, &convertedOpp, &enrichedAt,
		&l.CreatedDate, &l.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if convertedContact.Valid {
		l.ConvertedContactID = &convertedContact.String
	}
	if convertedAccount.Valid {
		l.ConvertedAccountID = &convertedAccount.String
	}
	if convertedOpp.Valid {
		l.ConvertedOpportunityID = &convertedOpp.String
	}
	if enrichedAt.Valid {
		l.EnrichedAt = &enrichedAt.Time
	}
	return &l, nil
}

func scanLead(row *sql.Row) (*models.Lead, error) {
	l, err := scanLeadFields(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func scanLeadRows(rows *sql.Rows) (*models.Lead, error) {
	return scanLeadFields(rows)
}
