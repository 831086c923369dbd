package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaycrm/backend/internal/domain/models"
)

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `id, org_id, owner_id, account_id, first_name, last_name, email, phone, title,
		created_date, modified_date`

// Create inserts a new contact
func (r *ContactRepository) Create(ctx context.Context, exec Executor, c *models.Contact) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, owner_id, account_id, first_name, last_name, email, phone, title,
			created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableContacts)

	_, err := exec.ExecContext(ctx, query,
		c.ID, c.OrgID, c.OwnerID, c.AccountID, c.FirstName, c.LastName,
		c.Email, c.Phone, c.Title)
	return err
}

// FindByID retrieves a contact within the org
func (r *ContactRepository) FindByID(ctx context.Context, exec Executor, orgID, id string) (*models.Contact, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1", contactColumns, TableContacts)
	c, err := scanContact(exec.QueryRowContext(ctx, query, orgID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// FindByEmail retrieves a contact by email, used for dedupe and RSVP lookup
func (r *ContactRepository) FindByEmail(ctx context.Context, exec Executor, orgID, email string) (*models.Contact, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND email = ? LIMIT 1", contactColumns, TableContacts)
	c, err := scanContact(exec.QueryRowContext(ctx, query, orgID, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// FindAll lists contacts, optionally restricted to one account
func (r *ContactRepository) FindAll(ctx context.Context, orgID, accountID string, limit, offset int) ([]*models.Contact, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ?", contactColumns, TableContacts)
	args := []interface{}{orgID}

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

	contacts := make([]*models.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Update applies a partial update to a contact
func (r *ContactRepository) Update(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TableContacts, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

// Delete removes a contact
func (r *ContactRepository) Delete(ctx context.Context, exec Executor, orgID, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE org_id = ? AND id = ?", TableContacts)
	_, err := exec.ExecContext(ctx, query, orgID, id)
	return err
}

func scanContact(s rowScanner) (*models.Contact, error) {
	var c models.Contact
	var accountID sql.NullString

	err := s.Scan(&c.ID, &c.OrgID, &c.OwnerID, &accountID, &c.FirstName, &c.LastName,
		&c.Email, &c.Phone, &c.Title, &c.CreatedDate, &c.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if accountID.Valid {
		c.AccountID = &accountID.String
	}
	return &c, nil
}
