package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaycrm/backend/internal/domain/models"
)

// UserRepository handles organizations and users
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateOrganization inserts a new tenant
func (r *UserRepository) CreateOrganization(ctx context.Context, exec Executor, org *models.Organization) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, domain, plan, created_date)
		VALUES (?, ?, ?, ?, NOW())
	`, TableOrganizations)

	_, err := exec.ExecContext(ctx, query, org.ID, org.Name, org.Domain, org.Plan)
	return err
}

// GetOrganizationByID fetches a tenant by ID
func (r *UserRepository) GetOrganizationByID(ctx context.Context, id string) (*models.Organization, error) {
	query := fmt.Sprintf(`
		SELECT id, name, domain, plan, created_date
		FROM %s WHERE id = ? LIMIT 1
	`, TableOrganizations)

	var org models.Organization
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Domain, &org.Plan, &org.CreatedDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

// ListOrganizationIDs returns every tenant ID. Cron-driven agents iterate
// all orgs since a schedule fires without tenant context.
func (r *UserRepository) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT id FROM %s ORDER BY created_date ASC", TableOrganizations)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateUser inserts a user into an organization
func (r *UserRepository) CreateUser(ctx context.Context, exec Executor, user *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, name, email, password_hash, profile, manager_id, is_active, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW())
	`, TableUsers)

	_, err := exec.ExecContext(ctx, query,
		user.ID, user.OrgID, user.Name, user.Email, user.PasswordHash,
		user.Profile, user.ManagerID, user.IsActive)
	return err
}

// CheckEmailExists reports whether any user has the given email.
// Emails are globally unique since login does not carry an org.
func (r *UserRepository) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE email = ?)", TableUsers)
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// FindByEmail retrieves a user and their password hash by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, org_id, name, email, password_hash, profile, manager_id, is_active, created_date
		FROM %s WHERE email = ? LIMIT 1
	`, TableUsers)

	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// FindByID retrieves a user by ID within the org
func (r *UserRepository) FindByID(ctx context.Context, orgID, id string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, org_id, name, email, password_hash, profile, manager_id, is_active, created_date
		FROM %s WHERE org_id = ? AND id = ? LIMIT 1
	`, TableUsers)

	return r.scanUser(r.db.QueryRowContext(ctx, query, orgID, id))
}

// FindAll lists users of the org, newest first
func (r *UserRepository) FindAll(ctx context.Context, orgID string) ([]*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, org_id, name, email, password_hash, profile, manager_id, is_active, created_date
		FROM %s WHERE org_id = ?
		ORDER BY created_date DESC
	`, TableUsers)

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := r.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// FindAdmins lists org administrators (fallback approvers when a user has
// no manager)
func (r *UserRepository) FindAdmins(ctx context.Context, orgID string) ([]*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, org_id, name, email, password_hash, profile, manager_id, is_active, created_date
		FROM %s WHERE org_id = ? AND profile = ? AND is_active = TRUE
		ORDER BY created_date ASC
	`, TableUsers)

	rows, err := r.db.QueryContext(ctx, query, orgID, models.ProfileOrgAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := r.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update applies a partial update to a user record
func (r *UserRepository) Update(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TableUsers, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var managerID sql.NullString

	err := row.Scan(&u.ID, &u.OrgID, &u.Name, &u.Email, &u.PasswordHash,
		&u.Profile, &managerID, &u.IsActive, &u.CreatedDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if managerID.Valid {
		u.ManagerID = &managerID.String
	}
	return &u, nil
}

func (r *UserRepository) scanUserRow(rows *sql.Rows) (*models.User, error) {
	var u models.User
	var managerID sql.NullString

	err := rows.Scan(&u.ID, &u.OrgID, &u.Name, &u.Email, &u.PasswordHash,
		&u.Profile, &managerID, &u.IsActive, &u.CreatedDate)
	if err != nil {
		return nil, err
	}

	if managerID.Valid {
		u.ManagerID = &managerID.String
	}
	return &u, nil
}
