package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaycrm/backend/internal/domain/models"
)

type TerritoryRepository struct {
	db *sql.DB
}

func NewTerritoryRepository(db *sql.DB) *TerritoryRepository {
	return &TerritoryRepository{db: db}
}

const territoryColumns = `id, org_id, name, rule, owner_id, priority, is_active,
		created_date, modified_date`

// Create inserts a territory
func (r *TerritoryRepository) Create(ctx context.Context, exec Executor, t *models.Territory) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, name, rule, owner_id, priority, is_active, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableTerritories)

	_, err := exec.ExecContext(ctx, query,
		t.ID, t.OrgID, t.Name, t.Rule, t.OwnerID, t.Priority, t.IsActive)
	return err
}

// FindByID retrieves a territory within the org
func (r *TerritoryRepository) FindByID(ctx context.Context, orgID, id string) (*models.Territory, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1", territoryColumns, TableTerritories)

	var t models.Territory
	err := r.db.QueryRowContext(ctx, query, orgID, id).Scan(
		&t.ID, &t.OrgID, &t.Name, &t.Rule, &t.OwnerID, &t.Priority, &t.IsActive,
		&t.CreatedDate, &t.ModifiedDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// FindActive lists active territories ordered by priority (lowest number
// wins ties during assignment)
func (r *TerritoryRepository) FindActive(ctx context.Context, orgID string) ([]*models.Territory, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE org_id = ? AND is_active = TRUE
		ORDER BY priority ASC, created_date ASC
	`, territoryColumns, TableTerritories)

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	territories := make([]*models.Territory, 0)
	for rows.Next() {
		var t models.Territory
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Name, &t.Rule, &t.OwnerID, &t.Priority,
			&t.IsActive, &t.CreatedDate, &t.ModifiedDate); err != nil {
			return nil, err
		}
		territories = append(territories, &t)
	}
	return territories, rows.Err()
}

// Update applies a partial update to a territory
func (r *TerritoryRepository) Update(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TableTerritories, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

// Delete removes a territory
func (r *TerritoryRepository) Delete(ctx context.Context, exec Executor, orgID, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE org_id = ? AND id = ?", TableTerritories)
	_, err := exec.ExecContext(ctx, query, orgID, id)
	return err
}
