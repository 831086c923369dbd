package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaycrm/backend/internal/domain/models"
)

// PriceBookRepository handles price books and their entries
type PriceBookRepository struct {
	db *sql.DB
}

func NewPriceBookRepository(db *sql.DB) *PriceBookRepository {
	return &PriceBookRepository{db: db}
}

// CreateBook inserts a price book
func (r *PriceBookRepository) CreateBook(ctx context.Context, exec Executor, pb *models.PriceBook) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, name, is_standard, is_active, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, NOW(), NOW())
	`, TablePriceBooks)

	_, err := exec.ExecContext(ctx, query, pb.ID, pb.OrgID, pb.Name, pb.IsStandard, pb.IsActive)
	return err
}

// FindBookByID retrieves a price book within the org
func (r *PriceBookRepository) FindBookByID(ctx context.Context, orgID, id string) (*models.PriceBook, error) {
	query := fmt.Sprintf(`
		SELECT id, org_id, name, is_standard, is_active, created_date, modified_date
		FROM %s WHERE org_id = ? AND id = ? LIMIT 1
	`, TablePriceBooks)

	var pb models.PriceBook
	err := r.db.QueryRowContext(ctx, query, orgID, id).Scan(
		&pb.ID, &pb.OrgID, &pb.Name, &pb.IsStandard, &pb.IsActive,
		&pb.CreatedDate, &pb.ModifiedDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &pb, nil
}

// FindStandardBook retrieves the org's standard price book
func (r *PriceBookRepository) FindStandardBook(ctx context.Context, orgID string) (*models.PriceBook, error) {
	query := fmt.Sprintf(`
		SELECT id, org_id, name, is_standard, is_active, created_date, modified_date
		FROM %s WHERE org_id = ? AND is_standard = TRUE LIMIT 1
	`, TablePriceBooks)

	var pb models.PriceBook
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(
		&pb.ID, &pb.OrgID, &pb.Name, &pb.IsStandard, &pb.IsActive,
		&pb.CreatedDate, &pb.ModifiedDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &pb, nil
}

// FindAllBooks lists price books of the org
func (r *PriceBookRepository) FindAllBooks(ctx context.Context, orgID string) ([]*models.PriceBook, error) {
	query := fmt.Sprintf(`
		SELECT id, org_id, name, is_standard, is_active, created_date, modified_date
		FROM %s WHERE org_id = ?
		ORDER BY is_standard DESC, created_date ASC
	`, TablePriceBooks)

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]*models.PriceBook, 0)
	for rows.Next() {
		var pb models.PriceBook
		if err := rows.Scan(&pb.ID, &pb.OrgID, &pb.Name, &pb.IsStandard, &pb.IsActive,
			&pb.CreatedDate, &pb.ModifiedDate); err != nil {
			return nil, err
		}
		books = append(books, &pb)
	}
	return books, rows.Err()
}

// CreateEntry inserts a price book entry
func (r *PriceBookRepository) CreateEntry(ctx context.Context, exec Executor, e *models.PriceBookEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, price_book_id, product_code, product_name, unit_price, currency,
			is_active, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TablePriceBookEntries)

	_, err := exec.ExecContext(ctx, query,
		e.ID, e.OrgID, e.PriceBookID, e.ProductCode, e.ProductName,
		e.UnitPrice, e.Currency, e.IsActive)
	return err
}

// FindEntryByID retrieves an entry within the org
func (r *PriceBookRepository) FindEntryByID(ctx context.Context, exec Executor, orgID, id string) (*models.PriceBookEntry, error) {
	query := fmt.Sprintf(`
		SELECT id, org_id, price_book_id, product_code, product_name, unit_price, currency,
			is_active, created_date, modified_date
		FROM %s WHERE org_id = ? AND id = ? LIMIT 1
	`, TablePriceBookEntries)

	var e models.PriceBookEntry
	err := exec.QueryRowContext(ctx, query, orgID, id).Scan(
		&e.ID, &e.OrgID, &e.PriceBookID, &e.ProductCode, &e.ProductName,
		&e.UnitPrice, &e.Currency, &e.IsActive, &e.CreatedDate, &e.ModifiedDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// FindEntries lists the active entries of one book
func (r *PriceBookRepository) FindEntries(ctx context.Context, orgID, bookID string) ([]*models.PriceBookEntry, error) {
	query := fmt.Sprintf(`
		SELECT id, org_id, price_book_id, product_code, product_name, unit_price, currency,
			is_active, created_date, modified_date
		FROM %s WHERE org_id = ? AND price_book_id = ? AND is_active = TRUE
		ORDER BY product_code ASC
	`, TablePriceBookEntries)

	rows, err := r.db.QueryContext(ctx, query, orgID, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.PriceBookEntry, 0)
	for rows.Next() {
		var e models.PriceBookEntry
		if err := rows.Scan(&e.ID, &e.OrgID, &e.PriceBookID, &e.ProductCode, &e.ProductName,
			&e.UnitPrice, &e.Currency, &e.IsActive, &e.CreatedDate, &e.ModifiedDate); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// UpdateEntry applies a partial update to an entry
func (r *PriceBookRepository) UpdateEntry(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TablePriceBookEntries, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}
