package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaycrm/backend/internal/domain/models"
)

// QuoteRepository handles quotes and their lines. Lines are replaced as a
// set whenever the quote is repriced, inside the caller's transaction.
type QuoteRepository struct {
	db *sql.DB
}

func NewQuoteRepository(db *sql.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

const quoteColumns = `id, org_id, owner_id, opportunity_id, price_book_id, name, status,
		subtotal, discount_pct, total, expires_on, created_date, modified_date`

// Create inserts a quote header
func (r *QuoteRepository) Create(ctx context.Context, exec Executor, q *models.Quote) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, owner_id, opportunity_id, price_book_id, name, status,
			subtotal, discount_pct, total, expires_on, created_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, TableQuotes)

	_, err := exec.ExecContext(ctx, query,
		q.ID, q.OrgID, q.OwnerID, q.OpportunityID, q.PriceBookID, q.Name, q.Status,
		q.Subtotal, q.DiscountPct, q.Total, q.ExpiresOn)
	return err
}

// FindByID retrieves a quote header within the org
func (r *QuoteRepository) FindByID(ctx context.Context, exec Executor, orgID, id string) (*models.Quote, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE org_id = ? AND id = ? LIMIT 1", quoteColumns, TableQuotes)
	q, err := scanQuote(exec.QueryRowContext(ctx, query, orgID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return q, err
}

// FindByOpportunity lists quotes on an opportunity, newest first
func (r *QuoteRepository) FindByOpportunity(ctx context.Context, orgID, opportunityID string) ([]*models.Quote, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE org_id = ? AND opportunity_id = ?
		ORDER BY created_date DESC
	`, quoteColumns, TableQuotes)

	rows, err := r.db.QueryContext(ctx, query, orgID, opportunityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := make([]*models.Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// Update applies a partial update to a quote header
func (r *QuoteRepository) Update(ctx context.Context, exec Executor, orgID, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClause, args := buildSetClause(updates)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE org_id = ? AND id = ?", TableQuotes, setClause)
	args = append(args, orgID, id)

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

// ReplaceLines deletes and reinserts the quote's lines. Must run inside the
// repricing transaction so totals and lines stay consistent.
func (r *QuoteRepository) ReplaceLines(ctx context.Context, exec Executor, quoteID string, lines []models.QuoteLine) error {
	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE quote_id = ?", TableQuoteLines)
	if _, err := exec.ExecContext(ctx, deleteQuery, quoteID); err != nil {
		return err
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (id, quote_id, entry_id, product_code, quantity, unit_price,
			tier_discount_pct, line_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, TableQuoteLines)

	for _, line := range lines {
		if _, err := exec.ExecContext(ctx, insertQuery,
			line.ID, quoteID, line.EntryID, line.ProductCode, line.Quantity,
			line.UnitPrice, line.TierDiscountPct, line.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

// FindLines lists the lines of a quote
func (r *QuoteRepository) FindLines(ctx context.Context, exec Executor, quoteID string) ([]models.QuoteLine, error) {
	query := fmt.Sprintf(`
		SELECT id, quote_id, entry_id, product_code, quantity, unit_price, tier_discount_pct, line_total
		FROM %s WHERE quote_id = ?
		ORDER BY product_code ASC
	`, TableQuoteLines)

	rows, err := exec.QueryContext(ctx, query, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]models.QuoteLine, 0)
	for rows.Next() {
		var l models.QuoteLine
		if err := rows.Scan(&l.ID, &l.QuoteID, &l.EntryID, &l.ProductCode, &l.Quantity,
			&l.UnitPrice, &l.TierDiscountPct, &l.LineTotal); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanQuote(s rowScanner) (*models.Quote, error) {
	var q models.Quote
	var expiresOn sql.NullTime

	err := s.Scan(&q.ID, &q.OrgID, &q.OwnerID, &q.OpportunityID, &q.PriceBookID,
		&q.Name, &q.Status, &q.Subtotal, &q.DiscountPct, &q.Total,
		&expiresOn, &q.CreatedDate, &q.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if expiresOn.Valid {
		q.ExpiresOn = &expiresOn.Time
	}
	return &q, nil
}
