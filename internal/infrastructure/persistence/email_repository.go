package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/relaycrm/backend/internal/domain/models"
)

// EmailRepository is the transactional email log. Queued rows are drained
// by the email worker.
type EmailRepository struct {
	db *sql.DB
}

func NewEmailRepository(db *sql.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

const emailColumns = `id, org_id, to_address, subject, body, ics, status, provider, attempts,
		last_error, related_type, related_id, sent_at, created_date`

// Enqueue inserts a queued message, usually inside the caller's transaction
func (r *EmailRepository) Enqueue(ctx context.Context, exec Executor, m *models.EmailMessage) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, to_address, subject, body, ics, status, provider, attempts,
			last_error, related_type, related_id, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, '', 0, '', ?, ?, NOW())
	`, TableEmailMessages)

	_, err := exec.ExecContext(ctx, query,
		m.ID, m.OrgID, m.ToAddress, m.Subject, m.Body, m.ICS, models.EmailStatusQueued,
		m.RelatedType, m.RelatedID)
	return err
}

// FindQueued returns queued messages oldest first
func (r *EmailRepository) FindQueued(ctx context.Context, limit int) ([]*models.EmailMessage, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE status = ?
		ORDER BY created_date ASC
		LIMIT ?
	`, emailColumns, TableEmailMessages)

	rows, err := r.db.QueryContext(ctx, query, models.EmailStatusQueued, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*models.EmailMessage, 0)
	for rows.Next() {
		m, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// FindForRecord lists the email history of a record
func (r *EmailRepository) FindForRecord(ctx context.Context, orgID, relatedType, relatedID string) ([]*models.EmailMessage, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE org_id = ? AND related_type = ? AND related_id = ?
		ORDER BY created_date DESC
	`, emailColumns, TableEmailMessages)

	rows, err := r.db.QueryContext(ctx, query, orgID, relatedType, relatedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*models.EmailMessage, 0)
	for rows.Next() {
		m, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkSent stamps a successful delivery
func (r *EmailRepository) MarkSent(ctx context.Context, id, provider string, sentAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = ?, provider = ?, sent_at = ?, attempts = attempts + 1
		WHERE id = ?
	`, TableEmailMessages)

	_, err := r.db.ExecContext(ctx, query, models.EmailStatusSent, provider, sentAt, id)
	return err
}

// MarkFailed records a delivery failure. Messages under the attempt cap go
// back to Queued for another pass.
func (r *EmailRepository) MarkFailed(ctx context.Context, id, errMessage string, requeue bool) error {
	status := models.EmailStatusFailed
	if requeue {
		status = models.EmailStatusQueued
	}

	query := fmt.Sprintf(`
		UPDATE %s SET status = ?, last_error = ?, attempts = attempts + 1
		WHERE id = ?
	`, TableEmailMessages)

	_, err := r.db.ExecContext(ctx, query, status, errMessage, id)
	return err
}

func scanEmail(s rowScanner) (*models.EmailMessage, error) {
	var m models.EmailMessage
	var sentAt sql.NullTime

	err := s.Scan(&m.ID, &m.OrgID, &m.ToAddress, &m.Subject, &m.Body, &m.ICS, &m.Status,
		&m.Provider, &m.Attempts, &m.LastError, &m.RelatedType, &m.RelatedID,
		&sentAt, &m.CreatedDate)
	if err != nil {
		return nil, err
	}

	if sentAt.Valid {
		m.SentAt = &sentAt.Time
	}
	return &m, nil
}
