package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaycrm/backend/internal/domain/models"
)

// NotificationRepository handles in-app notifications

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification
func (r *NotificationRepository) Create(ctx context.Context, exec Executor, n *models.Notification) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, recipient_id, title, body, link, type, is_read, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, FALSE, NOW())
	`, TableNotifications)

	_, err := exec.ExecContext(ctx, query,
		n.ID, n.OrgID, n.RecipientID, n.Title, n.Body, n.Link, n.Type)
	return err
}

// FindForRecipient lists a user's notifications, newest first
func (r *NotificationRepository) FindForRecipient(ctx context.Context, orgID, recipientID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := fmt.Sprintf(`
		SELECT id, org_id, recipient_id, title, body, link, type, is_read, created_date
		FROM %s WHERE org_id = ? AND recipient_id = ?
	`, TableNotifications)
	args := []interface{}{orgID, recipientID}

	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY created_date DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.OrgID, &n.RecipientID, &n.Title, &n.Body, &n.Link,
			&n.Type, &n.IsRead, &n.CreatedDate); err != nil {
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// CountUnread returns the unread badge count
func (r *NotificationRepository) CountUnread(ctx context.Context, orgID, recipientID string) (int, error) {
	var count int
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE org_id = ? AND recipient_id = ? AND is_read = FALSE
	`, TableNotifications)

	err := r.db.QueryRowContext(ctx, query, orgID, recipientID).Scan(&count)
	return count, err
}

// MarkRead marks a single notification read. Scoped to the recipient so a
// user cannot mark another user's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, orgID, recipientID, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET is_read = TRUE WHERE org_id = ? AND recipient_id = ? AND id = ?
	`, TableNotifications)

	_, err := r.db.ExecContext(ctx, query, orgID, recipientID, id)
	return err
}

// MarkAllRead marks all of a user's notifications read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, orgID, recipientID string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET is_read = TRUE WHERE org_id = ? AND recipient_id = ? AND is_read = FALSE
	`, TableNotifications)

	result, err := r.db.ExecContext(ctx, query, orgID, recipientID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
