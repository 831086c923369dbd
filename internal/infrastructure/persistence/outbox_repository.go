package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/pkg/utils"
)

// OutboxRepository handles database operations for the outbox pattern
type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue inserts a new event into the outbox. Callers pass their
// transaction as exec so the event commits atomically with the business row.
func (r *OutboxRepository) Enqueue(ctx context.Context, exec Executor, eventType string, payload interface{}) (string, error) {
	id := utils.GenerateID()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, event_type, payload, status, retry_count, last_error, created_date)
		VALUES (?, ?, ?, ?, 0, '', NOW())
	`, TableOutboxEvents)

	_, err = exec.ExecContext(ctx, query, id, eventType, payloadJSON, OutboxStatusPending)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue event: %w", err)
	}

	return id, nil
}

// GetPendingEvents retrieves pending events ordered by creation time
func (r *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*models.OutboxEvent, error) {
	query := fmt.Sprintf(`
		SELECT id, event_type, payload, retry_count
		FROM %s
		WHERE status = ?
		ORDER BY created_date ASC
		LIMIT ?
	`, TableOutboxEvents)

	rows, err := r.db.QueryContext(ctx, query, OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.OutboxEvent, 0)
	for rows.Next() {
		var e models.OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload, &e.RetryCount); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// ClaimEvent attempts to lock a specific event for processing
func (r *OutboxRepository) ClaimEvent(ctx context.Context, exec Executor, id string) (string, error) {
	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE id = ? AND status = ?
		FOR UPDATE SKIP LOCKED
	`, TableOutboxEvents)

	var claimedID string
	err := exec.QueryRowContext(ctx, query, id, OutboxStatusPending).Scan(&claimedID)
	if err == sql.ErrNoRows {
		return "", nil // Already claimed
	}
	if err != nil {
		return "", err
	}
	return claimedID, nil
}

// MarkCompleted stamps a successfully published event
func (r *OutboxRepository) MarkCompleted(ctx context.Context, exec Executor, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = ?, processed_date = NOW()
		WHERE id = ?
	`, TableOutboxEvents)

	_, err := exec.ExecContext(ctx, query, OutboxStatusCompleted, id)
	return err
}

// MarkFailed parks an event that exhausted its retries
func (r *OutboxRepository) MarkFailed(ctx context.Context, exec Executor, id, errMessage string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = ?, last_error = ?
		WHERE id = ?
	`, TableOutboxEvents)

	_, err := exec.ExecContext(ctx, query, OutboxStatusFailed, errMessage, id)
	return err
}

// IncrementRetry increments the retry count and records the error
func (r *OutboxRepository) IncrementRetry(ctx context.Context, exec Executor, id string, newCount int, errMessage string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET retry_count = ?, last_error = ?
		WHERE id = ?
	`, TableOutboxEvents)

	_, err := exec.ExecContext(ctx, query, newCount, errMessage, id)
	return err
}

// CleanupProcessed deletes old completed events
func (r *OutboxRepository) CleanupProcessed(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE status = ? AND processed_date < ?
	`, TableOutboxEvents)

	result, err := r.db.ExecContext(ctx, query, OutboxStatusCompleted, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
