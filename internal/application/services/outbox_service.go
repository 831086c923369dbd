package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/relaycrm/backend/internal/domain/events"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
)

// MaxOutboxRetries parks an event as failed after this many publish attempts
const MaxOutboxRetries = 5

// OutboxService handles transactional event storage and async publishing.
// Record events are written to the outbox inside the business transaction,
// then the worker publishes them on the event bus. This guarantees an event
// exists if and only if the business row committed.
type OutboxService struct {
	db        *database.Connection
	repo      *persistence.OutboxRepository
	eventBus  *EventBus
	txManager *persistence.TransactionManager

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewOutboxService creates a new OutboxService
func NewOutboxService(db *database.Connection, eventBus *EventBus, txManager *persistence.TransactionManager) *OutboxService {
	return &OutboxService{
		db:        db,
		repo:      persistence.NewOutboxRepository(db.DB()),
		eventBus:  eventBus,
		txManager: txManager,
		stopCh:    make(chan struct{}),
	}
}

// EnqueueEvent stores an event in the outbox table. Uses the transaction
// bound to ctx when one is in flight so the event commits atomically with
// the business operation.
func (os *OutboxService) EnqueueEvent(ctx context.Context, eventType events.EventType, payload interface{}) error {
	if tx := os.txManager.ExtractTx(ctx); tx != nil {
		return os.enqueue(ctx, tx, eventType, payload)
	}
	return os.enqueue(ctx, os.db, eventType, payload)
}

// EnqueueEventTx stores an event using an explicit transaction
func (os *OutboxService) EnqueueEventTx(ctx context.Context, tx *sql.Tx, eventType events.EventType, payload interface{}) error {
	return os.enqueue(ctx, tx, eventType, payload)
}

func (os *OutboxService) enqueue(ctx context.Context, exec persistence.Executor, eventType events.EventType, payload interface{}) error {
	id, err := os.repo.Enqueue(ctx, exec, string(eventType), payload)
	if err != nil {
		return err
	}
	log.Printf("✅ [Outbox] Enqueued event %s (ID: %s)", eventType, id)
	return nil
}

// StartWorker starts the background worker that processes pending outbox
// events at the given interval
func (os *OutboxService) StartWorker(interval time.Duration) {
	os.wg.Add(1)
	go func() {
		defer os.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Printf("📤 Outbox worker started with %v interval", interval)

		for {
			select {
			case <-os.stopCh:
				log.Printf("📤 Outbox worker stopping...")
				return
			case <-ticker.C:
				if err := os.ProcessOutbox(context.Background()); err != nil {
					log.Printf("⚠️ Outbox worker error: %v", err)
				}
			}
		}
	}()
}

// StopWorker stops the background worker gracefully
func (os *OutboxService) StopWorker() {
	os.stopOnce.Do(func() {
		close(os.stopCh)
	})
	os.wg.Wait()
	log.Printf("📤 Outbox worker stopped")
}

// ProcessOutbox publishes all pending events. Each event is claimed and
// marked in its own transaction so a crash mid-batch loses nothing.
func (os *OutboxService) ProcessOutbox(ctx context.Context) error {
	pending, err := os.repo.GetPendingEvents(ctx, 100)
	if err != nil {
		return err
	}

	if len(pending) > 0 {
		log.Printf("🔄 [Outbox] Processing %d pending events", len(pending))
	}

	for _, e := range pending {
		if err := os.processEventAtomic(ctx, e.ID, e.EventType, e.Payload, e.RetryCount); err != nil {
			log.Printf("⚠️ Failed to process outbox event %s: %v", e.ID, err)
		}
	}
	return nil
}

// processEventAtomic claims an event, publishes it, and updates status atomically
func (os *OutboxService) processEventAtomic(ctx context.Context, id, eventType, payloadJSON string, retryCount int) error {
	tx, err := os.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Skip if another worker already claimed it
	claimedID, err := os.repo.ClaimEvent(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("failed to claim event: %w", err)
	}
	if claimedID == "" {
		return nil
	}

	payload, err := decodePayload(events.EventType(eventType), payloadJSON)
	if err != nil {
		log.Printf("❌ [Outbox] Event %s failed payload unmarshal: %v", id, err)
		if markErr := os.repo.MarkFailed(ctx, tx, id, fmt.Sprintf("invalid payload: %v", err)); markErr != nil {
			return fmt.Errorf("failed to mark event as failed: %w", markErr)
		}
		return tx.Commit()
	}

	if err := os.eventBus.Publish(ctx, events.EventType(eventType), payload); err != nil {
		newRetryCount := retryCount + 1
		if newRetryCount >= MaxOutboxRetries {
			if markErr := os.repo.MarkFailed(ctx, tx, id, fmt.Sprintf("max retries exceeded: %v", err)); markErr != nil {
				return fmt.Errorf("failed to mark event as failed: %w", markErr)
			}
			return tx.Commit()
		}

		if updateErr := os.repo.IncrementRetry(ctx, tx, id, newRetryCount, err.Error()); updateErr != nil {
			return fmt.Errorf("failed to update retry count: %w", updateErr)
		}
		log.Printf("⚠️ [Outbox] Event %s failed (Attempt %d/%d). Error: %v", id, newRetryCount, MaxOutboxRetries, err)
		return tx.Commit()
	}

	if err := os.repo.MarkCompleted(ctx, tx, id); err != nil {
		return fmt.Errorf("failed to mark as completed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("✅ [Outbox] Successfully processed event %s (Type: %s)", id, eventType)
	return nil
}

// decodePayload unmarshals into the typed payload for the event family
func decodePayload(eventType events.EventType, payloadJSON string) (interface{}, error) {
	switch eventType {
	case events.ApprovalDecided, events.ApprovalRecalled:
		var p events.ApprovalPayload
		if err := json.Unmarshal([]byte(payloadJSON), &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		var p events.RecordPayload
		if err := json.Unmarshal([]byte(payloadJSON), &p); err != nil {
			return nil, err
		}
		return p, nil
	}
}

// CleanupProcessed removes old completed events from the outbox
func (os *OutboxService) CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	return os.repo.CleanupProcessed(ctx, cutoff)
}
