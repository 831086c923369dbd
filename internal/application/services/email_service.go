package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	"github.com/relaycrm/backend/internal/integrations/email"
	"github.com/relaycrm/backend/pkg/auth"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/utils"
)

// MaxEmailAttempts parks a message as failed after this many deliveries
const MaxEmailAttempts = 3

// EmailService queues outbound mail and drains the queue through the
// configured sender. Queueing inside a business transaction guarantees the
// message exists if and only if the operation committed.
type EmailService struct {
	db     *database.Connection
	emails *persistence.EmailRepository
	sender email.Sender

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewEmailService creates a new EmailService
func NewEmailService(db *database.Connection, sender email.Sender) *EmailService {
	return &EmailService{
		db:     db,
		emails: persistence.NewEmailRepository(db.DB()),
		sender: sender,
		stopCh: make(chan struct{}),
	}
}

// QueueInput describes one outbound message
type QueueInput struct {
	ToAddress   string
	Subject     string
	Body        string
	ICS         string
	RelatedType string
	RelatedID   string
}

// Queue inserts a message into the outbound queue
func (s *EmailService) Queue(ctx context.Context, exec persistence.Executor, orgID string, input QueueInput) (*models.EmailMessage, error) {
	if !auth.IsValidEmail(input.ToAddress) {
		return nil, apperrors.NewValidationError("to_address", "invalid recipient address")
	}
	if exec == nil {
		exec = s.db
	}

	msg := &models.EmailMessage{
		ID:          utils.GenerateID(),
		OrgID:       orgID,
		ToAddress:   input.ToAddress,
		Subject:     input.Subject,
		Body:        input.Body,
		ICS:         input.ICS,
		Status:      models.EmailStatusQueued,
		RelatedType: input.RelatedType,
		RelatedID:   input.RelatedID,
	}
	if err := s.emails.Enqueue(ctx, exec, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// History lists the email log of one record
func (s *EmailService) History(ctx context.Context, actor *models.UserSession, relatedType, relatedID string) ([]*models.EmailMessage, error) {
	return s.emails.FindForRecord(ctx, actor.OrgID, relatedType, relatedID)
}

// StartWorker drains the queue at the given interval
func (s *EmailService) StartWorker(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Printf("📧 Email worker started with %v interval", interval)

		for {
			select {
			case <-s.stopCh:
				log.Printf("📧 Email worker stopping...")
				return
			case <-ticker.C:
				if _, err := s.ProcessQueue(context.Background()); err != nil {
					log.Printf("⚠️ Email worker error: %v", err)
				}
			}
		}
	}()
}

// StopWorker stops the worker gracefully
func (s *EmailService) StopWorker() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	log.Printf("📧 Email worker stopped")
}

// ProcessQueue sends all queued messages, returning the delivered count.
// Failures under the attempt cap requeue for the next pass.
func (s *EmailService) ProcessQueue(ctx context.Context) (int, error) {
	queued, err := s.emails.FindQueued(ctx, 50)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range queued {
		err := s.sender.Send(ctx, &email.Message{
			To:      m.ToAddress,
			Subject: m.Subject,
			Body:    m.Body,
			ICS:     m.ICS,
		})
		if err != nil {
			requeue := m.Attempts+1 < MaxEmailAttempts
			if markErr := s.emails.MarkFailed(ctx, m.ID, err.Error(), requeue); markErr != nil {
				log.Printf("❌ Failed to mark email %s failed: %v", m.ID, markErr)
			}
			log.Printf("⚠️ Email %s to %s failed (attempt %d/%d): %v",
				m.ID, m.ToAddress, m.Attempts+1, MaxEmailAttempts, err)
			continue
		}

		if err := s.emails.MarkSent(ctx, m.ID, s.sender.Name(), time.Now()); err != nil {
			log.Printf("❌ Failed to mark email %s sent: %v", m.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}
