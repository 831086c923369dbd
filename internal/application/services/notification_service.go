package services

import (
	"context"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	"github.com/relaycrm/backend/pkg/utils"
)

// NotificationService handles in-app notifications
type NotificationService struct {
	db            *database.Connection
	notifications *persistence.NotificationRepository
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(db *database.Connection) *NotificationService {
	return &NotificationService{
		db:            db,
		notifications: persistence.NewNotificationRepository(db.DB()),
	}
}

// Notify creates a notification for one recipient. Used by approvals,
// workflows and agents; delivery failures are the caller's concern.
func (s *NotificationService) Notify(ctx context.Context, exec persistence.Executor, orgID, recipientID, title, body, link, notifType string) (*models.Notification, error) {
	if exec == nil {
		exec = s.db
	}
	n := &models.Notification{
		ID:          utils.GenerateID(),
		OrgID:       orgID,
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		Link:        link,
		Type:        notifType,
	}
	if err := s.notifications.Create(ctx, exec, n); err != nil {
		return nil, err
	}
	return n, nil
}

// List returns the actor's notifications, newest first
func (s *NotificationService) List(ctx context.Context, actor *models.UserSession, unreadOnly bool, limit int) ([]*models.Notification, error) {
	return s.notifications.FindForRecipient(ctx, actor.OrgID, actor.ID, unreadOnly, limit)
}

// CountUnread returns the actor's unread badge count
func (s *NotificationService) CountUnread(ctx context.Context, actor *models.UserSession) (int, error) {
	return s.notifications.CountUnread(ctx, actor.OrgID, actor.ID)
}

// MarkRead marks one of the actor's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.UserSession, id string) error {
	return s.notifications.MarkRead(ctx, actor.OrgID, actor.ID, id)
}

// MarkAllRead marks all of the actor's notifications read
func (s *NotificationService) MarkAllRead(ctx context.Context, actor *models.UserSession) (int64, error) {
	return s.notifications.MarkAllRead(ctx, actor.OrgID, actor.ID)
}
