package services

import (
	"context"
	"log"

	"github.com/relaycrm/backend/internal/domain/events"
	"github.com/relaycrm/backend/internal/domain/models"
)

// Object type names used in events, workflows, approvals and tasks
const (
	ObjectLead        = "Lead"
	ObjectContact     = "Contact"
	ObjectAccount     = "Account"
	ObjectOpportunity = "Opportunity"
	ObjectQuote       = "Quote"
	ObjectContract    = "Contract"
	ObjectCampaign    = "Campaign"
)

// enver is implemented by every model that can serve as an expression
// environment
type enver interface {
	ToEnv() map[string]interface{}
}

// publishRecordEvent enqueues a record event through the outbox. Failures
// are logged, never returned: side effects must not fail the primary
// operation.
func publishRecordEvent(ctx context.Context, outbox *OutboxService, eventType events.EventType,
	objectType string, user *models.UserSession, record enver, oldRecord enver) {

	payload := events.RecordPayload{
		ObjectType: objectType,
		OrgID:      user.OrgID,
		UserID:     user.ID,
		Record:     record.ToEnv(),
	}
	if id, ok := payload.Record["id"].(string); ok {
		payload.RecordID = id
	}
	if oldRecord != nil {
		payload.OldRecord = oldRecord.ToEnv()
	}

	if err := outbox.EnqueueEvent(ctx, eventType, payload); err != nil {
		log.Printf("⚠️ Failed to enqueue %s event for %s %s: %v", eventType, objectType, payload.RecordID, err)
	}
}
