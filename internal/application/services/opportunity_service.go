package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/relaycrm/backend/internal/domain/events"
	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/utils"
)

// OpportunityService handles deal CRUD and stage moves
type OpportunityService struct {
	db            *database.Connection
	opportunities *persistence.OpportunityRepository
	accounts      *persistence.AccountRepository
	txManager     *persistence.TransactionManager
	outbox        *OutboxService
}

// NewOpportunityService creates a new OpportunityService
func NewOpportunityService(db *database.Connection, txManager *persistence.TransactionManager, outbox *OutboxService) *OpportunityService {
	return &OpportunityService{
		db:            db,
		opportunities: persistence.NewOpportunityRepository(db.DB()),
		accounts:      persistence.NewAccountRepository(db.DB()),
		txManager:     txManager,
		outbox:        outbox,
	}
}

// OpportunityInput carries the writable opportunity fields
type OpportunityInput struct {
	AccountID string
	Name      string
	Stage     string
	Amount    float64
	CloseDate *time.Time
}

// Create inserts an opportunity. The stage defaults to Prospecting and the
// probability always comes from the stage table.
func (s *OpportunityService) Create(ctx context.Context, actor *models.UserSession, input OpportunityInput) (*models.Opportunity, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name", "opportunity name is required")
	}
	if input.Stage == "" {
		input.Stage = models.StageProspecting
	}
	if _, ok := models.StageProbability[input.Stage]; !ok {
		return nil, apperrors.NewValidationError("stage", "unknown stage: "+input.Stage)
	}
	if input.Stage == models.StageClosedWon || input.Stage == models.StageClosedLost {
		return nil, apperrors.NewValidationError("stage", "opportunities cannot be created closed")
	}

	account, err := s.accounts.FindByID(ctx, s.db, actor.OrgID, input.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.NewNotFoundError("Account", input.AccountID)
	}

	opp := &models.Opportunity{
		ID:          utils.GenerateID(),
		OrgID:       actor.OrgID,
		OwnerID:     actor.ID,
		AccountID:   input.AccountID,
		Name:        input.Name,
		Stage:       input.Stage,
		Amount:      input.Amount,
		Probability: models.StageProbability[input.Stage],
		CloseDate:   input.CloseDate,
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.opportunities.Create(ctx, tx, opp); err != nil {
			return fmt.Errorf("failed to create opportunity: %w", err)
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordCreated, ObjectOpportunity, actor, opp, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return opp, nil
}

// Get fetches an opportunity by ID
func (s *OpportunityService) Get(ctx context.Context, actor *models.UserSession, id string) (*models.Opportunity, error) {
	opp, err := s.opportunities.FindByID(ctx, s.db, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if opp == nil {
		return nil, apperrors.NewNotFoundError("Opportunity", id)
	}
	return opp, nil
}

// List returns opportunities, optionally filtered by stage or account
func (s *OpportunityService) List(ctx context.Context, actor *models.UserSession, stage, accountID string, limit, offset int) ([]*models.Opportunity, error) {
	return s.opportunities.FindAll(ctx, actor.OrgID, stage, accountID, limit, offset)
}

// Update applies field changes. Closed opportunities are read-only. A stage
// change resets the probability to the stage default; moving into a closed
// stage routes through MarkClosed so closed_at gets stamped.
func (s *OpportunityService) Update(ctx context.Context, actor *models.UserSession, id string, updates map[string]interface{}) (*models.Opportunity, error) {
	opp, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if opp.IsClosed() {
		return nil, apperrors.NewValidationError("stage", "closed opportunities are read-only")
	}

	var closeStage string
	if next, ok := updates["stage"].(string); ok && next != opp.Stage {
		if _, known := models.StageProbability[next]; !known {
			return nil, apperrors.NewValidationError("stage", "unknown stage: "+next)
		}
		if next == models.StageClosedWon || next == models.StageClosedLost {
			closeStage = next
			delete(updates, "stage")
		} else {
			updates["probability"] = models.StageProbability[next]
		}
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if len(updates) > 0 {
			if err := s.opportunities.Update(ctx, tx, actor.OrgID, id, updates); err != nil {
				return err
			}
		}
		if closeStage != "" {
			if err := s.opportunities.MarkClosed(ctx, tx, actor.OrgID, id, closeStage, time.Now()); err != nil {
				return err
			}
		}
		updated, err := s.opportunities.FindByID(ctx, tx, actor.OrgID, id)
		if err != nil {
			return err
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordUpdated, ObjectOpportunity, actor, updated, opp)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if closeStage != "" {
		log.Printf("✅ Opportunity %s closed as %s", id, closeStage)
	}
	return s.Get(ctx, actor, id)
}

// Close moves an open opportunity into Closed Won or Closed Lost
func (s *OpportunityService) Close(ctx context.Context, actor *models.UserSession, id, stage string) (*models.Opportunity, error) {
	if stage != models.StageClosedWon && stage != models.StageClosedLost {
		return nil, apperrors.NewValidationError("stage", "close stage must be Closed Won or Closed Lost")
	}
	return s.Update(ctx, actor, id, map[string]interface{}{"stage": stage})
}

// Delete removes an open opportunity
func (s *OpportunityService) Delete(ctx context.Context, actor *models.UserSession, id string) error {
	opp, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if opp.IsClosed() {
		return apperrors.NewValidationError("stage", "closed opportunities cannot be deleted")
	}

	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.opportunities.Delete(ctx, tx, actor.OrgID, id); err != nil {
			return err
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordDeleted, ObjectOpportunity, actor, opp, nil)
		return nil
	})
}
