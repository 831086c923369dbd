package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/relaycrm/backend/internal/domain/events"
	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/utils"
)

// AccountService handles account CRUD and keeps territory assignments fresh
type AccountService struct {
	db          *database.Connection
	accounts    *persistence.AccountRepository
	txManager   *persistence.TransactionManager
	outbox      *OutboxService
	territories *TerritoryService
	enrichment  *EnrichmentService
}

// NewAccountService creates a new AccountService
func NewAccountService(db *database.Connection, txManager *persistence.TransactionManager,
	outbox *OutboxService, territories *TerritoryService, enrichment *EnrichmentService) *AccountService {
	return &AccountService{
		db:          db,
		accounts:    persistence.NewAccountRepository(db.DB()),
		txManager:   txManager,
		outbox:      outbox,
		territories: territories,
		enrichment:  enrichment,
	}
}

// AccountInput carries the writable account fields
type AccountInput struct {
	Name           string
	Domain         string
	Industry       string
	Employees      int
	AnnualRevenue  float64
	BillingCountry string
	BillingState   string
}

// Create inserts an account and assigns its territory
func (s *AccountService) Create(ctx context.Context, actor *models.UserSession, input AccountInput) (*models.Account, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name", "account name is required")
	}

	account := &models.Account{
		ID:             utils.GenerateID(),
		OrgID:          actor.OrgID,
		OwnerID:        actor.ID,
		Name:           input.Name,
		Domain:         input.Domain,
		Industry:       input.Industry,
		Employees:      input.Employees,
		AnnualRevenue:  input.AnnualRevenue,
		BillingCountry: input.BillingCountry,
		BillingState:   input.BillingState,
	}

	if territory, err := s.territories.Match(ctx, actor.OrgID, account); err == nil && territory != nil {
		account.TerritoryID = &territory.ID
	}

	err := s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.accounts.Create(ctx, tx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordCreated, ObjectAccount, actor, account, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best-effort firmographics fill-in, never fails the request
	go func() {
		if err := s.enrichment.EnrichAccount(context.Background(), actor.OrgID, account.ID); err != nil {
			log.Printf("⚠️ Enrichment failed for account %s: %v", account.ID, err)
		}
	}()

	return account, nil
}

// Get fetches an account by ID
func (s *AccountService) Get(ctx context.Context, actor *models.UserSession, id string) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, s.db, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.NewNotFoundError("Account", id)
	}
	return account, nil
}

// List returns the org's accounts
func (s *AccountService) List(ctx context.Context, actor *models.UserSession, limit, offset int) ([]*models.Account, error) {
	return s.accounts.FindAll(ctx, actor.OrgID, limit, offset)
}

// Update applies field changes and re-runs territory matching when a
// rule-relevant field moved
func (s *AccountService) Update(ctx context.Context, actor *models.UserSession, id string, updates map[string]interface{}) (*models.Account, error) {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.accounts.Update(ctx, tx, actor.OrgID, id, updates); err != nil {
			return err
		}
		updated, err := s.accounts.FindByID(ctx, tx, actor.OrgID, id)
		if err != nil {
			return err
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordUpdated, ObjectAccount, actor, updated, existing)
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := s.territories.AssignAccount(ctx, actor.OrgID, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an account
func (s *AccountService) Delete(ctx context.Context, actor *models.UserSession, id string) error {
	account, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}

	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.accounts.Delete(ctx, tx, actor.OrgID, id); err != nil {
			return err
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordDeleted, ObjectAccount, actor, account, nil)
		return nil
	})
}
