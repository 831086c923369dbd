package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/relaycrm/backend/internal/domain"
	"github.com/relaycrm/backend/internal/domain/events"
	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/utils"
)

// ContractService manages contract lifecycle from draft through activation
// and expiry
type ContractService struct {
	db        *database.Connection
	contracts *persistence.ContractRepository
	accounts  *persistence.AccountRepository
	quotes    *persistence.QuoteRepository
	txManager *persistence.TransactionManager
	outbox    *OutboxService
	approvals *ApprovalService
	lifecycle *domain.Lifecycle
}

// NewContractService creates a new ContractService
func NewContractService(db *database.Connection, txManager *persistence.TransactionManager,
	outbox *OutboxService, approvals *ApprovalService) *ContractService {
	return &ContractService{
		db:        db,
		contracts: persistence.NewContractRepository(db.DB()),
		accounts:  persistence.NewAccountRepository(db.DB()),
		quotes:    persistence.NewQuoteRepository(db.DB()),
		txManager: txManager,
		outbox:    outbox,
		approvals: approvals,
		lifecycle: domain.ContractLifecycle(),
	}
}

// ContractInput carries the writable contract fields
type ContractInput struct {
	AccountID  string
	QuoteID    *string
	Name       string
	Value      float64
	TermMonths int
	StartDate  *time.Time
}

// Create inserts a draft contract. A linked quote must be accepted and
// seeds the contract value.
func (s *ContractService) Create(ctx context.Context, actor *models.UserSession, input ContractInput) (*models.Contract, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name", "contract name is required")
	}
	if input.TermMonths <= 0 {
		return nil, apperrors.NewValidationError("term_months", "term must be at least one month")
	}

	account, err := s.accounts.FindByID(ctx, s.db, actor.OrgID, input.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.NewNotFoundError("Account", input.AccountID)
	}

	if input.QuoteID != nil {
		quote, err := s.quotes.FindByID(ctx, s.db, actor.OrgID, *input.QuoteID)
		if err != nil {
			return nil, err
		}
		if quote == nil {
			return nil, apperrors.NewNotFoundError("Quote", *input.QuoteID)
		}
		if quote.Status != models.QuoteStatusAccepted {
			return nil, apperrors.NewValidationError("quote_id", "only accepted quotes can back a contract")
		}
		if input.Value == 0 {
			input.Value = quote.Total
		}
	}

	contract := &models.Contract{
		ID:         utils.GenerateID(),
		OrgID:      actor.OrgID,
		OwnerID:    actor.ID,
		AccountID:  input.AccountID,
		QuoteID:    input.QuoteID,
		Name:       input.Name,
		Status:     models.ContractStatusDraft,
		Value:      input.Value,
		TermMonths: input.TermMonths,
		StartDate:  input.StartDate,
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.contracts.Create(ctx, tx, contract); err != nil {
			return fmt.Errorf("failed to create contract: %w", err)
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordCreated, ObjectContract, actor, contract, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// Get fetches a contract by ID
func (s *ContractService) Get(ctx context.Context, actor *models.UserSession, id string) (*models.Contract, error) {
	contract, err := s.contracts.FindByID(ctx, s.db, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, apperrors.NewNotFoundError("Contract", id)
	}
	return contract, nil
}

// List returns contracts, optionally filtered by status or account
func (s *ContractService) List(ctx context.Context, actor *models.UserSession, status, accountID string, limit, offset int) ([]*models.Contract, error) {
	return s.contracts.FindAll(ctx, actor.OrgID, status, accountID, limit, offset)
}

// Submit sends a draft contract into approval. Contracts always route
// through a work item when a process matches; otherwise they advance
// straight to Approved.
func (s *ContractService) Submit(ctx context.Context, actor *models.UserSession, id string) (*models.Contract, error) {
	contract, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.Transition(contract.Status, models.ContractStatusInApproval); err != nil {
		return nil, err
	}

	item, err := s.approvals.SubmitRecord(ctx, actor, ObjectContract, id, contract.ToEnv())
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, actor, contract, models.ContractStatusInApproval); err != nil {
		return nil, err
	}
	if item == nil {
		// No process configured, auto-approve
		contract.Status = models.ContractStatusInApproval
		if err := s.transition(ctx, actor, contract, models.ContractStatusApproved); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, actor, id)
}

// Send marks an approved contract as sent for signature
func (s *ContractService) Send(ctx context.Context, actor *models.UserSession, id string) (*models.Contract, error) {
	return s.advance(ctx, actor, id, models.ContractStatusSent)
}

// MarkSigned records the counterparty signature
func (s *ContractService) MarkSigned(ctx context.Context, actor *models.UserSession, id string) (*models.Contract, error) {
	return s.advance(ctx, actor, id, models.ContractStatusSigned)
}

// Activate starts the contract clock: stamps activated_at and derives the
// start and end dates from the term
func (s *ContractService) Activate(ctx context.Context, actor *models.UserSession, id string) (*models.Contract, error) {
	contract, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.Transition(contract.Status, models.ContractStatusActivated); err != nil {
		return nil, err
	}

	now := time.Now()
	start := now
	if contract.StartDate != nil && contract.StartDate.After(now) {
		start = *contract.StartDate
	}
	end := start.AddDate(0, contract.TermMonths, 0)

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.contracts.Update(ctx, tx, actor.OrgID, id, map[string]interface{}{
			"status":       models.ContractStatusActivated,
			"activated_at": now,
			"start_date":   start,
			"end_date":     end,
		}); err != nil {
			return err
		}
		updated := *contract
		updated.Status = models.ContractStatusActivated
		updated.ActivatedAt = &now
		updated.StartDate = &start
		updated.EndDate = &end
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordUpdated, ObjectContract, actor, &updated, contract)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Contract %s activated, term ends %s", id, end.Format("2006-01-02"))
	return s.Get(ctx, actor, id)
}

// Terminate ends a post-approval contract early
func (s *ContractService) Terminate(ctx context.Context, actor *models.UserSession, id string) (*models.Contract, error) {
	return s.advance(ctx, actor, id, models.ContractStatusTerminated)
}

// HandleApprovalDecision advances the contract when its work item is
// decided. Wired to the approval.decided event.
func (s *ContractService) HandleApprovalDecision(ctx context.Context, orgID, contractID string, approved bool) error {
	contract, err := s.contracts.FindByID(ctx, s.db, orgID, contractID)
	if err != nil {
		return err
	}
	if contract == nil || contract.Status != models.ContractStatusInApproval {
		return nil
	}

	next := models.ContractStatusDraft // rejected goes back to draft
	if approved {
		next = models.ContractStatusApproved
	}
	if err := s.contracts.Update(ctx, s.db, orgID, contractID, map[string]interface{}{"status": next}); err != nil {
		return err
	}
	log.Printf("✅ Contract %s moved to %s after approval decision", contractID, next)
	return nil
}

// HandleApprovalRecall drops the contract back to Draft when the submitter
// withdraws the pending request. Wired to the approval.recalled event.
func (s *ContractService) HandleApprovalRecall(ctx context.Context, orgID, contractID string) error {
	contract, err := s.contracts.FindByID(ctx, s.db, orgID, contractID)
	if err != nil {
		return err
	}
	if contract == nil || contract.Status != models.ContractStatusInApproval {
		return nil
	}

	if err := s.contracts.Update(ctx, s.db, orgID, contractID, map[string]interface{}{
		"status": models.ContractStatusDraft,
	}); err != nil {
		return err
	}
	log.Printf("🔄 Contract %s returned to %s after recall", contractID, models.ContractStatusDraft)
	return nil
}

// ExpireOverdue marks activated contracts past their end date Expired.
// Called by the scheduler sweep.
func (s *ContractService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.contracts.FindExpiring(ctx, time.Now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, c := range overdue {
		if err := s.contracts.Update(ctx, s.db, c.OrgID, c.ID, map[string]interface{}{
			"status": models.ContractStatusExpired,
		}); err != nil {
			log.Printf("⚠️ Failed to expire contract %s: %v", c.ID, err)
			continue
		}
		expired++
	}
	if expired > 0 {
		log.Printf("🔄 Expired %d overdue contracts", expired)
	}
	return expired, nil
}

// advance validates and persists a plain status move
func (s *ContractService) advance(ctx context.Context, actor *models.UserSession, id, next string) (*models.Contract, error) {
	contract, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, actor, contract, next); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func (s *ContractService) transition(ctx context.Context, actor *models.UserSession, contract *models.Contract, next string) error {
	if err := s.lifecycle.Transition(contract.Status, next); err != nil {
		return err
	}
	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.contracts.Update(ctx, tx, actor.OrgID, contract.ID, map[string]interface{}{
			"status": next,
		}); err != nil {
			return err
		}
		updated := *contract
		updated.Status = next
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordUpdated, ObjectContract, actor, &updated, contract)
		return nil
	})
}
