package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/relaycrm/backend/internal/domain/events"
	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/utils"
)

// ContactService handles contact CRUD
type ContactService struct {
	db        *database.Connection
	contacts  *persistence.ContactRepository
	accounts  *persistence.AccountRepository
	txManager *persistence.TransactionManager
	outbox    *OutboxService
}

// NewContactService creates a new ContactService
func NewContactService(db *database.Connection, txManager *persistence.TransactionManager, outbox *OutboxService) *ContactService {
	return &ContactService{
		db:        db,
		contacts:  persistence.NewContactRepository(db.DB()),
		accounts:  persistence.NewAccountRepository(db.DB()),
		txManager: txManager,
		outbox:    outbox,
	}
}

// ContactInput carries the writable contact fields
type ContactInput struct {
	AccountID *string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Title     string
}

// Create inserts a contact, verifying the account reference
func (s *ContactService) Create(ctx context.Context, actor *models.UserSession, input ContactInput) (*models.Contact, error) {
	if strings.TrimSpace(input.LastName) == "" {
		return nil, apperrors.NewValidationError("last_name", "last name is required")
	}
	if input.AccountID != nil {
		account, err := s.accounts.FindByID(ctx, s.db, actor.OrgID, *input.AccountID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, apperrors.NewNotFoundError("Account", *input.AccountID)
		}
	}

	contact := &models.Contact{
		ID:        utils.GenerateID(),
		OrgID:     actor.OrgID,
		OwnerID:   actor.ID,
		AccountID: input.AccountID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
		Title:     input.Title,
	}

	err := s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.contacts.Create(ctx, tx, contact); err != nil {
			return fmt.Errorf("failed to create contact: %w", err)
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordCreated, ObjectContact, actor, contact, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// Get fetches a contact by ID
func (s *ContactService) Get(ctx context.Context, actor *models.UserSession, id string) (*models.Contact, error) {
	contact, err := s.contacts.FindByID(ctx, s.db, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, apperrors.NewNotFoundError("Contact", id)
	}
	return contact, nil
}

// List returns contacts, optionally filtered to one account
func (s *ContactService) List(ctx context.Context, actor *models.UserSession, accountID string, limit, offset int) ([]*models.Contact, error) {
	return s.contacts.FindAll(ctx, actor.OrgID, accountID, limit, offset)
}

// Update applies field changes to a contact
func (s *ContactService) Update(ctx context.Context, actor *models.UserSession, id string, updates map[string]interface{}) (*models.Contact, error) {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.contacts.Update(ctx, tx, actor.OrgID, id, updates); err != nil {
			return err
		}
		updated, err := s.contacts.FindByID(ctx, tx, actor.OrgID, id)
		if err != nil {
			return err
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordUpdated, ObjectContact, actor, updated, existing)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Delete removes a contact
func (s *ContactService) Delete(ctx context.Context, actor *models.UserSession, id string) error {
	contact, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}

	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.contacts.Delete(ctx, tx, actor.OrgID, id); err != nil {
			return err
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordDeleted, ObjectContact, actor, contact, nil)
		return nil
	})
}
