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

// leadStatusTransitions: New→Working→Qualified; Unqualified reachable from
// New/Working; Converted only through Convert.
var leadStatusTransitions = map[string][]string{
	models.LeadStatusNew:         {models.LeadStatusWorking, models.LeadStatusUnqualified},
	models.LeadStatusWorking:     {models.LeadStatusQualified, models.LeadStatusUnqualified},
	models.LeadStatusQualified:   {models.LeadStatusWorking},
	models.LeadStatusUnqualified: {models.LeadStatusWorking},
}

// LeadService handles lead CRUD, conversion and enrichment kickoff
type LeadService struct {
	db            *database.Connection
	leads         *persistence.LeadRepository
	contacts      *persistence.ContactRepository
	accounts      *persistence.AccountRepository
	opportunities *persistence.OpportunityRepository
	txManager     *persistence.TransactionManager
	outbox        *OutboxService
	enrichment    *EnrichmentService
}

// NewLeadService creates a new LeadService
func NewLeadService(db *database.Connection, txManager *persistence.TransactionManager,
	outbox *OutboxService, enrichment *EnrichmentService) *LeadService {
	return &LeadService{
		db:            db,
		leads:         persistence.NewLeadRepository(db.DB()),
		contacts:      persistence.NewContactRepository(db.DB()),
		accounts:      persistence.NewAccountRepository(db.DB()),
		opportunities: persistence.NewOpportunityRepository(db.DB()),
		txManager:     txManager,
		outbox:        outbox,
		enrichment:    enrichment,
	}
}

// LeadInput carries the writable lead fields
type LeadInput struct {
	FirstName string
	LastName  string
	Company   string
	Email     string
	Phone     string
	Website   string
	Title     string
	Source    string
	Industry  string
	Employees int
	Notes     string
}

// Create inserts a lead, publishes the record event, and kicks off a
// fire-and-forget enrichment attempt
func (s *LeadService) Create(ctx context.Context, actor *models.UserSession, input LeadInput) (*models.Lead, error) {
	if strings.TrimSpace(input.LastName) == "" {
		return nil, apperrors.NewValidationError("last_name", "last name is required")
	}

	lead := &models.Lead{
		ID:        utils.GenerateID(),
		OrgID:     actor.OrgID,
		OwnerID:   actor.ID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Company:   input.Company,
		Email:     input.Email,
		Phone:     input.Phone,
		Website:   input.Website,
		Title:     input.Title,
		Status:    models.LeadStatusNew,
		Source:    input.Source,
		Industry:  input.Industry,
		Employees: input.Employees,
		Notes:     input.Notes,
	}

	err := s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.leads.Create(ctx, tx, lead); err != nil {
			return fmt.Errorf("failed to create lead: %w", err)
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordCreated, ObjectLead, actor, lead, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best-effort enrichment, never fails the request
	go func() {
		if err := s.enrichment.EnrichLead(context.Background(), actor.OrgID, lead.ID); err != nil {
			log.Printf("⚠️ Enrichment failed for lead %s: %v", lead.ID, err)
		}
	}()

	return lead, nil
}

// Get fetches a lead by ID
func (s *LeadService) Get(ctx context.Context, actor *models.UserSession, id string) (*models.Lead, error) {
	lead, err := s.leads.FindByID(ctx, s.db, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, apperrors.NewNotFoundError("Lead", id)
	}
	return lead, nil
}

// List returns the org's leads
func (s *LeadService) List(ctx context.Context, actor *models.UserSession, status string, limit, offset int) ([]*models.Lead, error) {
	return s.leads.FindAll(ctx, actor.OrgID, status, limit, offset)
}

// Update applies field changes. Converted leads are read-only; status
// changes go through the transition table.
func (s *LeadService) Update(ctx context.Context, actor *models.UserSession, id string, updates map[string]interface{}) (*models.Lead, error) {
	lead, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if lead.IsConverted() {
		return nil, apperrors.NewValidationError("status", "converted leads are read-only")
	}

	if next, ok := updates["status"].(string); ok && next != lead.Status {
		if err := validateLeadTransition(lead.Status, next); err != nil {
			return nil, err
		}
	}
	if score, ok := updates["score"].(int); ok {
		if score < 0 || score > 100 {
			return nil, apperrors.NewValidationError("score", "score must be between 0 and 100")
		}
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.leads.Update(ctx, tx, actor.OrgID, id, updates); err != nil {
			return err
		}
		updated, err := s.leads.FindByID(ctx, tx, actor.OrgID, id)
		if err != nil {
			return err
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordUpdated, ObjectLead, actor, updated, lead)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, actor, id)
}

// Delete removes a non-converted lead
func (s *LeadService) Delete(ctx context.Context, actor *models.UserSession, id string) error {
	lead, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if lead.IsConverted() {
		return apperrors.NewValidationError("status", "converted leads cannot be deleted")
	}

	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.leads.Delete(ctx, tx, actor.OrgID, id); err != nil {
			return err
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordDeleted, ObjectLead, actor, lead, nil)
		return nil
	})
}

// ConvertInput controls the conversion
type ConvertInput struct {
	// CreateOpportunity also opens a deal on the account
	CreateOpportunity bool
	OpportunityName   string
	Amount            float64
}

// ConvertResult reports the records produced by a conversion
type ConvertResult struct {
	Lead        *models.Lead        `json:"lead"`
	Contact     *models.Contact     `json:"contact"`
	Account     *models.Account     `json:"account"`
	Opportunity *models.Opportunity `json:"opportunity,omitempty"`
}

// Convert turns a qualified lead into a contact, an account (reused when
// one matches by domain or company name) and optionally an opportunity.
// Everything happens in one transaction; the lead ends Converted and
// read-only.
func (s *LeadService) Convert(ctx context.Context, actor *models.UserSession, id string, input ConvertInput) (*ConvertResult, error) {
	lead, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if lead.IsConverted() {
		return nil, apperrors.NewStateTransitionError("Lead", lead.Status, models.LeadStatusConverted)
	}
	if lead.Status == models.LeadStatusUnqualified {
		return nil, apperrors.NewStateTransitionError("Lead", lead.Status, models.LeadStatusConverted)
	}
	if lead.Company == "" {
		return nil, apperrors.NewValidationError("company", "lead needs a company to convert")
	}
	if input.CreateOpportunity && strings.TrimSpace(input.OpportunityName) == "" {
		input.OpportunityName = fmt.Sprintf("%s - New Business", lead.Company)
	}

	result := &ConvertResult{}

	err = s.txManager.WithRetry(func(tx *sql.Tx) error {
		account, err := s.findMatchingAccount(ctx, tx, actor.OrgID, lead)
		if err != nil {
			return err
		}
		if account == nil {
			account = &models.Account{
				ID:        utils.GenerateID(),
				OrgID:     actor.OrgID,
				OwnerID:   actor.ID,
				Name:      lead.Company,
				Domain:    emailDomain(lead.Email),
				Industry:  lead.Industry,
				Employees: lead.Employees,
			}
			if err := s.accounts.Create(ctx, tx, account); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
		}

		contact := &models.Contact{
			ID:        utils.GenerateID(),
			OrgID:     actor.OrgID,
			OwnerID:   actor.ID,
			AccountID: &account.ID,
			FirstName: lead.FirstName,
			LastName:  lead.LastName,
			Email:     lead.Email,
			Phone:     lead.Phone,
			Title:     lead.Title,
		}
		if err := s.contacts.Create(ctx, tx, contact); err != nil {
			return fmt.Errorf("failed to create contact: %w", err)
		}

		var oppID *string
		if input.CreateOpportunity {
			opp := &models.Opportunity{
				ID:          utils.GenerateID(),
				OrgID:       actor.OrgID,
				OwnerID:     actor.ID,
				AccountID:   account.ID,
				Name:        input.OpportunityName,
				Stage:       models.StageProspecting,
				Amount:      input.Amount,
				Probability: models.StageProbability[models.StageProspecting],
			}
			if err := s.opportunities.Create(ctx, tx, opp); err != nil {
				return fmt.Errorf("failed to create opportunity: %w", err)
			}
			oppID = &opp.ID
			result.Opportunity = opp
		}

		if err := s.leads.MarkConverted(ctx, tx, actor.OrgID, lead.ID, contact.ID, account.ID, oppID); err != nil {
			return fmt.Errorf("failed to mark lead converted: %w", err)
		}

		result.Contact = contact
		result.Account = account

		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordCreated, ObjectContact, actor, contact, nil)
		if result.Opportunity != nil {
			publishRecordEvent(txCtx, s.outbox, events.RecordCreated, ObjectOpportunity, actor, result.Opportunity, nil)
		}
		return nil
	}, 3)
	if err != nil {
		return nil, err
	}

	converted, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	result.Lead = converted

	log.Printf("🔁 Lead %s converted to contact %s / account %s", id, result.Contact.ID, result.Account.ID)
	return result, nil
}

// findMatchingAccount prefers a domain match, then an exact company name
func (s *LeadService) findMatchingAccount(ctx context.Context, exec persistence.Executor, orgID string, lead *models.Lead) (*models.Account, error) {
	if domain := emailDomain(lead.Email); domain != "" {
		account, err := s.accounts.FindByDomain(ctx, exec, orgID, domain)
		if err != nil || account != nil {
			return account, err
		}
	}
	return s.accounts.FindByName(ctx, exec, orgID, lead.Company)
}

func validateLeadTransition(from, to string) error {
	for _, allowed := range leadStatusTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return apperrors.NewStateTransitionError("Lead", from, to)
}
