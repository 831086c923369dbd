package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
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

// Volume tier discounts by line quantity. Applied server-side on every
// reprice; clients never set tier percentages.
const (
	TierSmallQty  = 10
	TierMediumQty = 50
	TierLargeQty  = 100

	TierSmallPct  = 5.0
	TierMediumPct = 10.0
	TierLargePct  = 15.0
)

// MaxSelfServeDiscountPct is the quote-level discount a rep can apply
// without review
const MaxSelfServeDiscountPct = 20.0

// QuoteService prices quotes and walks them through review. All totals are
// recomputed from the lines on every write.
type QuoteService struct {
	db            *database.Connection
	quotes        *persistence.QuoteRepository
	books         *persistence.PriceBookRepository
	opportunities *persistence.OpportunityRepository
	txManager     *persistence.TransactionManager
	outbox        *OutboxService
	approvals     *ApprovalService
	lifecycle     *domain.Lifecycle
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(db *database.Connection, txManager *persistence.TransactionManager,
	outbox *OutboxService, approvals *ApprovalService) *QuoteService {
	return &QuoteService{
		db:            db,
		quotes:        persistence.NewQuoteRepository(db.DB()),
		books:         persistence.NewPriceBookRepository(db.DB()),
		opportunities: persistence.NewOpportunityRepository(db.DB()),
		txManager:     txManager,
		outbox:        outbox,
		approvals:     approvals,
		lifecycle:     domain.QuoteLifecycle(),
	}
}

// LineInput is a client-supplied quote line: an entry reference and a
// quantity. Prices come from the price book.
type LineInput struct {
	EntryID  string
	Quantity int
}

// QuoteInput carries the writable quote fields
type QuoteInput struct {
	OpportunityID string
	PriceBookID   string
	Name          string
	DiscountPct   float64
	ExpiresOn     *time.Time
	Lines         []LineInput
}

// TierDiscountPct returns the volume discount for a line quantity
func TierDiscountPct(quantity int) float64 {
	switch {
	case quantity >= TierLargeQty:
		return TierLargePct
	case quantity >= TierMediumQty:
		return TierMediumPct
	case quantity >= TierSmallQty:
		return TierSmallPct
	default:
		return 0
	}
}

// Create prices and inserts a draft quote
func (s *QuoteService) Create(ctx context.Context, actor *models.UserSession, input QuoteInput) (*models.Quote, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name", "quote name is required")
	}
	if len(input.Lines) == 0 {
		return nil, apperrors.NewValidationError("lines", "a quote needs at least one line")
	}
	if input.DiscountPct < 0 || input.DiscountPct > 100 {
		return nil, apperrors.NewValidationError("discount_pct", "discount must be between 0 and 100")
	}

	opp, err := s.opportunities.FindByID(ctx, s.db, actor.OrgID, input.OpportunityID)
	if err != nil {
		return nil, err
	}
	if opp == nil {
		return nil, apperrors.NewNotFoundError("Opportunity", input.OpportunityID)
	}
	if opp.IsClosed() {
		return nil, apperrors.NewValidationError("opportunity_id", "cannot quote a closed opportunity")
	}

	if input.PriceBookID == "" {
		standard, err := s.books.FindStandardBook(ctx, actor.OrgID)
		if err != nil {
			return nil, err
		}
		if standard == nil {
			return nil, apperrors.NewNotFoundError("PriceBook", "standard")
		}
		input.PriceBookID = standard.ID
	}

	quote := &models.Quote{
		ID:            utils.GenerateID(),
		OrgID:         actor.OrgID,
		OwnerID:       actor.ID,
		OpportunityID: input.OpportunityID,
		PriceBookID:   input.PriceBookID,
		Name:          input.Name,
		Status:        models.QuoteStatusDraft,
		DiscountPct:   input.DiscountPct,
		ExpiresOn:     input.ExpiresOn,
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		lines, subtotal, err := s.priceLines(ctx, tx, actor.OrgID, quote, input.Lines)
		if err != nil {
			return err
		}
		quote.Subtotal = subtotal
		quote.Total = roundMoney(subtotal * (1 - quote.DiscountPct/100))
		quote.Lines = lines

		if err := s.quotes.Create(ctx, tx, quote); err != nil {
			return fmt.Errorf("failed to create quote: %w", err)
		}
		if err := s.quotes.ReplaceLines(ctx, tx, quote.ID, lines); err != nil {
			return fmt.Errorf("failed to write quote lines: %w", err)
		}
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordCreated, ObjectQuote, actor, quote, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// priceLines resolves each entry and applies the volume tier
func (s *QuoteService) priceLines(ctx context.Context, exec persistence.Executor, orgID string,
	quote *models.Quote, inputs []LineInput) ([]models.QuoteLine, float64, error) {

	lines := make([]models.QuoteLine, 0, len(inputs))
	subtotal := 0.0
	for _, in := range inputs {
		if in.Quantity <= 0 {
			return nil, 0, apperrors.NewValidationError("quantity", "line quantity must be positive")
		}
		entry, err := s.books.FindEntryByID(ctx, exec, orgID, in.EntryID)
		if err != nil {
			return nil, 0, err
		}
		if entry == nil {
			return nil, 0, apperrors.NewNotFoundError("PriceBookEntry", in.EntryID)
		}
		if entry.PriceBookID != quote.PriceBookID {
			return nil, 0, apperrors.NewValidationError("entry_id",
				fmt.Sprintf("entry %s belongs to a different price book", in.EntryID))
		}
		if !entry.IsActive {
			return nil, 0, apperrors.NewValidationError("entry_id",
				fmt.Sprintf("entry %s is inactive", in.EntryID))
		}

		tier := TierDiscountPct(in.Quantity)
		lineTotal := roundMoney(float64(in.Quantity) * entry.UnitPrice * (1 - tier/100))
		lines = append(lines, models.QuoteLine{
			ID:              utils.GenerateID(),
			QuoteID:         quote.ID,
			EntryID:         entry.ID,
			ProductCode:     entry.ProductCode,
			Quantity:        in.Quantity,
			UnitPrice:       entry.UnitPrice,
			TierDiscountPct: tier,
			LineTotal:       lineTotal,
		})
		subtotal += lineTotal
	}
	return lines, roundMoney(subtotal), nil
}

// Get fetches a quote with its lines
func (s *QuoteService) Get(ctx context.Context, actor *models.UserSession, id string) (*models.Quote, error) {
	quote, err := s.quotes.FindByID(ctx, s.db, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, apperrors.NewNotFoundError("Quote", id)
	}
	lines, err := s.quotes.FindLines(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	quote.Lines = lines
	return quote, nil
}

// ListByOpportunity returns the quotes on an opportunity
func (s *QuoteService) ListByOpportunity(ctx context.Context, actor *models.UserSession, opportunityID string) ([]*models.Quote, error) {
	return s.quotes.FindByOpportunity(ctx, actor.OrgID, opportunityID)
}

// Reprice replaces the lines and discount of a draft quote and recomputes
// the totals
func (s *QuoteService) Reprice(ctx context.Context, actor *models.UserSession, id string, discountPct float64, lineInputs []LineInput) (*models.Quote, error) {
	quote, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != models.QuoteStatusDraft {
		return nil, apperrors.NewValidationError("status", "only draft quotes can be repriced")
	}
	if discountPct < 0 || discountPct > 100 {
		return nil, apperrors.NewValidationError("discount_pct", "discount must be between 0 and 100")
	}
	if len(lineInputs) == 0 {
		return nil, apperrors.NewValidationError("lines", "a quote needs at least one line")
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		quote.DiscountPct = discountPct
		lines, subtotal, err := s.priceLines(ctx, tx, actor.OrgID, quote, lineInputs)
		if err != nil {
			return err
		}
		total := roundMoney(subtotal * (1 - discountPct/100))

		if err := s.quotes.ReplaceLines(ctx, tx, id, lines); err != nil {
			return err
		}
		return s.quotes.Update(ctx, tx, actor.OrgID, id, map[string]interface{}{
			"discount_pct": discountPct,
			"subtotal":     subtotal,
			"total":        total,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Submit moves a draft forward. Quotes discounted past the self-serve
// ceiling, or matching a configured approval process, go to In Review with
// a work item; everything else is auto-approved.
func (s *QuoteService) Submit(ctx context.Context, actor *models.UserSession, id string) (*models.Quote, error) {
	quote, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.Transition(quote.Status, models.QuoteStatusInReview); err != nil {
		return nil, err
	}

	needsReview := quote.DiscountPct > MaxSelfServeDiscountPct

	var item *models.ApprovalWorkItem
	if item, err = s.approvals.SubmitRecord(ctx, actor, ObjectQuote, id, quote.ToEnv()); err != nil {
		return nil, err
	}

	nextStatus := models.QuoteStatusApproved
	if needsReview || item != nil {
		nextStatus = models.QuoteStatusInReview
	}
	if needsReview && item == nil {
		log.Printf("⚠️ Quote %s needs review (%.1f%% discount) but no approval process is configured", id, quote.DiscountPct)
	}

	if err := s.transition(ctx, actor, quote, nextStatus); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Present marks an approved (or undiscounted draft) quote as presented to
// the customer
func (s *QuoteService) Present(ctx context.Context, actor *models.UserSession, id string) (*models.Quote, error) {
	quote, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if quote.Status == models.QuoteStatusDraft && quote.DiscountPct > MaxSelfServeDiscountPct {
		return nil, apperrors.NewValidationError("discount_pct",
			fmt.Sprintf("discounts over %.0f%% require review before presenting", MaxSelfServeDiscountPct))
	}
	if err := s.transition(ctx, actor, quote, models.QuoteStatusPresented); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Accept records customer acceptance and syncs the opportunity amount to
// the accepted total
func (s *QuoteService) Accept(ctx context.Context, actor *models.UserSession, id string) (*models.Quote, error) {
	quote, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.Transition(quote.Status, models.QuoteStatusAccepted); err != nil {
		return nil, err
	}
	if quote.ExpiresOn != nil && quote.ExpiresOn.Before(time.Now()) {
		return nil, apperrors.NewValidationError("expires_on", "quote has expired")
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.quotes.Update(ctx, tx, actor.OrgID, id, map[string]interface{}{
			"status": models.QuoteStatusAccepted,
		}); err != nil {
			return err
		}
		if err := s.opportunities.Update(ctx, tx, actor.OrgID, quote.OpportunityID, map[string]interface{}{
			"amount": quote.Total,
		}); err != nil {
			return err
		}
		updated := *quote
		updated.Status = models.QuoteStatusAccepted
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordUpdated, ObjectQuote, actor, &updated, quote)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Quote %s accepted at %.2f", id, quote.Total)
	return s.Get(ctx, actor, id)
}

// Rework sends a rejected quote back to draft for editing
func (s *QuoteService) Rework(ctx context.Context, actor *models.UserSession, id string) (*models.Quote, error) {
	quote, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, actor, quote, models.QuoteStatusDraft); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// HandleApprovalDecision advances the quote when its work item is decided.
// Wired to the approval.decided event.
func (s *QuoteService) HandleApprovalDecision(ctx context.Context, orgID, quoteID string, approved bool) error {
	quote, err := s.quotes.FindByID(ctx, s.db, orgID, quoteID)
	if err != nil {
		return err
	}
	if quote == nil || quote.Status != models.QuoteStatusInReview {
		return nil
	}

	next := models.QuoteStatusRejected
	if approved {
		next = models.QuoteStatusApproved
	}
	if err := s.quotes.Update(ctx, s.db, orgID, quoteID, map[string]interface{}{"status": next}); err != nil {
		return err
	}
	log.Printf("✅ Quote %s moved to %s after approval decision", quoteID, next)
	return nil
}

// HandleApprovalRecall drops the quote back to Draft when the submitter
// withdraws the pending request. Wired to the approval.recalled event.
func (s *QuoteService) HandleApprovalRecall(ctx context.Context, orgID, quoteID string) error {
	quote, err := s.quotes.FindByID(ctx, s.db, orgID, quoteID)
	if err != nil {
		return err
	}
	if quote == nil || quote.Status != models.QuoteStatusInReview {
		return nil
	}

	if err := s.quotes.Update(ctx, s.db, orgID, quoteID, map[string]interface{}{"status": models.QuoteStatusDraft}); err != nil {
		return err
	}
	log.Printf("🔄 Quote %s returned to %s after recall", quoteID, models.QuoteStatusDraft)
	return nil
}

// transition validates and persists a status change, publishing the update
// event
func (s *QuoteService) transition(ctx context.Context, actor *models.UserSession, quote *models.Quote, next string) error {
	if err := s.lifecycle.Transition(quote.Status, next); err != nil {
		return err
	}
	return s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.quotes.Update(ctx, tx, actor.OrgID, quote.ID, map[string]interface{}{
			"status": next,
		}); err != nil {
			return err
		}
		updated := *quote
		updated.Status = next
		txCtx := s.txManager.InjectTx(ctx, tx)
		publishRecordEvent(txCtx, s.outbox, events.RecordUpdated, ObjectQuote, actor, &updated, quote)
		return nil
	})
}

// roundMoney rounds to cents, away from floating point dust
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
