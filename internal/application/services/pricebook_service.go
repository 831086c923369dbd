package services

import (
	"context"
	"strings"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/utils"
)

// PriceBookService handles price books and their entries. The standard book
// is created at signup and cannot be deactivated.
type PriceBookService struct {
	db    *database.Connection
	books *persistence.PriceBookRepository
}

// NewPriceBookService creates a new PriceBookService
func NewPriceBookService(db *database.Connection) *PriceBookService {
	return &PriceBookService{
		db:    db,
		books: persistence.NewPriceBookRepository(db.DB()),
	}
}

// CreateBook adds a non-standard price book
func (s *PriceBookService) CreateBook(ctx context.Context, actor *models.UserSession, name string) (*models.PriceBook, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("create", "PriceBook")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("name", "price book name is required")
	}

	book := &models.PriceBook{
		ID:         utils.GenerateID(),
		OrgID:      actor.OrgID,
		Name:       name,
		IsStandard: false,
		IsActive:   true,
	}
	if err := s.books.CreateBook(ctx, s.db, book); err != nil {
		return nil, err
	}
	return book, nil
}

// GetBook fetches one price book
func (s *PriceBookService) GetBook(ctx context.Context, actor *models.UserSession, id string) (*models.PriceBook, error) {
	book, err := s.books.FindBookByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperrors.NewNotFoundError("PriceBook", id)
	}
	return book, nil
}

// ListBooks returns the org's price books, standard first
func (s *PriceBookService) ListBooks(ctx context.Context, actor *models.UserSession) ([]*models.PriceBook, error) {
	return s.books.FindAllBooks(ctx, actor.OrgID)
}

// EntryInput carries the writable price book entry fields
type EntryInput struct {
	PriceBookID string
	ProductCode string
	ProductName string
	UnitPrice   float64
	Currency    string
}

// CreateEntry adds a priced product to a book
func (s *PriceBookService) CreateEntry(ctx context.Context, actor *models.UserSession, input EntryInput) (*models.PriceBookEntry, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("create", "PriceBookEntry")
	}
	if strings.TrimSpace(input.ProductCode) == "" {
		return nil, apperrors.NewValidationError("product_code", "product code is required")
	}
	if input.UnitPrice < 0 {
		return nil, apperrors.NewValidationError("unit_price", "unit price cannot be negative")
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}

	if _, err := s.GetBook(ctx, actor, input.PriceBookID); err != nil {
		return nil, err
	}

	entry := &models.PriceBookEntry{
		ID:          utils.GenerateID(),
		OrgID:       actor.OrgID,
		PriceBookID: input.PriceBookID,
		ProductCode: input.ProductCode,
		ProductName: input.ProductName,
		UnitPrice:   input.UnitPrice,
		Currency:    input.Currency,
		IsActive:    true,
	}
	if err := s.books.CreateEntry(ctx, s.db, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries returns the active entries of a book
func (s *PriceBookService) ListEntries(ctx context.Context, actor *models.UserSession, bookID string) ([]*models.PriceBookEntry, error) {
	if _, err := s.GetBook(ctx, actor, bookID); err != nil {
		return nil, err
	}
	return s.books.FindEntries(ctx, actor.OrgID, bookID)
}

// UpdateEntry applies field changes to an entry. Price changes do not touch
// existing quote lines; quotes snapshot the unit price at pricing time.
func (s *PriceBookService) UpdateEntry(ctx context.Context, actor *models.UserSession, id string, updates map[string]interface{}) (*models.PriceBookEntry, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("update", "PriceBookEntry")
	}
	entry, err := s.books.FindEntryByID(ctx, s.db, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperrors.NewNotFoundError("PriceBookEntry", id)
	}
	if price, ok := updates["unit_price"].(float64); ok && price < 0 {
		return nil, apperrors.NewValidationError("unit_price", "unit price cannot be negative")
	}

	if err := s.books.UpdateEntry(ctx, s.db, actor.OrgID, id, updates); err != nil {
		return nil, err
	}
	return s.books.FindEntryByID(ctx, s.db, actor.OrgID, id)
}
