package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	apperrors "github.com/relaycrm/backend/pkg/errors"
	"github.com/relaycrm/backend/pkg/expression"
	"github.com/relaycrm/backend/pkg/utils"
)

// TerritoryService manages territory rules and assigns accounts to them.
// Rules are expressions over account fields; the lowest priority number
// among matching territories wins.
type TerritoryService struct {
	db          *database.Connection
	territories *persistence.TerritoryRepository
	accounts    *persistence.AccountRepository
	engine      *expression.Engine
}

// NewTerritoryService creates a new TerritoryService
func NewTerritoryService(db *database.Connection, engine *expression.Engine) *TerritoryService {
	return &TerritoryService{
		db:          db,
		territories: persistence.NewTerritoryRepository(db.DB()),
		accounts:    persistence.NewAccountRepository(db.DB()),
		engine:      engine,
	}
}

// CreateInput defines a new territory
type TerritoryInput struct {
	Name     string
	Rule     string
	OwnerID  string
	Priority int
}

// Create validates the rule expression and stores the territory
func (s *TerritoryService) Create(ctx context.Context, actor *models.UserSession, input TerritoryInput) (*models.Territory, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("create", "Territory")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name", "territory name is required")
	}
	if err := s.engine.Validate(input.Rule); err != nil {
		return nil, apperrors.NewValidationError("rule", fmt.Sprintf("invalid rule expression: %v", err))
	}

	t := &models.Territory{
		ID:       utils.GenerateID(),
		OrgID:    actor.OrgID,
		Name:     input.Name,
		Rule:     input.Rule,
		OwnerID:  input.OwnerID,
		Priority: input.Priority,
		IsActive: true,
	}
	if err := s.territories.Create(ctx, s.db, t); err != nil {
		return nil, fmt.Errorf("failed to create territory: %w", err)
	}
	return t, nil
}

// List returns the org's active territories in priority order
func (s *TerritoryService) List(ctx context.Context, actor *models.UserSession) ([]*models.Territory, error) {
	return s.territories.FindActive(ctx, actor.OrgID)
}

// Update applies changes to a territory; a changed rule is re-validated
func (s *TerritoryService) Update(ctx context.Context, actor *models.UserSession, id string, updates map[string]interface{}) (*models.Territory, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("update", "Territory")
	}

	existing, err := s.territories.FindByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperrors.NewNotFoundError("Territory", id)
	}

	if rule, ok := updates["rule"].(string); ok {
		if err := s.engine.Validate(rule); err != nil {
			return nil, apperrors.NewValidationError("rule", fmt.Sprintf("invalid rule expression: %v", err))
		}
	}

	if err := s.territories.Update(ctx, s.db, actor.OrgID, id, updates); err != nil {
		return nil, err
	}
	return s.territories.FindByID(ctx, actor.OrgID, id)
}

// Delete removes a territory
func (s *TerritoryService) Delete(ctx context.Context, actor *models.UserSession, id string) error {
	if !actor.IsAdmin() {
		return apperrors.NewPermissionError("delete", "Territory")
	}
	return s.territories.Delete(ctx, s.db, actor.OrgID, id)
}

// Match evaluates all active rules against the account and returns the
// winning territory, or nil when nothing matches. A rule evaluation error
// is logged and treated as a non-match.
func (s *TerritoryService) Match(ctx context.Context, orgID string, account *models.Account) (*models.Territory, error) {
	territories, err := s.territories.FindActive(ctx, orgID)
	if err != nil {
		return nil, err
	}

	env := account.ToEnv()
	for _, t := range territories {
		matched, err := s.engine.EvaluateCondition(t.Rule, env)
		if err != nil {
			log.Printf("⚠️ Territory rule %s failed to evaluate: %v", t.Name, err)
			continue
		}
		if matched {
			return t, nil // FindActive orders by priority, first match wins
		}
	}
	return nil, nil
}

// AssignAccount re-runs matching for one account and persists the result
// when the assignment changed
func (s *TerritoryService) AssignAccount(ctx context.Context, orgID string, account *models.Account) error {
	territory, err := s.Match(ctx, orgID, account)
	if err != nil {
		return err
	}

	var newID *string
	if territory != nil {
		newID = &territory.ID
	}

	if equalStringPtr(account.TerritoryID, newID) {
		return nil
	}

	account.TerritoryID = newID
	return s.accounts.Update(ctx, s.db, orgID, account.ID, map[string]interface{}{
		"territory_id": newID,
	})
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
