package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	"github.com/relaycrm/backend/internal/integrations/enrichment"
)

// EnrichmentService fills in lead firmographics from the provider chain.
// Every caller treats enrichment as best-effort: a miss or provider outage
// leaves the lead untouched.
type EnrichmentService struct {
	db       *database.Connection
	leads    *persistence.LeadRepository
	accounts *persistence.AccountRepository
	chain    *enrichment.Chain
}

// NewEnrichmentService creates a new EnrichmentService
func NewEnrichmentService(db *database.Connection, chain *enrichment.Chain) *EnrichmentService {
	return &EnrichmentService{
		db:       db,
		leads:    persistence.NewLeadRepository(db.DB()),
		accounts: persistence.NewAccountRepository(db.DB()),
		chain:    chain,
	}
}

// EnrichLead looks up the lead's email domain and fills empty firmographic
// fields. Existing values are never overwritten.
func (s *EnrichmentService) EnrichLead(ctx context.Context, orgID, leadID string) error {
	lead, err := s.leads.FindByID(ctx, s.db, orgID, leadID)
	if err != nil {
		return err
	}
	if lead == nil || lead.IsConverted() {
		return nil
	}

	domain := emailDomain(lead.Email)
	if domain == "" {
		return nil
	}

	profile, err := s.chain.Lookup(ctx, domain)
	if err != nil {
		return fmt.Errorf("enrichment lookup failed: %w", err)
	}
	if profile == nil {
		log.Printf("🔍 No enrichment match for %s", domain)
		return nil
	}

	updates := map[string]interface{}{
		"enriched_at": time.Now(),
	}
	if lead.Company == "" && profile.Company != "" {
		updates["company"] = profile.Company
	}
	if lead.Website == "" && profile.Website != "" {
		updates["website"] = profile.Website
	}
	if lead.Industry == "" && profile.Industry != "" {
		updates["industry"] = profile.Industry
	}
	if lead.Employees == 0 && profile.Employees > 0 {
		updates["employees"] = profile.Employees
	}

	if err := s.leads.Update(ctx, s.db, orgID, leadID, updates); err != nil {
		return err
	}

	log.Printf("🔍 Lead %s enriched from %s (%d fields)", leadID, profile.Provider, len(updates)-1)
	return nil
}

// EnrichAccount fills empty firmographics on an account from its domain.
// Existing values are never overwritten.
func (s *EnrichmentService) EnrichAccount(ctx context.Context, orgID, accountID string) error {
	account, err := s.accounts.FindByID(ctx, s.db, orgID, accountID)
	if err != nil {
		return err
	}
	if account == nil || account.Domain == "" {
		return nil
	}

	profile, err := s.chain.Lookup(ctx, strings.ToLower(account.Domain))
	if err != nil {
		return fmt.Errorf("enrichment lookup failed: %w", err)
	}
	if profile == nil {
		log.Printf("🔍 No enrichment match for %s", account.Domain)
		return nil
	}

	updates := map[string]interface{}{}
	if account.Industry == "" && profile.Industry != "" {
		updates["industry"] = profile.Industry
	}
	if account.Employees == 0 && profile.Employees > 0 {
		updates["employees"] = profile.Employees
	}
	if len(updates) == 0 {
		return nil
	}

	if err := s.accounts.Update(ctx, s.db, orgID, accountID, updates); err != nil {
		return err
	}

	log.Printf("🔍 Account %s enriched from %s (%d fields)", accountID, profile.Provider, len(updates))
	return nil
}

// SweepStale enriches up to limit leads that never got enrichment data.
// Run by the enrichment-sweep agent.
func (s *EnrichmentService) SweepStale(ctx context.Context, orgID string, limit int) (int, error) {
	stale, err := s.leads.FindStale(ctx, orgID, limit)
	if err != nil {
		return 0, err
	}

	enriched := 0
	for _, lead := range stale {
		if err := s.EnrichLead(ctx, orgID, lead.ID); err != nil {
			log.Printf("⚠️ Sweep enrichment failed for lead %s: %v", lead.ID, err)
			continue
		}
		enriched++
	}
	return enriched, nil
}

// emailDomain extracts the domain part of an email address, skipping free
// mail providers that carry no firmographic signal
func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}

	domain := strings.ToLower(email[at+1:])
	switch domain {
	case "gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "icloud.com":
		return ""
	}
	return domain
}
