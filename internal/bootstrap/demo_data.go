package bootstrap

import (
	"context"
	"log"

	"github.com/relaycrm/backend/internal/application/services"
	"github.com/relaycrm/backend/internal/domain/models"
)

// SeedDemoData provisions a demo tenant with a priced catalog and the usual
// automation setup. Safe to call repeatedly: it no-ops when the demo admin
// already exists.
func SeedDemoData(ctx context.Context, svcMgr *services.ServiceManager) error {
	const demoEmail = "admin@demo.relaycrm.dev"

	admin, err := svcMgr.Auth.Signup(ctx, services.SignupInput{
		OrgName:   "Demo Org",
		OrgDomain: "demo.relaycrm.dev",
		AdminName: "Demo Admin",
		Email:     demoEmail,
		Password:  "demo-Password1",
	})
	if err != nil {
		// Conflict means a previous boot already seeded the tenant
		log.Printf("🔁 Demo tenant already seeded: %v", err)
		return nil
	}
	actor := admin.Session()

	books, err := svcMgr.PriceBooks.ListBooks(ctx, actor)
	if err != nil || len(books) == 0 {
		return err
	}
	standard := books[0]

	catalog := []services.EntryInput{
		{PriceBookID: standard.ID, ProductCode: "CRM-SEAT", ProductName: "CRM Seat (annual)", UnitPrice: 600},
		{PriceBookID: standard.ID, ProductCode: "CRM-SUPPORT", ProductName: "Premier Support", UnitPrice: 1200},
		{PriceBookID: standard.ID, ProductCode: "CRM-ONBOARD", ProductName: "Onboarding Package", UnitPrice: 2500},
	}
	for _, entry := range catalog {
		if _, err := svcMgr.PriceBooks.CreateEntry(ctx, actor, entry); err != nil {
			return err
		}
	}

	if _, err := svcMgr.Territories.Create(ctx, actor, services.TerritoryInput{
		Name:     "North America",
		Rule:     `billing_country in ["US", "CA"]`,
		OwnerID:  admin.ID,
		Priority: 10,
	}); err != nil {
		return err
	}

	if _, err := svcMgr.Approvals.CreateProcess(ctx, actor, services.ProcessInput{
		Name:           "Deep discount review",
		ObjectType:     services.ObjectQuote,
		EntryCondition: "discount_pct > 20",
		ApproverType:   models.ApproverTypeManager,
	}); err != nil {
		return err
	}

	log.Printf("✅ Demo tenant seeded: login as %s", demoEmail)
	return nil
}
