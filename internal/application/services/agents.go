package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/relaycrm/backend/internal/agent"
	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
)

// Builtin agent names
const (
	AgentLeadScoring     = "lead-scoring"
	AgentEnrichmentSweep = "enrichment-sweep"
	AgentPipelineDigest  = "pipeline-digest"
)

// AgentRegistry wires the builtin agents onto the orchestrator
type AgentRegistry struct {
	db            *database.Connection
	leads         *persistence.LeadRepository
	opportunities *persistence.OpportunityRepository
	users         *persistence.UserRepository
	enrichment    *EnrichmentService
	notifications *NotificationService
	llm           agent.LLM
}

// NewAgentRegistry creates a new AgentRegistry. llm may be nil; LLM-backed
// agents are then registered disabled.
func NewAgentRegistry(db *database.Connection, enrichment *EnrichmentService,
	notifications *NotificationService, llm agent.LLM) *AgentRegistry {
	return &AgentRegistry{
		db:            db,
		leads:         persistence.NewLeadRepository(db.DB()),
		opportunities: persistence.NewOpportunityRepository(db.DB()),
		users:         persistence.NewUserRepository(db.DB()),
		enrichment:    enrichment,
		notifications: notifications,
		llm:           llm,
	}
}

// RegisterAll registers the builtin agents. Must run before the
// orchestrator starts.
func (r *AgentRegistry) RegisterAll(o *agent.Orchestrator) error {
	specs := []agent.Spec{
		{
			Name:          AgentLeadScoring,
			Description:   "Scores new and updated leads 0-100 from firmographics",
			Enabled:       r.llm != nil,
			Priority:      30,
			TimeLimit:     30 * time.Second,
			EventPatterns: []string{"record.created", "record.updated"},
			Run:           r.runLeadScoring,
		},
		{
			Name:        AgentEnrichmentSweep,
			Description: "Backfills firmographics for leads that never got enrichment data",
			Enabled:     true,
			Priority:    60,
			TimeLimit:   5 * time.Minute,
			Schedule:    "0 3 * * *",
			Run:         r.runEnrichmentSweep,
		},
		{
			Name:        AgentPipelineDigest,
			Description: "Sends each rep a digest of their open pipeline",
			Enabled:     true,
			Priority:    50,
			TimeLimit:   2 * time.Minute,
			Schedule:    "0 8 * * 1",
			Run:         r.runPipelineDigest,
		},
	}

	for i := range specs {
		if err := o.Register(&specs[i]); err != nil {
			return err
		}
	}
	return nil
}

// runLeadScoring asks the model for a 0-100 score and writes it back.
// Event-triggered jobs carry org/object/record in the payload; non-lead
// events are ignored.
func (r *AgentRegistry) runLeadScoring(ctx context.Context, job *agent.Job) error {
	objectType, _ := job.Payload["object_type"].(string)
	if objectType != ObjectLead {
		return nil
	}
	orgID, _ := job.Payload["org_id"].(string)
	recordID, _ := job.Payload["record_id"].(string)
	if orgID == "" || recordID == "" {
		return fmt.Errorf("lead scoring job is missing org_id or record_id")
	}

	lead, err := r.leads.FindByID(ctx, r.db, orgID, recordID)
	if err != nil {
		return err
	}
	if lead == nil || lead.IsConverted() {
		return nil
	}

	prompt := fmt.Sprintf(
		"Company: %s\nTitle: %s\nIndustry: %s\nEmployees: %d\nSource: %s\nNotes: %s",
		lead.Company, lead.Title, lead.Industry, lead.Employees, lead.Source, lead.Notes)

	reply, err := r.llm.Complete(ctx,
		"You score B2B sales leads. Reply with a single integer from 0 to 100, "+
			"where 100 is a perfect fit. No explanation.",
		prompt)
	if err != nil {
		return fmt.Errorf("scoring completion failed: %w", err)
	}

	score, err := parseScore(reply)
	if err != nil {
		return fmt.Errorf("unusable score %q: %w", reply, err)
	}

	if err := r.leads.Update(ctx, r.db, orgID, recordID, map[string]interface{}{
		"score": score,
	}); err != nil {
		return err
	}

	log.Printf("🤖 Lead %s scored %d", recordID, score)
	return nil
}

// runEnrichmentSweep backfills stale leads across all orgs
func (r *AgentRegistry) runEnrichmentSweep(ctx context.Context, job *agent.Job) error {
	orgIDs, err := r.sweepOrgs(ctx, job)
	if err != nil {
		return err
	}

	total := 0
	for _, orgID := range orgIDs {
		enriched, err := r.enrichment.SweepStale(ctx, orgID, 50)
		if err != nil {
			log.Printf("⚠️ Enrichment sweep failed for org %s: %v", orgID, err)
			continue
		}
		total += enriched
	}

	log.Printf("🤖 Enrichment sweep enriched %d leads across %d orgs", total, len(orgIDs))
	return nil
}

// runPipelineDigest notifies each rep about their open deals, with an LLM
// summary when a model is configured
func (r *AgentRegistry) runPipelineDigest(ctx context.Context, job *agent.Job) error {
	orgIDs, err := r.sweepOrgs(ctx, job)
	if err != nil {
		return err
	}

	for _, orgID := range orgIDs {
		reps, err := r.users.FindAll(ctx, orgID)
		if err != nil {
			log.Printf("⚠️ Pipeline digest failed to list users for org %s: %v", orgID, err)
			continue
		}

		for _, rep := range reps {
			if !rep.IsActive {
				continue
			}
			if err := r.digestForRep(ctx, orgID, rep); err != nil {
				log.Printf("⚠️ Pipeline digest failed for %s: %v", rep.Email, err)
			}
		}
	}
	return nil
}

func (r *AgentRegistry) digestForRep(ctx context.Context, orgID string, rep *models.User) error {
	open, err := r.opportunities.FindOpenByOwner(ctx, orgID, rep.ID)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		return nil
	}

	var total float64
	var b strings.Builder
	for _, o := range open {
		total += o.Amount
		fmt.Fprintf(&b, "- %s: %s, $%.0f (%d%%)\n", o.Name, o.Stage, o.Amount, o.Probability)
	}

	body := fmt.Sprintf("You have %d open deals worth $%.0f:\n%s", len(open), total, b.String())
	if r.llm != nil {
		summary, err := r.llm.Complete(ctx,
			"You are a sales assistant. Summarize this pipeline in two short sentences, "+
				"calling out the deal that most needs attention.",
			b.String())
		if err == nil && summary != "" {
			body = fmt.Sprintf("%s\n\n%s", summary, body)
		}
	}

	_, err = r.notifications.Notify(ctx, nil, orgID, rep.ID,
		fmt.Sprintf("Pipeline digest: %d open deals", len(open)),
		body, "/opportunities", "digest")
	return err
}

// sweepOrgs resolves the orgs a job applies to: the payload org when the
// trigger carried one, otherwise every tenant
func (r *AgentRegistry) sweepOrgs(ctx context.Context, job *agent.Job) ([]string, error) {
	if orgID, _ := job.Payload["org_id"].(string); orgID != "" {
		return []string{orgID}, nil
	}
	return r.users.ListOrganizationIDs(ctx)
}

// parseScore pulls the first integer out of a model reply and clamps it
func parseScore(reply string) (int, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(reply), func(r rune) bool {
		return r < '0' || r > '9'
	})
	if len(fields) == 0 {
		return 0, fmt.Errorf("no number found")
	}
	score, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, err
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}
