package services

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/relaycrm/backend/internal/agent"
	"github.com/relaycrm/backend/internal/domain/events"
	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/infrastructure/database"
	"github.com/relaycrm/backend/internal/infrastructure/persistence"
	"github.com/relaycrm/backend/internal/integrations/email"
	"github.com/relaycrm/backend/internal/integrations/enrichment"
	"github.com/relaycrm/backend/pkg/expression"
)

// Worker intervals
const (
	OutboxWorkerInterval = 500 * time.Millisecond
	EmailWorkerInterval  = 2 * time.Second
)

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db *database.Connection

	TxManager *persistence.TransactionManager
	EventBus  *EventBus
	Engine    *expression.Engine

	Outbox        *OutboxService
	Auth          *AuthService
	Leads         *LeadService
	Contacts      *ContactService
	Accounts      *AccountService
	Opportunities *OpportunityService
	PriceBooks    *PriceBookService
	Quotes        *QuoteService
	Contracts     *ContractService
	Approvals     *ApprovalService
	Workflows     *WorkflowService
	Campaigns     *CampaignService
	Territories   *TerritoryService
	Notifications *NotificationService
	Tasks         *TaskService
	Emails        *EmailService
	Enrichment    *EnrichmentService
	Scheduler     *SchedulerService

	Orchestrator *agent.Orchestrator
	Agents       *AgentRegistry
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(db *database.Connection) *ServiceManager {
	sm := &ServiceManager{db: db}

	// Core plumbing
	sm.TxManager = persistence.NewTransactionManager(db)
	sm.EventBus = NewEventBus()
	sm.Engine = expression.NewEngine()
	sm.Outbox = NewOutboxService(db, sm.EventBus, sm.TxManager)

	// Integrations from the environment
	chain := enrichment.NewChain(
		enrichment.NewClearbit(os.Getenv("CLEARBIT_API_KEY")),
		enrichment.NewApollo(os.Getenv("APOLLO_API_KEY")),
		enrichment.NewZoomInfo(os.Getenv("ZOOMINFO_API_KEY")),
	)
	sender := buildSender()

	// Services in dependency order
	sm.Auth = NewAuthService(db, sm.TxManager)
	sm.Enrichment = NewEnrichmentService(db, chain)
	sm.Notifications = NewNotificationService(db)
	sm.Tasks = NewTaskService(db)
	sm.Emails = NewEmailService(db, sender)
	sm.Territories = NewTerritoryService(db, sm.Engine)
	sm.Leads = NewLeadService(db, sm.TxManager, sm.Outbox, sm.Enrichment)
	sm.Contacts = NewContactService(db, sm.TxManager, sm.Outbox)
	sm.Accounts = NewAccountService(db, sm.TxManager, sm.Outbox, sm.Territories, sm.Enrichment)
	sm.Opportunities = NewOpportunityService(db, sm.TxManager, sm.Outbox)
	sm.PriceBooks = NewPriceBookService(db)
	sm.Approvals = NewApprovalService(db, sm.TxManager, sm.Outbox, sm.Notifications, sm.Engine)
	sm.Quotes = NewQuoteService(db, sm.TxManager, sm.Outbox, sm.Approvals)
	sm.Contracts = NewContractService(db, sm.TxManager, sm.Outbox, sm.Approvals)
	sm.Campaigns = NewCampaignService(db, sm.TxManager, sm.Outbox, sm.Emails)

	// Agent orchestrator. LLM-backed agents stay disabled without an API key.
	sm.Orchestrator = agent.New(agent.Config{})
	var llm agent.LLM
	if anthropicLLM, err := agent.NewAnthropicLLM(); err != nil {
		log.Printf("⚠️ LLM unavailable, scoring agent disabled: %v", err)
	} else {
		llm = anthropicLLM
	}
	sm.Agents = NewAgentRegistry(db, sm.Enrichment, sm.Notifications, llm)
	if err := sm.Agents.RegisterAll(sm.Orchestrator); err != nil {
		log.Printf("❌ Failed to register builtin agents: %v", err)
	}

	sm.Workflows = NewWorkflowService(db, sm.Tasks, sm.Emails, sm.Notifications, sm.Orchestrator, sm.Engine)
	sm.Scheduler = NewSchedulerService(db, sm.Workflows, sm.Contracts, sm.Outbox)

	sm.subscribeEvents()
	return sm
}

// subscribeEvents wires the outbox-published events into workflows, the
// approval fan-out and the agent orchestrator
func (sm *ServiceManager) subscribeEvents() {
	sm.EventBus.Subscribe(events.RecordCreated, func(ctx context.Context, payload interface{}) error {
		p, ok := payload.(events.RecordPayload)
		if !ok {
			return nil
		}
		sm.forwardToAgents(events.RecordCreated, &p)
		return sm.Workflows.OnRecordEvent(ctx, models.TriggerAfterCreate, p)
	})

	sm.EventBus.Subscribe(events.RecordUpdated, func(ctx context.Context, payload interface{}) error {
		p, ok := payload.(events.RecordPayload)
		if !ok {
			return nil
		}
		sm.forwardToAgents(events.RecordUpdated, &p)
		return sm.Workflows.OnRecordEvent(ctx, models.TriggerAfterUpdate, p)
	})

	sm.EventBus.Subscribe(events.RecordDeleted, func(ctx context.Context, payload interface{}) error {
		if p, ok := payload.(events.RecordPayload); ok {
			sm.forwardToAgents(events.RecordDeleted, &p)
		}
		return nil
	})

	sm.EventBus.Subscribe(events.ApprovalDecided, func(ctx context.Context, payload interface{}) error {
		p, ok := payload.(events.ApprovalPayload)
		if !ok {
			return nil
		}
		sm.Orchestrator.HandleEvent(events.ApprovalDecided.String(), map[string]interface{}{
			"org_id":      p.OrgID,
			"object_type": p.ObjectType,
			"record_id":   p.RecordID,
			"approved":    p.Approved,
		})

		switch p.ObjectType {
		case ObjectQuote:
			return sm.Quotes.HandleApprovalDecision(ctx, p.OrgID, p.RecordID, p.Approved)
		case ObjectContract:
			return sm.Contracts.HandleApprovalDecision(ctx, p.OrgID, p.RecordID, p.Approved)
		}
		return nil
	})

	sm.EventBus.Subscribe(events.ApprovalRecalled, func(ctx context.Context, payload interface{}) error {
		p, ok := payload.(events.ApprovalPayload)
		if !ok {
			return nil
		}

		switch p.ObjectType {
		case ObjectQuote:
			return sm.Quotes.HandleApprovalRecall(ctx, p.OrgID, p.RecordID)
		case ObjectContract:
			return sm.Contracts.HandleApprovalRecall(ctx, p.OrgID, p.RecordID)
		}
		return nil
	})
}

func (sm *ServiceManager) forwardToAgents(eventType events.EventType, p *events.RecordPayload) {
	sm.Orchestrator.HandleEvent(eventType.String(), map[string]interface{}{
		"org_id":      p.OrgID,
		"object_type": p.ObjectType,
		"record_id":   p.RecordID,
	})
}

// StartWorkers launches the outbox worker, email worker, scheduler and the
// agent orchestrator. Call during server startup.
func (sm *ServiceManager) StartWorkers(ctx context.Context) error {
	sm.Outbox.StartWorker(OutboxWorkerInterval)
	sm.Emails.StartWorker(EmailWorkerInterval)
	sm.Scheduler.Start(SchedulerInterval)
	return sm.Orchestrator.Start(ctx)
}

// StopWorkers shuts all background work down gracefully, in reverse order
func (sm *ServiceManager) StopWorkers() {
	sm.Orchestrator.Stop()
	sm.Scheduler.Stop()
	sm.Emails.StopWorker()
	sm.Outbox.StopWorker()
}

// buildSender picks the outbound mail provider from the environment.
// Console delivery is the development default.
func buildSender() email.Sender {
	if key := os.Getenv("SENDGRID_API_KEY"); key != "" {
		return email.NewHTTPSender("sendgrid", "https://api.sendgrid.com/v3/mail/send", key,
			os.Getenv("CRM_MAIL_FROM"))
	}
	if key := os.Getenv("RESEND_API_KEY"); key != "" {
		return email.NewHTTPSender("resend", "https://api.resend.com/emails", key,
			os.Getenv("CRM_MAIL_FROM"))
	}
	return email.NewConsoleSender()
}
