package persistence

// Table names
const (
	TableOrganizations     = "organizations"
	TableUsers             = "users"
	TableLeads             = "leads"
	TableContacts          = "contacts"
	TableAccounts          = "accounts"
	TableOpportunities     = "opportunities"
	TablePriceBooks        = "price_books"
	TablePriceBookEntries  = "price_book_entries"
	TableQuotes            = "quotes"
	TableQuoteLines        = "quote_lines"
	TableContracts         = "contracts"
	TableApprovalProcesses = "approval_processes"
	TableApprovalWorkItems = "approval_work_items"
	TableWorkflows         = "workflows"
	TableCampaigns         = "campaigns"
	TableCampaignMembers   = "campaign_members"
	TableTerritories       = "territories"
	TableNotifications     = "notifications"
	TableTasks             = "tasks"
	TableEmailMessages     = "email_messages"
	TableOutboxEvents      = "outbox_events"
)

// Outbox event statuses
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusCompleted  = "completed"
	OutboxStatusFailed     = "failed"
)

// MaxListLimit caps list query page sizes
const MaxListLimit = 200
