package bootstrap

import (
	"fmt"
	"log"

	"github.com/relaycrm/backend/internal/infrastructure/database"
)

// InitializeSchema creates all tables. Statements are idempotent so startup
// can run them every time.
func InitializeSchema(db *database.Connection) error {
	log.Println("🔧 Initializing schema...")

	for _, ddl := range tableDDL {
		if _, err := db.DB().Exec(ddl); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Printf("✅ Schema ready (%d tables)", len(tableDDL))
	return nil
}

// Tables are ordered so foreign references always point at an earlier table.
// Referential integrity is enforced in the services, not with FK constraints,
// so tenant data can be purged table by table.
var tableDDL = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		domain VARCHAR(255) NOT NULL DEFAULT '',
		plan VARCHAR(50) NOT NULL DEFAULT 'standard',
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		profile VARCHAR(50) NOT NULL,
		manager_id VARCHAR(36) NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uk_users_email (email),
		KEY idx_users_org (org_id)
	)`,

	`CREATE TABLE IF NOT EXISTS territories (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		rule TEXT NOT NULL,
		owner_id VARCHAR(36) NOT NULL,
		priority INT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_territories_org (org_id, priority)
	)`,

	`CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		owner_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		domain VARCHAR(255) NOT NULL DEFAULT '',
		industry VARCHAR(100) NOT NULL DEFAULT '',
		employees INT NOT NULL DEFAULT 0,
		annual_revenue DECIMAL(15,2) NOT NULL DEFAULT 0,
		billing_country VARCHAR(100) NOT NULL DEFAULT '',
		billing_state VARCHAR(100) NOT NULL DEFAULT '',
		territory_id VARCHAR(36) NULL,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_accounts_org (org_id),
		KEY idx_accounts_domain (org_id, domain)
	)`,

	`CREATE TABLE IF NOT EXISTS leads (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		owner_id VARCHAR(36) NOT NULL,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL,
		company VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(50) NOT NULL DEFAULT '',
		website VARCHAR(255) NOT NULL DEFAULT '',
		title VARCHAR(100) NOT NULL DEFAULT '',
		status VARCHAR(50) NOT NULL,
		source VARCHAR(100) NOT NULL DEFAULT '',
		score INT NOT NULL DEFAULT 0,
		industry VARCHAR(100) NOT NULL DEFAULT '',
		employees INT NOT NULL DEFAULT 0,
		notes TEXT NOT NULL,
		converted_contact_id VARCHAR(36) NULL,
		converted_account_id VARCHAR(36) NULL,
		converted_opportunity_id VARCHAR(36) NULL,
		enriched_at DATETIME NULL,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_leads_org_status (org_id, status)
	)`,

	`CREATE TABLE IF NOT EXISTS contacts (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		owner_id VARCHAR(36) NOT NULL,
		account_id VARCHAR(36) NULL,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(50) NOT NULL DEFAULT '',
		title VARCHAR(100) NOT NULL DEFAULT '',
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_contacts_org (org_id),
		KEY idx_contacts_account (account_id)
	)`,

	`CREATE TABLE IF NOT EXISTS opportunities (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		owner_id VARCHAR(36) NOT NULL,
		account_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		stage VARCHAR(50) NOT NULL,
		amount DECIMAL(15,2) NOT NULL DEFAULT 0,
		probability INT NOT NULL DEFAULT 0,
		close_date DATETIME NULL,
		closed_at DATETIME NULL,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_opportunities_org_stage (org_id, stage),
		KEY idx_opportunities_account (account_id)
	)`,

	`CREATE TABLE IF NOT EXISTS price_books (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		is_standard BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_price_books_org (org_id)
	)`,

	`CREATE TABLE IF NOT EXISTS price_book_entries (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		price_book_id VARCHAR(36) NOT NULL,
		product_code VARCHAR(100) NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		unit_price DECIMAL(15,2) NOT NULL,
		currency VARCHAR(10) NOT NULL DEFAULT 'USD',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_entries_book (price_book_id),
		UNIQUE KEY uk_entries_book_product (price_book_id, product_code)
	)`,

	`CREATE TABLE IF NOT EXISTS quotes (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		owner_id VARCHAR(36) NOT NULL,
		opportunity_id VARCHAR(36) NOT NULL,
		price_book_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		status VARCHAR(50) NOT NULL,
		subtotal DECIMAL(15,2) NOT NULL DEFAULT 0,
		discount_pct DECIMAL(5,2) NOT NULL DEFAULT 0,
		total DECIMAL(15,2) NOT NULL DEFAULT 0,
		expires_on DATETIME NULL,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_quotes_org (org_id),
		KEY idx_quotes_opportunity (opportunity_id)
	)`,

	`CREATE TABLE IF NOT EXISTS quote_lines (
		id VARCHAR(36) PRIMARY KEY,
		quote_id VARCHAR(36) NOT NULL,
		entry_id VARCHAR(36) NOT NULL,
		product_code VARCHAR(100) NOT NULL,
		quantity INT NOT NULL,
		unit_price DECIMAL(15,2) NOT NULL,
		tier_discount_pct DECIMAL(5,2) NOT NULL DEFAULT 0,
		line_total DECIMAL(15,2) NOT NULL,
		KEY idx_quote_lines_quote (quote_id)
	)`,

	`CREATE TABLE IF NOT EXISTS contracts (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		owner_id VARCHAR(36) NOT NULL,
		account_id VARCHAR(36) NOT NULL,
		quote_id VARCHAR(36) NULL,
		name VARCHAR(255) NOT NULL,
		status VARCHAR(50) NOT NULL,
		value DECIMAL(15,2) NOT NULL DEFAULT 0,
		term_months INT NOT NULL,
		start_date DATETIME NULL,
		end_date DATETIME NULL,
		activated_at DATETIME NULL,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_contracts_org_status (org_id, status),
		KEY idx_contracts_account (account_id),
		KEY idx_contracts_end_date (status, end_date)
	)`,

	`CREATE TABLE IF NOT EXISTS approval_processes (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		object_type VARCHAR(50) NOT NULL,
		entry_condition TEXT NOT NULL,
		approver_type VARCHAR(50) NOT NULL,
		approver_id VARCHAR(36) NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_processes_org_object (org_id, object_type)
	)`,

	`CREATE TABLE IF NOT EXISTS approval_work_items (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		process_id VARCHAR(36) NOT NULL,
		object_type VARCHAR(50) NOT NULL,
		record_id VARCHAR(36) NOT NULL,
		status VARCHAR(50) NOT NULL,
		submitted_by_id VARCHAR(36) NOT NULL,
		approver_id VARCHAR(36) NOT NULL,
		comments TEXT NOT NULL,
		decided_by_id VARCHAR(36) NULL,
		decided_date DATETIME NULL,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_work_items_approver (org_id, approver_id, status),
		KEY idx_work_items_record (org_id, object_type, record_id, status)
	)`,

	`CREATE TABLE IF NOT EXISTS workflows (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		object_type VARCHAR(50) NOT NULL,
		trigger_type VARCHAR(50) NOT NULL,
		condition_expr TEXT NOT NULL,
		action_type VARCHAR(50) NOT NULL,
		action_config TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		schedule VARCHAR(100) NULL,
		next_run_at DATETIME NULL,
		last_run_at DATETIME NULL,
		is_running BOOLEAN NOT NULL DEFAULT FALSE,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_workflows_org_trigger (org_id, trigger_type, is_active),
		KEY idx_workflows_due (trigger_type, is_active, next_run_at)
	)`,

	`CREATE TABLE IF NOT EXISTS campaigns (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		owner_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(50) NOT NULL,
		status VARCHAR(50) NOT NULL,
		start_date DATETIME NULL,
		end_date DATETIME NULL,
		budget DECIMAL(15,2) NOT NULL DEFAULT 0,
		location VARCHAR(255) NOT NULL DEFAULT '',
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_campaigns_org (org_id)
	)`,

	`CREATE TABLE IF NOT EXISTS campaign_members (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		campaign_id VARCHAR(36) NOT NULL,
		lead_id VARCHAR(36) NULL,
		contact_id VARCHAR(36) NULL,
		email VARCHAR(255) NOT NULL,
		status VARCHAR(50) NOT NULL,
		responded_at DATETIME NULL,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_members_campaign (campaign_id, status),
		UNIQUE KEY uk_members_campaign_email (campaign_id, email)
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		recipient_id VARCHAR(36) NOT NULL,
		title VARCHAR(255) NOT NULL,
		body TEXT NOT NULL,
		link VARCHAR(255) NOT NULL DEFAULT '',
		type VARCHAR(50) NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_notifications_recipient (org_id, recipient_id, is_read)
	)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		owner_id VARCHAR(36) NOT NULL,
		subject VARCHAR(255) NOT NULL,
		status VARCHAR(50) NOT NULL,
		due_date DATETIME NULL,
		related_type VARCHAR(50) NOT NULL DEFAULT '',
		related_id VARCHAR(36) NOT NULL DEFAULT '',
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_tasks_owner (org_id, owner_id, status)
	)`,

	`CREATE TABLE IF NOT EXISTS email_messages (
		id VARCHAR(36) PRIMARY KEY,
		org_id VARCHAR(36) NOT NULL,
		to_address VARCHAR(255) NOT NULL,
		subject VARCHAR(255) NOT NULL,
		body TEXT NOT NULL,
		ics TEXT NOT NULL,
		status VARCHAR(50) NOT NULL,
		provider VARCHAR(50) NOT NULL DEFAULT '',
		attempts INT NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL,
		related_type VARCHAR(50) NOT NULL DEFAULT '',
		related_id VARCHAR(36) NOT NULL DEFAULT '',
		sent_at DATETIME NULL,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_emails_status (status, created_date),
		KEY idx_emails_related (related_type, related_id)
	)`,

	`CREATE TABLE IF NOT EXISTS outbox_events (
		id VARCHAR(36) PRIMARY KEY,
		event_type VARCHAR(100) NOT NULL,
		payload JSON NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		retry_count INT NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL,
		processed_date DATETIME NULL,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_outbox_status (status, created_date)
	)`,
}
