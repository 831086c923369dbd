package models

import "time"

// Workflow trigger types
const (
	TriggerAfterCreate = "afterCreate"
	TriggerAfterUpdate = "afterUpdate"
	TriggerScheduled   = "scheduled"
)

// Workflow action types
const (
	ActionFieldUpdate  = "field_update"
	ActionCreateTask   = "create_task"
	ActionSendEmail    = "send_email"
	ActionNotify       = "notify"
	ActionEnqueueAgent = "enqueue_agent"
)

// Workflow is a user-configured trigger→condition→action automation rule.
// Condition is an expr expression evaluated against the record environment
// (old field values are available under the "old" map for update triggers).
// ActionConfig is a JSON object whose shape depends on ActionType.
type Workflow struct {
	ID           string `json:"id"`
	OrgID        string `json:"org_id"`
	Name         string `json:"name"`
	ObjectType   string `json:"object_type"`
	TriggerType  string `json:"trigger_type"`
	Condition    string `json:"condition"`
	ActionType   string `json:"action_type"`
	ActionConfig string `json:"action_config"`
	IsActive     bool   `json:"is_active"`

	// Scheduled workflows only
	Schedule  *string    `json:"schedule,omitempty"` // cron expression
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	IsRunning bool       `json:"is_running"`

	Timestamps
}

// Approval statuses
const (
	ApprovalStatusPending  = "Pending"
	ApprovalStatusApproved = "Approved"
	ApprovalStatusRejected = "Rejected"
	ApprovalStatusRecalled = "Recalled"
)

// Approver rule types
const (
	ApproverTypeNamed   = "Named"
	ApproverTypeManager = "Manager"
)

// ApprovalProcess defines who approves records of an object type and when
// a record qualifies for submission (EntryCondition, expr).
type ApprovalProcess struct {
	ID             string  `json:"id"`
	OrgID          string  `json:"org_id"`
	Name           string  `json:"name"`
	ObjectType     string  `json:"object_type"`
	EntryCondition string  `json:"entry_condition"`
	ApproverType   string  `json:"approver_type"`
	ApproverID     *string `json:"approver_id,omitempty"`
	IsActive       bool    `json:"is_active"`

	Timestamps
}

// ApprovalWorkItem is one pending/decided approval request
type ApprovalWorkItem struct {
	ID            string     `json:"id"`
	OrgID         string     `json:"org_id"`
	ProcessID     string     `json:"process_id"`
	ObjectType    string     `json:"object_type"`
	RecordID      string     `json:"record_id"`
	Status        string     `json:"status"`
	SubmittedByID string     `json:"submitted_by_id"`
	ApproverID    string     `json:"approver_id"`
	Comments      string     `json:"comments"`
	DecidedByID   *string    `json:"decided_by_id,omitempty"`
	DecidedDate   *time.Time `json:"decided_date,omitempty"`

	Timestamps
}

// Campaign types and statuses
const (
	CampaignStatusPlanned    = "Planned"
	CampaignStatusInProgress = "In Progress"
	CampaignStatusCompleted  = "Completed"
	CampaignStatusAborted    = "Aborted"
)

// Campaign is a marketing initiative with invitable members
type Campaign struct {
	ID        string     `json:"id"`
	OrgID     string     `json:"org_id"`
	OwnerID   string     `json:"owner_id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Budget    float64    `json:"budget"`
	Location  string     `json:"location"`

	Timestamps
}

// ToEnv exposes the campaign as an expression environment
func (c *Campaign) ToEnv() map[string]interface{} {
	return map[string]interface{}{
		"id":       c.ID,
		"owner_id": c.OwnerID,
		"name":     c.Name,
		"type":     c.Type,
		"status":   c.Status,
		"budget":   c.Budget,
	}
}

// Campaign member statuses (RSVP lifecycle)
const (
	MemberStatusInvited   = "Invited"
	MemberStatusAccepted  = "Accepted"
	MemberStatusDeclined  = "Declined"
	MemberStatusTentative = "Tentative"
	MemberStatusAttended  = "Attended"
)

// CampaignMember links a lead or contact to a campaign
type CampaignMember struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	CampaignID  string     `json:"campaign_id"`
	LeadID      *string    `json:"lead_id,omitempty"`
	ContactID   *string    `json:"contact_id,omitempty"`
	Email       string     `json:"email"`
	Status      string     `json:"status"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	Timestamps
}

// Territory carries an expr rule over account fields. Matching picks the
// lowest Priority number among matching territories.
type Territory struct {
	ID       string `json:"id"`
	OrgID    string `json:"org_id"`
	Name     string `json:"name"`
	Rule     string `json:"rule"`
	OwnerID  string `json:"owner_id"`
	Priority int    `json:"priority"`
	IsActive bool   `json:"is_active"`

	Timestamps
}

// Notification is an in-app message for a single recipient
type Notification struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	RecipientID string    `json:"recipient_id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Link        string    `json:"link"`
	Type        string    `json:"type"`
	IsRead      bool      `json:"is_read"`
	CreatedDate time.Time `json:"created_date"`
}

// Task statuses
const (
	TaskStatusOpen      = "Open"
	TaskStatusCompleted = "Completed"
)

// Task is a lightweight activity record, typically created by workflows
type Task struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	OwnerID     string     `json:"owner_id"`
	Subject     string     `json:"subject"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	RelatedType string     `json:"related_type"`
	RelatedID   string     `json:"related_id"`

	Timestamps
}

// Email message statuses
const (
	EmailStatusQueued = "Queued"
	EmailStatusSent   = "Sent"
	EmailStatusFailed = "Failed"
)

// EmailMessage is a row in the transactional email log. Queued messages are
// drained by the email worker.
type EmailMessage struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	ToAddress   string     `json:"to_address"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	ICS         string     `json:"-"` // optional text/calendar attachment
	Status      string     `json:"status"`
	Provider    string     `json:"provider"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error"`
	RelatedType string     `json:"related_type"`
	RelatedID   string     `json:"related_id"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CreatedDate time.Time  `json:"created_date"`
}

// OutboxEvent is a transactional outbox row carrying a serialized record
// event until the worker publishes it on the in-process bus
type OutboxEvent struct {
	ID            string     `json:"id"`
	EventType     string     `json:"event_type"`
	Payload       string     `json:"payload"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	LastError     string     `json:"last_error"`
	CreatedDate   time.Time  `json:"created_date"`
	ProcessedDate *time.Time `json:"processed_date,omitempty"`
}
