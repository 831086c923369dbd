package events

// EventType defines the type of event in the system
type EventType string

const (
	// Record events (published via the transactional outbox)
	RecordCreated EventType = "record.created"
	RecordUpdated EventType = "record.updated"
	RecordDeleted EventType = "record.deleted"

	// Approval events
	ApprovalDecided  EventType = "approval.decided"
	ApprovalRecalled EventType = "approval.recalled"

	// System events
	SystemStartup EventType = "system.startup"
)

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// RecordPayload is the wire payload for record events. Record and OldRecord
// are expression-environment maps (see models ToEnv methods) so workflow
// conditions can evaluate without knowing the concrete type.
type RecordPayload struct {
	ObjectType string                 `json:"object_type"`
	RecordID   string                 `json:"record_id"`
	OrgID      string                 `json:"org_id"`
	UserID     string                 `json:"user_id"`
	Record     map[string]interface{} `json:"record"`
	OldRecord  map[string]interface{} `json:"old_record,omitempty"`
}

// ApprovalPayload is the wire payload for approval decision and recall
// events. Recalls carry Approved=false and DecidedBy set to the submitter.
type ApprovalPayload struct {
	OrgID      string `json:"org_id"`
	WorkItemID string `json:"work_item_id"`
	ObjectType string `json:"object_type"`
	RecordID   string `json:"record_id"`
	Approved   bool   `json:"approved"`
	DecidedBy  string `json:"decided_by"`
}
