// Package models defines the domain models for the RelayCRM backend.
//
// The models are organized into the following files:
// - auth.go: Organizations, users and sessions
// - crm.go: Leads, contacts, accounts and opportunities
// - quoting.go: Price books, quotes and contracts
// - automation.go: Workflows, approvals, campaigns, territories,
//   notifications, tasks, email log and outbox events
package models

import "time"

// UserSession is the authenticated caller passed through every service.
// OrgID is the tenant boundary: repositories must scope every query by it.
type UserSession struct {
	ID        string  `json:"id"`
	OrgID     string  `json:"org_id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Profile   string  `json:"profile"`
	ManagerID *string `json:"manager_id,omitempty"`
}

// IsAdmin reports whether the user has org administrator privileges
func (u *UserSession) IsAdmin() bool {
	return u.Profile == "Org Admin"
}

// Timestamps carries the audit columns every business table has
type Timestamps struct {
	CreatedDate  time.Time `json:"created_date"`
	ModifiedDate time.Time `json:"modified_date"`
}
