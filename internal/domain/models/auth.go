package models

import "time"

// Organization is the tenant root. Every business row carries its ID.
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Domain      string    `json:"domain"`
	Plan        string    `json:"plan"`
	CreatedDate time.Time `json:"created_date"`
}

// User profile names
const (
	ProfileOrgAdmin = "Org Admin"
	ProfileStandard = "Standard User"
)

// User is an authenticated member of an organization
type User struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Profile      string    `json:"profile"`
	ManagerID    *string   `json:"manager_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedDate  time.Time `json:"created_date"`
}

// Session returns the session view of the user
func (u *User) Session() *UserSession {
	return &UserSession{
		ID:        u.ID,
		OrgID:     u.OrgID,
		Name:      u.Name,
		Email:     u.Email,
		Profile:   u.Profile,
		ManagerID: u.ManagerID,
	}
}
