package models

import "time"

// Lead statuses
const (
	LeadStatusNew         = "New"
	LeadStatusWorking     = "Working"
	LeadStatusQualified   = "Qualified"
	LeadStatusUnqualified = "Unqualified"
	LeadStatusConverted   = "Converted"
)

// Lead is an unqualified prospect. Converting a lead produces a contact,
// an account and optionally an opportunity; a converted lead is read-only.
type Lead struct {
	ID        string  `json:"id"`
	OrgID     string  `json:"org_id"`
	OwnerID   string  `json:"owner_id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Company   string  `json:"company"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Website   string  `json:"website"`
	Title     string  `json:"title"`
	Status    string  `json:"status"`
	Source    string  `json:"source"`
	Score     int     `json:"score"`
	Industry  string  `json:"industry"`
	Employees int     `json:"employees"`
	Notes     string  `json:"notes"`

	// Set on conversion
	ConvertedContactID     *string    `json:"converted_contact_id,omitempty"`
	ConvertedAccountID     *string    `json:"converted_account_id,omitempty"`
	ConvertedOpportunityID *string    `json:"converted_opportunity_id,omitempty"`
	EnrichedAt             *time.Time `json:"enriched_at,omitempty"`

	Timestamps
}

// IsConverted reports whether the lead has been converted
func (l *Lead) IsConverted() bool {
	return l.Status == LeadStatusConverted
}

// ToEnv exposes the lead as an expression environment for workflow
// conditions and approval entry criteria
func (l *Lead) ToEnv() map[string]interface{} {
	return map[string]interface{}{
		"id":         l.ID,
		"owner_id":   l.OwnerID,
		"first_name": l.FirstName,
		"last_name":  l.LastName,
		"company":    l.Company,
		"email":      l.Email,
		"website":    l.Website,
		"status":     l.Status,
		"source":     l.Source,
		"score":      l.Score,
		"industry":   l.Industry,
		"employees":  l.Employees,
	}
}

// Contact is a person at an account
type Contact struct {
	ID        string  `json:"id"`
	OrgID     string  `json:"org_id"`
	OwnerID   string  `json:"owner_id"`
	AccountID *string `json:"account_id,omitempty"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Title     string  `json:"title"`

	Timestamps
}

// ToEnv exposes the contact as an expression environment
func (c *Contact) ToEnv() map[string]interface{} {
	accountID := ""
	if c.AccountID != nil {
		accountID = *c.AccountID
	}
	return map[string]interface{}{
		"id":         c.ID,
		"owner_id":   c.OwnerID,
		"account_id": accountID,
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"email":      c.Email,
		"title":      c.Title,
	}
}

// Account is a company being sold to
type Account struct {
	ID             string  `json:"id"`
	OrgID          string  `json:"org_id"`
	OwnerID        string  `json:"owner_id"`
	Name           string  `json:"name"`
	Domain         string  `json:"domain"`
	Industry       string  `json:"industry"`
	Employees      int     `json:"employees"`
	AnnualRevenue  float64 `json:"annual_revenue"`
	BillingCountry string  `json:"billing_country"`
	BillingState   string  `json:"billing_state"`
	TerritoryID    *string `json:"territory_id,omitempty"`

	Timestamps
}

// ToEnv exposes the account as an expression environment. Territory rules
// evaluate against this map.
func (a *Account) ToEnv() map[string]interface{} {
	return map[string]interface{}{
		"id":              a.ID,
		"owner_id":        a.OwnerID,
		"name":            a.Name,
		"domain":          a.Domain,
		"industry":        a.Industry,
		"employees":       a.Employees,
		"annual_revenue":  a.AnnualRevenue,
		"billing_country": a.BillingCountry,
		"billing_state":   a.BillingState,
	}
}

// Opportunity stages. Probability defaults are applied on stage change.
const (
	StageProspecting   = "Prospecting"
	StageQualification = "Qualification"
	StageProposal      = "Proposal"
	StageNegotiation   = "Negotiation"
	StageClosedWon     = "Closed Won"
	StageClosedLost    = "Closed Lost"
)

// StageProbability maps each stage to its default win probability
var StageProbability = map[string]int{
	StageProspecting:   10,
	StageQualification: 25,
	StageProposal:      50,
	StageNegotiation:   75,
	StageClosedWon:     100,
	StageClosedLost:    0,
}

// Opportunity is a potential deal on an account
type Opportunity struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	OwnerID     string     `json:"owner_id"`
	AccountID   string     `json:"account_id"`
	Name        string     `json:"name"`
	Stage       string     `json:"stage"`
	Amount      float64    `json:"amount"`
	Probability int        `json:"probability"`
	CloseDate   *time.Time `json:"close_date,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`

	Timestamps
}

// IsClosed reports whether the opportunity reached a terminal stage
func (o *Opportunity) IsClosed() bool {
	return o.Stage == StageClosedWon || o.Stage == StageClosedLost
}

// ToEnv exposes the opportunity as an expression environment
func (o *Opportunity) ToEnv() map[string]interface{} {
	return map[string]interface{}{
		"id":          o.ID,
		"owner_id":    o.OwnerID,
		"account_id":  o.AccountID,
		"name":        o.Name,
		"stage":       o.Stage,
		"amount":      o.Amount,
		"probability": o.Probability,
	}
}
