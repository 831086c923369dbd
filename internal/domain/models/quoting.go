package models

import "time"

// PriceBook groups sellable entries. Each org has one standard book created
// at bootstrap; additional books can hold promotional pricing.
type PriceBook struct {
	ID         string `json:"id"`
	OrgID      string `json:"org_id"`
	Name       string `json:"name"`
	IsStandard bool   `json:"is_standard"`
	IsActive   bool   `json:"is_active"`

	Timestamps
}

// PriceBookEntry is a priced product within a book
type PriceBookEntry struct {
	ID          string  `json:"id"`
	OrgID       string  `json:"org_id"`
	PriceBookID string  `json:"price_book_id"`
	ProductCode string  `json:"product_code"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	Currency    string  `json:"currency"`
	IsActive    bool    `json:"is_active"`

	Timestamps
}

// Quote statuses
const (
	QuoteStatusDraft     = "Draft"
	QuoteStatusInReview  = "In Review"
	QuoteStatusApproved  = "Approved"
	QuoteStatusRejected  = "Rejected"
	QuoteStatusPresented = "Presented"
	QuoteStatusAccepted  = "Accepted"
)

// Quote is a priced proposal against an opportunity. Totals are always
// recomputed server-side from the lines.
type Quote struct {
	ID            string     `json:"id"`
	OrgID         string     `json:"org_id"`
	OwnerID       string     `json:"owner_id"`
	OpportunityID string     `json:"opportunity_id"`
	PriceBookID   string     `json:"price_book_id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	Subtotal      float64    `json:"subtotal"`
	DiscountPct   float64    `json:"discount_pct"` // quote-level, on top of line tiers
	Total         float64    `json:"total"`
	ExpiresOn     *time.Time `json:"expires_on,omitempty"`

	Lines []QuoteLine `json:"lines,omitempty"`

	Timestamps
}

// ToEnv exposes the quote as an expression environment
func (q *Quote) ToEnv() map[string]interface{} {
	return map[string]interface{}{
		"id":             q.ID,
		"owner_id":       q.OwnerID,
		"opportunity_id": q.OpportunityID,
		"status":         q.Status,
		"subtotal":       q.Subtotal,
		"discount_pct":   q.DiscountPct,
		"total":          q.Total,
	}
}

// QuoteLine is a single product line on a quote. TierDiscountPct is derived
// from the quantity volume tiers, never set by the client.
type QuoteLine struct {
	ID              string  `json:"id"`
	QuoteID         string  `json:"quote_id"`
	EntryID         string  `json:"entry_id"`
	ProductCode     string  `json:"product_code"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	TierDiscountPct float64 `json:"tier_discount_pct"`
	LineTotal       float64 `json:"line_total"`
}

// Contract statuses
const (
	ContractStatusDraft      = "Draft"
	ContractStatusInApproval = "In Approval"
	ContractStatusApproved   = "Approved"
	ContractStatusSent       = "Sent"
	ContractStatusSigned     = "Signed"
	ContractStatusActivated  = "Activated"
	ContractStatusExpired    = "Expired"
	ContractStatusTerminated = "Terminated"
)

// Contract is a signed commitment on an account, optionally born from an
// accepted quote
type Contract struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	OwnerID     string     `json:"owner_id"`
	AccountID   string     `json:"account_id"`
	QuoteID     *string    `json:"quote_id,omitempty"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Value       float64    `json:"value"`
	TermMonths  int        `json:"term_months"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`

	Timestamps
}

// ToEnv exposes the contract as an expression environment
func (c *Contract) ToEnv() map[string]interface{} {
	return map[string]interface{}{
		"id":          c.ID,
		"owner_id":    c.OwnerID,
		"account_id":  c.AccountID,
		"status":      c.Status,
		"value":       c.Value,
		"term_months": c.TermMonths,
	}
}
