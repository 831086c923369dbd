package domain

import (
	"github.com/relaycrm/backend/internal/domain/models"
	apperrors "github.com/relaycrm/backend/pkg/errors"
)

// Lifecycle enforces valid status transitions for a resource.
// Invalid transitions return a StateTransitionError (fail-fast approach).
type Lifecycle struct {
	resource    string
	transitions map[transitionKey]bool
}

type transitionKey struct {
	from string
	to   string
}

func newLifecycle(resource string) *Lifecycle {
	return &Lifecycle{
		resource:    resource,
		transitions: make(map[transitionKey]bool),
	}
}

func (l *Lifecycle) allow(from, to string) *Lifecycle {
	l.transitions[transitionKey{from, to}] = true
	return l
}

// CanTransition reports whether from→to is a legal transition
func (l *Lifecycle) CanTransition(from, to string) bool {
	return l.transitions[transitionKey{from, to}]
}

// Transition validates from→to and returns the error to surface on violation
func (l *Lifecycle) Transition(from, to string) error {
	if !l.CanTransition(from, to) {
		return apperrors.NewStateTransitionError(l.resource, from, to)
	}
	return nil
}

// ContractLifecycle returns the contract status machine.
// State diagram:
//
//	Draft ──► In Approval ──► Approved ──► Sent ──► Signed ──► Activated
//	  ▲            │                                               │
//	  └────────────┘ (rejected back to Draft)          Expired / Terminated
//
// Terminated is reachable from any post-approval state.
func ContractLifecycle() *Lifecycle {
	return newLifecycle("Contract").
		allow(models.ContractStatusDraft, models.ContractStatusInApproval).
		allow(models.ContractStatusInApproval, models.ContractStatusApproved).
		allow(models.ContractStatusInApproval, models.ContractStatusDraft).
		allow(models.ContractStatusApproved, models.ContractStatusSent).
		allow(models.ContractStatusSent, models.ContractStatusSigned).
		allow(models.ContractStatusSigned, models.ContractStatusActivated).
		allow(models.ContractStatusActivated, models.ContractStatusExpired).
		allow(models.ContractStatusApproved, models.ContractStatusTerminated).
		allow(models.ContractStatusSent, models.ContractStatusTerminated).
		allow(models.ContractStatusSigned, models.ContractStatusTerminated).
		allow(models.ContractStatusActivated, models.ContractStatusTerminated)
}

// QuoteLifecycle returns the quote status machine.
// Draft ──► In Review ──► Approved / Rejected; Approved ──► Presented ──► Accepted.
// A rejected quote can be reworked back to Draft, and a recalled submission
// drops straight back to Draft. Draft quotes with no outsized discount may
// go straight to Approved (no approval process configured) or Presented.
func QuoteLifecycle() *Lifecycle {
	return newLifecycle("Quote").
		allow(models.QuoteStatusDraft, models.QuoteStatusInReview).
		allow(models.QuoteStatusDraft, models.QuoteStatusApproved).
		allow(models.QuoteStatusDraft, models.QuoteStatusPresented).
		allow(models.QuoteStatusInReview, models.QuoteStatusApproved).
		allow(models.QuoteStatusInReview, models.QuoteStatusRejected).
		allow(models.QuoteStatusInReview, models.QuoteStatusDraft).
		allow(models.QuoteStatusRejected, models.QuoteStatusDraft).
		allow(models.QuoteStatusApproved, models.QuoteStatusPresented).
		allow(models.QuoteStatusPresented, models.QuoteStatusAccepted)
}
