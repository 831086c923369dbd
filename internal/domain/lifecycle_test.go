package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaycrm/backend/internal/domain/models"
	apperrors "github.com/relaycrm/backend/pkg/errors"
)

func TestContractLifecycle(t *testing.T) {
	lc := ContractLifecycle()

	t.Run("Happy path", func(t *testing.T) {
		path := []string{
			models.ContractStatusDraft,
			models.ContractStatusInApproval,
			models.ContractStatusApproved,
			models.ContractStatusSent,
			models.ContractStatusSigned,
			models.ContractStatusActivated,
			models.ContractStatusExpired,
		}
		for i := 0; i < len(path)-1; i++ {
			assert.NoError(t, lc.Transition(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
		}
	})

	t.Run("Rejection returns to draft", func(t *testing.T) {
		assert.NoError(t, lc.Transition(models.ContractStatusInApproval, models.ContractStatusDraft))
	})

	t.Run("Termination from post-approval states", func(t *testing.T) {
		for _, from := range []string{
			models.ContractStatusApproved,
			models.ContractStatusSent,
			models.ContractStatusSigned,
			models.ContractStatusActivated,
		} {
			assert.NoError(t, lc.Transition(from, models.ContractStatusTerminated), from)
		}
	})

	t.Run("Illegal transitions", func(t *testing.T) {
		err := lc.Transition(models.ContractStatusDraft, models.ContractStatusActivated)
		assert.Error(t, err)
		assert.True(t, apperrors.IsStateTransition(err))

		assert.Error(t, lc.Transition(models.ContractStatusExpired, models.ContractStatusActivated))
		assert.Error(t, lc.Transition(models.ContractStatusTerminated, models.ContractStatusDraft))
		assert.Error(t, lc.Transition(models.ContractStatusDraft, models.ContractStatusTerminated))
	})
}

func TestQuoteLifecycle(t *testing.T) {
	lc := QuoteLifecycle()

	t.Run("Review path", func(t *testing.T) {
		assert.NoError(t, lc.Transition(models.QuoteStatusDraft, models.QuoteStatusInReview))
		assert.NoError(t, lc.Transition(models.QuoteStatusInReview, models.QuoteStatusApproved))
		assert.NoError(t, lc.Transition(models.QuoteStatusApproved, models.QuoteStatusPresented))
		assert.NoError(t, lc.Transition(models.QuoteStatusPresented, models.QuoteStatusAccepted))
	})

	t.Run("Rework after rejection", func(t *testing.T) {
		assert.NoError(t, lc.Transition(models.QuoteStatusInReview, models.QuoteStatusRejected))
		assert.NoError(t, lc.Transition(models.QuoteStatusRejected, models.QuoteStatusDraft))
	})

	t.Run("Recall returns to draft", func(t *testing.T) {
		// A withdrawn submission must not strand the quote in review
		assert.NoError(t, lc.Transition(models.QuoteStatusInReview, models.QuoteStatusDraft))
	})

	t.Run("Illegal transitions", func(t *testing.T) {
		assert.Error(t, lc.Transition(models.QuoteStatusAccepted, models.QuoteStatusDraft))
		assert.Error(t, lc.Transition(models.QuoteStatusRejected, models.QuoteStatusAccepted))
		assert.Error(t, lc.Transition(models.QuoteStatusDraft, models.QuoteStatusAccepted))
	})
}
