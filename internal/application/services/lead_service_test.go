package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaycrm/backend/internal/domain/models"
)

func TestValidateLeadTransition(t *testing.T) {
	assert.NoError(t, validateLeadTransition(models.LeadStatusNew, models.LeadStatusWorking))
	assert.NoError(t, validateLeadTransition(models.LeadStatusWorking, models.LeadStatusQualified))
	assert.NoError(t, validateLeadTransition(models.LeadStatusUnqualified, models.LeadStatusWorking))

	// Converted is only reachable through Convert, never a plain update
	assert.Error(t, validateLeadTransition(models.LeadStatusNew, models.LeadStatusConverted))
	assert.Error(t, validateLeadTransition(models.LeadStatusQualified, models.LeadStatusConverted))

	// No skipping straight to Qualified
	assert.Error(t, validateLeadTransition(models.LeadStatusNew, models.LeadStatusQualified))
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "acme.io", emailDomain("jane@acme.io"))
	assert.Equal(t, "acme.io", emailDomain("jane@ACME.IO"))

	// Free mail providers carry no firmographic signal
	assert.Equal(t, "", emailDomain("jane@gmail.com"))
	assert.Equal(t, "", emailDomain("jane@outlook.com"))

	assert.Equal(t, "", emailDomain("not-an-email"))
	assert.Equal(t, "", emailDomain("trailing@"))
}
