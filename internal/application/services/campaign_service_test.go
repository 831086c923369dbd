package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/pkg/ics"
)

func TestPartStatToMemberStatus(t *testing.T) {
	status, ok := partStatToMemberStatus(ics.PartStatAccepted)
	assert.True(t, ok)
	assert.Equal(t, models.MemberStatusAccepted, status)

	status, ok = partStatToMemberStatus(ics.PartStatDeclined)
	assert.True(t, ok)
	assert.Equal(t, models.MemberStatusDeclined, status)

	status, ok = partStatToMemberStatus(ics.PartStatTentative)
	assert.True(t, ok)
	assert.Equal(t, models.MemberStatusTentative, status)

	_, ok = partStatToMemberStatus("NEEDS-ACTION")
	assert.False(t, ok)
}

func TestInviteRoundTripsThroughReply(t *testing.T) {
	// A reply built from our own invite UID should map back onto the member
	raw := "BEGIN:VCALENDAR\r\nMETHOD:REPLY\r\nBEGIN:VEVENT\r\nUID:member-123\r\n" +
		"ATTENDEE;PARTSTAT=ACCEPTED:mailto:jane@acme.io\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

	reply, err := ics.ParseReply(raw)
	assert.NoError(t, err)
	assert.Equal(t, "member-123", reply.UID)
	assert.Equal(t, "jane@acme.io", reply.AttendeeMail)

	status, ok := partStatToMemberStatus(reply.PartStat)
	assert.True(t, ok)
	assert.Equal(t, models.MemberStatusAccepted, status)
}
