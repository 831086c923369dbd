package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInvite(t *testing.T) {
	start := time.Date(2026, 9, 15, 17, 0, 0, 0, time.UTC)

	out := GenerateInvite(Invite{
		UID:           "campaign-42-member-7",
		Summary:       "Product Launch; Fall",
		Description:   "Join us",
		Location:      "HQ, Floor 3",
		Start:         start,
		End:           start.Add(2 * time.Hour),
		OrganizerName: "Sales Team",
		OrganizerMail: "sales@relaycrm.example",
		AttendeeMail:  "jane@example.com",
	})

	assert.Contains(t, out, "METHOD:REQUEST")
	assert.Contains(t, out, "UID:campaign-42-member-7")
	assert.Contains(t, out, "DTSTART:20260915T170000Z")
	assert.Contains(t, out, "SUMMARY:Product Launch\\; Fall")
	assert.Contains(t, out, "LOCATION:HQ\\, Floor 3")
	assert.Contains(t, out, "ATTENDEE;RSVP=TRUE;PARTSTAT=NEEDS-ACTION:mailto:jane@example.com")
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
}

func TestParseReply(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		raw := "BEGIN:VCALENDAR\r\n" +
			"METHOD:REPLY\r\n" +
			"BEGIN:VEVENT\r\n" +
			"UID:campaign-42-member-7\r\n" +
			"ATTENDEE;PARTSTAT=ACCEPTED;CN=Jane Doe:mailto:Jane@Example.com\r\n" +
			"END:VEVENT\r\n" +
			"END:VCALENDAR\r\n"

		reply, err := ParseReply(raw)
		require.NoError(t, err)
		assert.Equal(t, "campaign-42-member-7", reply.UID)
		assert.Equal(t, "jane@example.com", reply.AttendeeMail)
		assert.Equal(t, PartStatAccepted, reply.PartStat)
	})

	t.Run("Folded attendee line", func(t *testing.T) {
		raw := "BEGIN:VCALENDAR\nMETHOD:REPLY\nUID:u1\n" +
			"ATTENDEE;PARTSTAT=DECLINED;\n CN=Bob:mailto:bob@example.com\n" +
			"END:VCALENDAR\n"

		reply, err := ParseReply(raw)
		require.NoError(t, err)
		assert.Equal(t, PartStatDeclined, reply.PartStat)
		assert.Equal(t, "bob@example.com", reply.AttendeeMail)
	})

	t.Run("Not a reply", func(t *testing.T) {
		raw := "BEGIN:VCALENDAR\nMETHOD:REQUEST\nUID:u1\n" +
			"ATTENDEE;PARTSTAT=ACCEPTED:mailto:a@b.c\nEND:VCALENDAR\n"

		_, err := ParseReply(raw)
		assert.Error(t, err)
	})

	t.Run("Missing PARTSTAT", func(t *testing.T) {
		raw := "METHOD:REPLY\nUID:u1\nATTENDEE:mailto:a@b.c\n"

		_, err := ParseReply(raw)
		assert.Error(t, err)
	})
}
