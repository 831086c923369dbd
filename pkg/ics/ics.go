// Package ics implements the minimal slice of RFC 5545 needed for campaign
// invitations (METHOD:REQUEST) and RSVP handling (METHOD:REPLY with PARTSTAT).
package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Participation statuses carried in ATTENDEE;PARTSTAT=...
const (
	PartStatAccepted  = "ACCEPTED"
	PartStatDeclined  = "DECLINED"
	PartStatTentative = "TENTATIVE"
)

const dateTimeLayout = "20060102T150405Z"

// Invite describes a single calendar event invitation
type Invite struct {
	UID           string
	Summary       string
	Description   string
	Location      string
	Start         time.Time
	End           time.Time
	OrganizerName string
	OrganizerMail string
	AttendeeMail  string
}

// Reply is the parsed result of an RSVP response
type Reply struct {
	UID          string
	AttendeeMail string
	PartStat     string
}

// GenerateInvite renders a METHOD:REQUEST calendar object for the invite
func GenerateInvite(inv Invite) string {
	var b strings.Builder

	writeLine := func(line string) {
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("VERSION:2.0")
	writeLine("PRODID:-//RelayCRM//Campaign Invitations//EN")
	writeLine("METHOD:REQUEST")
	writeLine("BEGIN:VEVENT")
	writeLine("UID:" + inv.UID)
	writeLine("DTSTAMP:" + time.Now().UTC().Format(dateTimeLayout))
	writeLine("DTSTART:" + inv.Start.UTC().Format(dateTimeLayout))
	writeLine("DTEND:" + inv.End.UTC().Format(dateTimeLayout))
	writeLine("SUMMARY:" + escapeText(inv.Summary))
	if inv.Description != "" {
		writeLine("DESCRIPTION:" + escapeText(inv.Description))
	}
	if inv.Location != "" {
		writeLine("LOCATION:" + escapeText(inv.Location))
	}
	writeLine(fmt.Sprintf("ORGANIZER;CN=%s:mailto:%s", inv.OrganizerName, inv.OrganizerMail))
	writeLine(fmt.Sprintf("ATTENDEE;RSVP=TRUE;PARTSTAT=NEEDS-ACTION:mailto:%s", inv.AttendeeMail))
	writeLine("END:VEVENT")
	writeLine("END:VCALENDAR")

	return b.String()
}

// ParseReply extracts UID, attendee and PARTSTAT from a METHOD:REPLY payload.
// Returns an error if the payload is not a reply or carries no participation
// status.
func ParseReply(raw string) (*Reply, error) {
	lines := unfold(raw)

	reply := &Reply{}
	isReply := false

	for _, line := range lines {
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "METHOD:"):
			if strings.TrimSpace(upper[len("METHOD:"):]) == "REPLY" {
				isReply = true
			}
		case strings.HasPrefix(upper, "UID"):
			if idx := strings.Index(line, ":"); idx >= 0 {
				reply.UID = strings.TrimSpace(line[idx+1:])
			}
		case strings.HasPrefix(upper, "ATTENDEE"):
			parseAttendee(line, reply)
		}
	}

	if !isReply {
		return nil, errors.New("calendar payload is not a METHOD:REPLY")
	}
	if reply.PartStat == "" {
		return nil, errors.New("reply has no PARTSTAT")
	}
	if reply.UID == "" {
		return nil, errors.New("reply has no UID")
	}

	return reply, nil
}

func parseAttendee(line string, reply *Reply) {
	// Property parameters are ; separated before the value colon:
	// ATTENDEE;PARTSTAT=ACCEPTED;CN=Jane:mailto:jane@example.com
	valueIdx := strings.Index(line, ":")
	if valueIdx < 0 {
		return
	}

	params := line[:valueIdx]
	value := line[valueIdx+1:]

	for _, param := range strings.Split(params, ";") {
		kv := strings.SplitN(param, "=", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(kv[0]), "PARTSTAT") {
			reply.PartStat = strings.ToUpper(strings.TrimSpace(kv[1]))
		}
	}

	mail := strings.TrimSpace(value)
	if strings.HasPrefix(strings.ToLower(mail), "mailto:") {
		mail = mail[len("mailto:"):]
	}
	reply.AttendeeMail = strings.ToLower(mail)
}

// unfold joins RFC 5545 folded lines (continuation lines start with a space
// or tab) and normalises line endings.
func unfold(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += strings.TrimLeft(line, " \t")
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func escapeText(s string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
	)
	return replacer.Replace(s)
}
