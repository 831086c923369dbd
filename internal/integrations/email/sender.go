// Package email delivers outbound mail. The worker in the email service
// drains the queue table through a Sender.
package email

import (
	"context"
	"log"
)

// Message is one outbound email
type Message struct {
	To      string
	Subject string
	Body    string

	// ICS attaches a text/calendar part for campaign invitations
	ICS string
}

// Sender delivers a single message
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// ConsoleSender logs messages instead of delivering them. Default in
// development when no provider API key is configured.
type ConsoleSender struct{}

func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{}
}

func (s *ConsoleSender) Name() string {
	return "console"
}

func (s *ConsoleSender) Send(ctx context.Context, msg *Message) error {
	log.Printf("📧 [console] To: %s Subject: %q (%d bytes body, ics=%v)",
		msg.To, msg.Subject, len(msg.Body), msg.ICS != "")
	return nil
}
