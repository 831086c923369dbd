package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPSender posts messages to a transactional email provider's JSON API
// (resend/sendgrid style endpoint taking to/subject/body fields).
type HTTPSender struct {
	name     string
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

// NewHTTPSender creates an API-backed sender
func NewHTTPSender(name, endpoint, apiKey, from string) *HTTPSender {
	return &HTTPSender{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *HTTPSender) Name() string {
	return s.name
}

func (s *HTTPSender) Send(ctx context.Context, msg *Message) error {
	payload := map[string]interface{}{
		"from":    s.from,
		"to":      msg.To,
		"subject": msg.Subject,
		"text":    msg.Body,
	}
	if msg.ICS != "" {
		payload["attachments"] = []map[string]string{
			{
				"filename":     "invite.ics",
				"content_type": "text/calendar; method=REQUEST",
				"content":      msg.ICS,
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", s.name, resp.StatusCode)
	}
	return nil
}
