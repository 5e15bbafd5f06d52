// Package email sends reports through the email relay.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"
)

const sendTimeout = 30 * time.Second

// ErrNotConfigured is returned when the relay token or recipient is missing.
var ErrNotConfigured = errors.New("email relay not configured")

// ErrUnauthorized is returned when the relay rejects the token.
var ErrUnauthorized = errors.New("email relay rejected the token (401 Unauthorized)")

// Message is one email.
type Message struct {
	Subject string
	Body    string
	// BodyIsHTML sends Body as-is instead of wrapping it in a <pre> block.
	BodyIsHTML bool
}

// Sender posts messages to the relay.
type Sender struct {
	url    string
	token  string
	to     string
	from   string
	client *http.Client
}

// NewSender creates a Sender. from defaults to to.
func NewSender(url, token, to, from string) *Sender {
	if from == "" {
		from = to
	}
	return &Sender{
		url:    url,
		token:  token,
		to:     to,
		from:   from,
		client: &http.Client{Timeout: sendTimeout},
	}
}

// To is the configured recipient.
func (s *Sender) To() string { return s.to }

type payload struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Send posts msg to the relay.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if s.token == "" {
		return fmt.Errorf("%w: WAKEFLOW_TOKEN not set", ErrNotConfigured)
	}
	if s.to == "" {
		return fmt.Errorf("%w: EMAIL_TO not set", ErrNotConfigured)
	}

	body := msg.Body
	if !msg.BodyIsHTML {
		body = `<pre style="white-space: pre-wrap; font-family: sans-serif;">` + html.EscapeString(msg.Body) + `</pre>`
	}
	data, err := json.Marshal(payload{To: s.to, From: s.from, Subject: msg.Subject, Body: body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 300:
		return fmt.Errorf("email failed: status %d", resp.StatusCode)
	}
	return nil
}
