package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrGone means the push service no longer knows the endpoint.
var ErrGone = errors.New("push: subscription gone")

// Sender delivers one payload to one subscriber endpoint.
type Sender interface {
	Send(ctx context.Context, sub Subscription, msg Message) error
}

// HTTPSender posts the message as JSON to the subscription endpoint. Payload
// encryption is left to a relay in front of the browser push services; the
// subscription keys never leave this process.
type HTTPSender struct {
	client *http.Client
	ttl    time.Duration
}

// NewHTTPSender constructs an HTTPSender. A nil client gets a 10s timeout client.
func NewHTTPSender(client *http.Client, ttl time.Duration) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSender{client: client, ttl: ttl}
}

// Send delivers msg. 404 and 410 map to ErrGone.
func (s *HTTPSender) Send(ctx context.Context, sub Subscription, msg Message) error {
	body, err := json.Marshal(wirePayload{Title: msg.Title, Body: msg.Body, URL: msg.URL})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TTL", fmt.Sprintf("%d", int(s.ttl/time.Second)))
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return ErrGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push: endpoint answered %d", resp.StatusCode)
	}
	return nil
}

type wirePayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}
