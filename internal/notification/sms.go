package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SMSConfig holds configuration for the SMS gateway.
type SMSConfig struct {
	APIURL    string
	APIKey    string
	APISecret string
	From      string
}

// SMSDispatcher delivers one-time codes through a Vonage-style HTTP gateway.
type SMSDispatcher struct {
	config SMSConfig
	client *http.Client
}

// NewSMSDispatcher creates an SMS dispatcher.
func NewSMSDispatcher(config SMSConfig) *SMSDispatcher {
	return &SMSDispatcher{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers the code to the given phone number.
func (s *SMSDispatcher) Send(ctx context.Context, to, code string) error {
	payload := map[string]string{
		"api_key":    s.config.APIKey,
		"api_secret": s.config.APISecret,
		"from":       s.config.From,
		"to":         to,
		"text":       fmt.Sprintf("Your security code is: %s. Expires in 10 min.", code),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
