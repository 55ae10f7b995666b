package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Mailer sends customer-facing transactional mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// HTTPMailer posts form-encoded messages to a transactional mail HTTP API.
type HTTPMailer struct {
	APIURL     string
	APIKey     string
	Sender     string
	HTTPClient *http.Client
}

func NewHTTPMailer(apiURL, apiKey, sender string) *HTTPMailer {
	return &HTTPMailer{
		APIURL:     apiURL,
		APIKey:     apiKey,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *HTTPMailer) Send(ctx context.Context, to, subject, body string) error {
	data := url.Values{}
	data.Set("from", m.Sender)
	data.Set("to", to)
	data.Set("subject", subject)
	data.Set("text", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.APIURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth("api", m.APIKey)

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiResp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiResp)
		return fmt.Errorf("mail API returned status %d: %s", resp.StatusCode, apiResp.Message)
	}
	return nil
}
