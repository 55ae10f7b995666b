package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.stripe.com"

	// SignatureHeader carries the HMAC signature over the raw webhook body.
	SignatureHeader = "Stripe-Signature"

	EventCheckoutSessionCompleted = "checkout.session.completed"
)

// ProviderError is a failure reported by the payment provider itself, as
// opposed to a transport failure reaching it.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider error (status %d): %s", e.StatusCode, e.Message)
}

type Client struct {
	APIKey        string
	WebhookSecret string
	BaseURL       string // defaults to the live API
	FrontendURL   string
	Currency      string
	HTTPClient    *http.Client
	Tolerance     time.Duration // webhook timestamp window, defaults to 5m

	now func() time.Time // test override
}

func New(apiKey, webhookSecret, frontendURL, currency string) *Client {
	return &Client{
		APIKey:        apiKey,
		WebhookSecret: webhookSecret,
		FrontendURL:   frontendURL,
		Currency:      currency,
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

type LineItem struct {
	Name            string
	UnitAmountCents int64
	Quantity        int
}

type SessionRequest struct {
	LineItems          []LineItem
	DeliveryPriceCents int64
	OrderID            string
	RestaurantID       string
}

// Session is the external handle for a created checkout session. URL is the
// provider-hosted payment page the client gets redirected to.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession builds one priced line per resolved cart item plus a
// fixed "Delivery" shipping line, and embeds the order and restaurant ids as
// metadata. That metadata is the only channel that maps the provider's
// webhook events back to an internal order.
func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	form := url.Values{}
	for i, li := range req.LineItems {
		p := fmt.Sprintf("line_items[%d]", i)
		form.Set(p+"[price_data][currency]", c.Currency)
		form.Set(p+"[price_data][unit_amount]", strconv.FormatInt(li.UnitAmountCents, 10))
		form.Set(p+"[price_data][product_data][name]", li.Name)
		form.Set(p+"[quantity]", strconv.Itoa(li.Quantity))
	}
	form.Set("shipping_options[0][shipping_rate_data][display_name]", "Delivery")
	form.Set("shipping_options[0][shipping_rate_data][type]", "fixed_amount")
	form.Set("shipping_options[0][shipping_rate_data][fixed_amount][amount]", strconv.FormatInt(req.DeliveryPriceCents, 10))
	form.Set("shipping_options[0][shipping_rate_data][fixed_amount][currency]", c.Currency)
	form.Set("mode", "payment")
	form.Set("metadata[orderId]", req.OrderID)
	form.Set("metadata[restaurantId]", req.RestaurantID)
	form.Set("success_url", c.FrontendURL+"/order-status?success=true")
	form.Set("cancel_url", c.FrontendURL+"/detail/"+req.RestaurantID+"?cancelled=true")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL()+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, fmt.Errorf("build session request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var body struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := "unexpected response"
		if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr == nil && body.Error.Message != "" {
			msg = body.Error.Message
		}
		return Session{}, &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}

	var sess Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return Session{}, fmt.Errorf("decode session response: %w", err)
	}
	if sess.URL == "" {
		return Session{}, &ProviderError{StatusCode: resp.StatusCode, Message: "session has no redirect url"}
	}
	return sess, nil
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
