package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eternaldev/recipe-backend/pkg/logger"
)

// Client represents a payment intent REST API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// CreatePaymentIntent asks the provider for a new intent. Retrying with the
// same IdempotencyKey returns the original intent.
func (c *Client) CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*PaymentIntent, error) {
	if req.Amount <= 0 || req.Currency == "" {
		return nil, ErrInvalidRequest
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	if req.Description != "" {
		form.Set("description", req.Description)
	}
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var intent PaymentIntent
	if err := c.doRequest(ctx, http.MethodPost, "/payment_intents", form, req.IdempotencyKey, &intent); err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return &intent, nil
}

// GetPaymentIntent fetches the current state of an intent
func (c *Client) GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	if intentID == "" {
		return nil, ErrInvalidRequest
	}

	var intent PaymentIntent
	if err := c.doRequest(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(intentID), nil, "", &intent); err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return &intent, nil
}

// CancelPaymentIntent cancels an intent that has not succeeded
func (c *Client) CancelPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	if intentID == "" {
		return nil, ErrInvalidRequest
	}

	var intent PaymentIntent
	if err := c.doRequest(ctx, http.MethodPost, "/payment_intents/"+url.PathEscape(intentID)+"/cancel", url.Values{}, "", &intent); err != nil {
		return nil, fmt.Errorf("failed to cancel payment intent: %w", err)
	}
	return &intent, nil
}

// doRequest performs a form-encoded request and decodes the JSON response into out
func (c *Client) doRequest(ctx context.Context, method, path string, form url.Values, idempotencyKey string, out interface{}) error {
	endpoint := c.config.BaseURL + path

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	logger.Debug("Payment provider request", map[string]interface{}{
		"method": method,
		"path":   path,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrNetworkError, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		detail := string(respBody)
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Type != "" {
			detail = errResp.String()
		}

		logger.Warn("Payment provider returned an error", map[string]interface{}{
			"method":      method,
			"path":        path,
			"status_code": resp.StatusCode,
			"detail":      detail,
		})

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, detail)
		case resp.StatusCode == http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ErrCardDeclined, detail)
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, detail)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d: %s", ErrNetworkError, resp.StatusCode, detail)
		default:
			return fmt.Errorf("%w: %s", ErrInvalidRequest, detail)
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
