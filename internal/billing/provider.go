// AngelaMos | 2026
// provider.go

package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vedomo/vedomo-api/internal/core"
)

// APIClient implements Provider against the payment provider's REST API.
// Constructed once at startup and passed down; never a lazy global.
type APIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewAPIClient(baseURL, apiKey string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type customerObject struct {
	ID string `json:"id"`
}

type customerListResponse struct {
	Data []customerObject `json:"data"`
}

type customerResponse struct {
	Data customerObject `json:"data"`
}

type transactionResponse struct {
	Data struct {
		Checkout struct {
			URL string `json:"url"`
		} `json:"checkout"`
	} `json:"data"`
}

func (c *APIClient) FindCustomerByEmail(
	ctx context.Context,
	email string,
) (string, error) {
	endpoint := "/customers?email=" + url.QueryEscape(email)

	var resp customerListResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}

	if len(resp.Data) == 0 {
		return "", nil
	}

	return resp.Data[0].ID, nil
}

func (c *APIClient) CreateCustomer(
	ctx context.Context,
	email, userID string,
) (string, error) {
	payload := map[string]any{
		"email": email,
		"custom_data": map[string]string{
			"user_id": userID,
		},
	}

	var resp customerResponse
	if err := c.do(ctx, http.MethodPost, "/customers", payload, &resp); err != nil {
		return "", err
	}

	return resp.Data.ID, nil
}

func (c *APIClient) CreateCheckoutSession(
	ctx context.Context,
	session CheckoutSession,
) (string, error) {
	payload := map[string]any{
		"customer_id": session.CustomerID,
		"items": []map[string]any{
			{"price_id": session.PriceID, "quantity": 1},
		},
		"custom_data": map[string]string{
			"user_id": session.UserID,
		},
		"checkout": map[string]string{
			"success_url": session.SuccessURL,
			"cancel_url":  session.CancelURL,
		},
	}

	var resp transactionResponse
	if err := c.do(ctx, http.MethodPost, "/transactions", payload, &resp); err != nil {
		return "", err
	}

	if resp.Data.Checkout.URL == "" {
		return "", fmt.Errorf("provider returned no checkout url: %w",
			core.ErrUnavailable)
	}

	return resp.Data.Checkout.URL, nil
}

func (c *APIClient) do(
	ctx context.Context,
	method, endpoint string,
	payload, out any,
) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode provider request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w: %w", core.ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("provider returned %d: %w",
			resp.StatusCode, core.ErrUnavailable)
	case resp.StatusCode >= 400:
		return fmt.Errorf("provider rejected request with %d: %w",
			resp.StatusCode, core.ErrInvalidInput)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
	}

	return nil
}
