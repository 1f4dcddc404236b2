// Package payment talks to the YooKassa payments API. The rest of the
// bot only cares about two operations: create a charge and ask for its
// status.
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Status is the charge status as reported by the gateway.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusCanceled  Status = "canceled"
	// StatusOther covers every status the bot does not act on.
	StatusOther Status = "other"
)

// Charge is the result of creating a payment.
type Charge struct {
	ID              string
	ConfirmationURL string
}

// Gateway is the payment collaborator contract consumed by the flow.
type Gateway interface {
	CreateCharge(ctx context.Context, userID int64, amount, returnURL string) (*Charge, error)
	QueryCharge(ctx context.Context, chargeID string) (Status, error)
}

type amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmation struct {
	Type      string `json:"type"`
	ReturnURL string `json:"return_url,omitempty"`
	URL       string `json:"confirmation_url,omitempty"`
}

type createRequest struct {
	Amount       amount            `json:"amount"`
	Confirmation confirmation      `json:"confirmation"`
	Capture      bool              `json:"capture"`
	Description  string            `json:"description"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type paymentResponse struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Confirmation *confirmation `json:"confirmation,omitempty"`
}

// Client implements Gateway against the live API.
type Client struct {
	shopID     string
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient builds a Client with basic-auth credentials.
func NewClient(shopID, secretKey string) *Client {
	return &Client{
		shopID:     shopID,
		secretKey:  secretKey,
		apiURL:     "https://api.yookassa.ru/v3",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.shopID + ":" + c.secretKey))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		// The API deduplicates retried creates by this key.
		req.Header.Set("Idempotence-Key", uuid.NewString())
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*paymentResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment: unexpected status %s", resp.Status)
	}
	var out paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("payment: decode response: %w", err)
	}
	return &out, nil
}

// CreateCharge creates a redirect-confirmed payment for the user.
func (c *Client) CreateCharge(ctx context.Context, userID int64, amountRub, returnURL string) (*Charge, error) {
	body := createRequest{
		Amount:       amount{Value: amountRub, Currency: "RUB"},
		Confirmation: confirmation{Type: "redirect", ReturnURL: returnURL},
		Capture:      true,
		Description:  fmt.Sprintf("Подписка UnTT (User ID: %d)", userID),
		Metadata:     map[string]string{"user_id": fmt.Sprintf("%d", userID)},
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/payments", body)
	if err != nil {
		return nil, err
	}
	out, err := c.do(req)
	if err != nil {
		return nil, err
	}
	charge := &Charge{ID: out.ID}
	if out.Confirmation != nil {
		charge.ConfirmationURL = out.Confirmation.URL
	}
	if charge.ConfirmationURL == "" {
		return nil, fmt.Errorf("payment: charge %s has no confirmation url", out.ID)
	}
	return charge, nil
}

// QueryCharge reports the current status of a charge.
func (c *Client) QueryCharge(ctx context.Context, chargeID string) (Status, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/payments/"+chargeID, nil)
	if err != nil {
		return StatusOther, err
	}
	out, err := c.do(req)
	if err != nil {
		return StatusOther, err
	}
	switch out.Status {
	case "pending", "waiting_for_capture":
		return StatusPending, nil
	case "succeeded":
		return StatusSucceeded, nil
	case "canceled":
		return StatusCanceled, nil
	default:
		return StatusOther, nil
	}
}
