package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("shop", "secret")
	c.apiURL = srv.URL
	return c
}

func TestCreateCharge(t *testing.T) {
	var gotAuth, gotIdem string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payments", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotence-Key")

		var req createRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "149.00", req.Amount.Value)
		assert.Equal(t, "RUB", req.Amount.Currency)
		assert.Equal(t, "redirect", req.Confirmation.Type)
		assert.True(t, req.Capture)
		assert.Equal(t, "42", req.Metadata["user_id"])

		_ = json.NewEncoder(w).Encode(paymentResponse{
			ID:     "pay-1",
			Status: "pending",
			Confirmation: &confirmation{
				Type: "redirect",
				URL:  "https://pay.example/confirm",
			},
		})
	})

	charge, err := c.CreateCharge(context.Background(), 42, "149.00", "https://t.me/bot")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", charge.ID)
	assert.Equal(t, "https://pay.example/confirm", charge.ConfirmationURL)
	assert.Equal(t, "Basic c2hvcDpzZWNyZXQ=", gotAuth)
	assert.NotEmpty(t, gotIdem)
}

func TestCreateChargeWithoutConfirmationURL(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(paymentResponse{ID: "pay-2", Status: "pending"})
	})
	_, err := c.CreateCharge(context.Background(), 1, "149.00", "https://t.me/bot")
	assert.Error(t, err)
}

func TestQueryChargeStatuses(t *testing.T) {
	cases := map[string]Status{
		"pending":             StatusPending,
		"waiting_for_capture": StatusPending,
		"succeeded":           StatusSucceeded,
		"canceled":            StatusCanceled,
		"refund_pending":      StatusOther,
	}
	for raw, want := range cases {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodGet, r.Method)
			require.Equal(t, "/payments/pay-3", r.URL.Path)
			_ = json.NewEncoder(w).Encode(paymentResponse{ID: "pay-3", Status: raw})
		})
		got, err := c.QueryCharge(context.Background(), "pay-3")
		require.NoError(t, err, "status %q", raw)
		assert.Equal(t, want, got, "status %q", raw)
	}
}

func TestQueryChargeHTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})
	_, err := c.QueryCharge(context.Background(), "pay-4")
	assert.Error(t, err)
}
