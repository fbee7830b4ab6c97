package drivers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-router/internal/common/httpx"
	"commerce-router/internal/service"
)

func TestMercadoPago_CreatesPixPayment(t *testing.T) {
	var gotBody map[string]interface{}
	var gotIdempotencyKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments", r.URL.Path)
		require.Equal(t, "Bearer mp-token", r.Header.Get("Authorization"))
		gotIdempotencyKey = r.Header.Get("X-Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 123456789,
			"status": "pending",
			"status_detail": "pending_waiting_transfer",
			"point_of_interaction": {
				"transaction_data": {
					"qr_code": "00020126pix-code",
					"qr_code_base64": "aGVsbG8=",
					"ticket_url": "https://mercadopago.com/ticket/123"
				}
			}
		}`))
	}))
	defer server.Close()

	d := NewMercadoPago(httpx.NewClient())
	payload := d.Execute(context.Background(),
		map[string]interface{}{
			"amount":      150.75,
			"description": "Order #42",
			"payer_email": "buyer@example.com",
		},
		map[string]interface{}{
			"access_token":     "mp-token",
			"api_url":          server.URL,
			"notification_url": "https://shop.example.com/webhooks/mp",
		})

	require.False(t, service.IsErrorPayload(payload))
	assert.Equal(t, "MercadoPago", payload["provider"])
	assert.Equal(t, int64(123456789), payload["payment_id"])
	assert.Equal(t, "pending", payload["status"])
	assert.Equal(t, "00020126pix-code", payload["qr_code"])
	assert.Equal(t, "aGVsbG8=", payload["qr_code_base64"])

	assert.NotEmpty(t, gotIdempotencyKey)
	assert.Equal(t, 150.75, gotBody["transaction_amount"])
	assert.Equal(t, "pix", gotBody["payment_method_id"])
	assert.Equal(t, "https://shop.example.com/webhooks/mp", gotBody["notification_url"])
	payer, _ := gotBody["payer"].(map[string]interface{})
	assert.Equal(t, "buyer@example.com", payer["email"])
}

func TestMercadoPago_ValidationFailuresNeverHitTheNetwork(t *testing.T) {
	d := NewMercadoPago(httpx.NewClient())
	config := map[string]interface{}{"access_token": "mp-token", "api_url": "http://unused"}

	missingAmount := d.Execute(context.Background(),
		map[string]interface{}{"payer_email": "a@b.com"}, config)
	assert.True(t, service.IsErrorPayload(missingAmount))

	negativeAmount := d.Execute(context.Background(),
		map[string]interface{}{"amount": -5.0, "payer_email": "a@b.com"}, config)
	assert.True(t, service.IsErrorPayload(negativeAmount))

	missingEmail := d.Execute(context.Background(),
		map[string]interface{}{"amount": 10.0}, config)
	assert.True(t, service.IsErrorPayload(missingEmail))

	missingToken := d.Execute(context.Background(),
		map[string]interface{}{"amount": 10.0, "payer_email": "a@b.com"},
		map[string]interface{}{})
	assert.True(t, service.IsErrorPayload(missingToken))
}

func TestMercadoPago_UpstreamRejectionIsAnErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "invalid access token"}`))
	}))
	defer server.Close()

	d := NewMercadoPago(httpx.NewClient())
	payload := d.Execute(context.Background(),
		map[string]interface{}{"amount": 10.0, "payer_email": "a@b.com"},
		map[string]interface{}{"access_token": "bad", "api_url": server.URL})

	assert.True(t, service.IsErrorPayload(payload))
	assert.Equal(t, "payment provider unavailable", payload["message"])
}
