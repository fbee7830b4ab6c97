package drivers

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"commerce-router/internal/common/httpx"
	"commerce-router/internal/common/logging"
	"commerce-router/internal/service"
)

const mercadoPagoDefaultURL = "https://api.mercadopago.com"

// MercadoPago creates pix payments through the Mercado Pago payments API.
//
// Configuration keys: access_token (required), notification_url (webhook
// for payment status updates), api_url (override for sandbox and tests).
type MercadoPago struct {
	client *httpx.Client
	logger logging.Logger
}

func NewMercadoPago(client *httpx.Client) *MercadoPago {
	return &MercadoPago{
		client: client,
		logger: logging.WithFields(logging.String("driver", "payment.mercadopago")),
	}
}

func (d *MercadoPago) Key() string               { return "payment.mercadopago" }
func (d *MercadoPago) ServiceType() service.Type { return service.TypePayment }

type mercadoPagoPayment struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	StatusDetail       string `json:"status_detail"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (d *MercadoPago) Execute(ctx context.Context, request, config map[string]interface{}) map[string]interface{} {
	token := configString(config, "access_token")
	if token == "" {
		return service.ErrorPayload("mercadopago driver is missing access_token")
	}

	amount, ok := toNumber(request["amount"])
	if !ok || amount <= 0 {
		return service.ErrorPayload("payment amount must be positive")
	}

	email := configString(request, "payer_email")
	if email == "" {
		return service.ErrorPayload("payer_email is required")
	}

	apiURL := configString(config, "api_url")
	if apiURL == "" {
		apiURL = mercadoPagoDefaultURL
	}

	body := map[string]interface{}{
		"transaction_amount": amount,
		"description":        configString(request, "description"),
		"payment_method_id":  "pix",
		"payer":              map[string]string{"email": email},
	}
	if notificationURL := configString(config, "notification_url"); notificationURL != "" {
		body["notification_url"] = notificationURL
	}

	headers := map[string]string{
		"Authorization":     "Bearer " + token,
		"X-Idempotency-Key": newIdempotencyKey(),
	}

	var payment mercadoPagoPayment
	if err := d.client.PostJSON(ctx, apiURL+"/v1/payments", headers, body, &payment); err != nil {
		d.logger.Warn("Mercado Pago payment request failed", logging.Err(err))
		return service.ErrorPayload("payment provider unavailable")
	}

	qr := payment.PointOfInteraction.TransactionData
	return map[string]interface{}{
		"provider":       "MercadoPago",
		"payment_id":     payment.ID,
		"status":         payment.Status,
		"status_detail":  payment.StatusDetail,
		"qr_code":        qr.QRCode,
		"qr_code_base64": qr.QRCodeBase64,
		"ticket_url":     qr.TicketURL,
	}
}

// newIdempotencyKey generates a random key so a retried request cannot
// charge twice.
func newIdempotencyKey() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallback-idempotency-key"
	}
	return hex.EncodeToString(buf)
}
