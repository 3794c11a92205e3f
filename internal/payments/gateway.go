package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Confirmation is the gateway's answer to a successful confirm call. Method
// is whatever the gateway reports, it is never assumed client-side. Raw
// carries the full payload for the response body.
type Confirmation struct {
	Method string
	Raw    map[string]interface{}
}

// GatewayError is a non-success gateway response, propagated verbatim.
type GatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *GatewayError) Error() string {
	return e.Message
}

// Gateway confirms a card charge with the external payment processor. The
// remote call is not idempotent: issuing it twice for the same order risks a
// double charge, so callers must guard against repeats.
type Gateway interface {
	Confirm(ctx context.Context, paymentKey, orderRef string, amount int64) (*Confirmation, error)
}

type TossClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewTossClient(baseURL, secretKey string) *TossClient {
	return &TossClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type tossConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

func (t *TossClient) Confirm(ctx context.Context, paymentKey, orderRef string, amount int64) (*Confirmation, error) {
	body, err := json.Marshal(tossConfirmRequest{
		PaymentKey: paymentKey,
		OrderID:    orderRef,
		Amount:     amount,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/payments/confirm", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	// Toss uses HTTP basic auth with the secret key as username and an
	// empty password.
	auth := base64.StdEncoding.EncodeToString([]byte(t.secretKey + ":"))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var gwErr GatewayError
		if err := json.NewDecoder(resp.Body).Decode(&gwErr); err != nil || gwErr.Message == "" {
			return nil, &GatewayError{Code: "UNKNOWN_ERROR", Message: fmt.Sprintf("payment confirmation failed (HTTP %d)", resp.StatusCode)}
		}
		return nil, &gwErr
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	method, _ := payload["method"].(string)
	return &Confirmation{Method: method, Raw: payload}, nil
}
