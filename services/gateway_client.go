package services

import (
	"context"
	"fmt"

	"stayhub-backend/config"

	"github.com/go-resty/resty/v2"
)

// GatewayIntent is the gateway's view of a payment intent. Client-supplied
// intent state is never trusted; this struct only ever comes from the
// gateway API or a verified webhook.
type GatewayIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

type GatewayRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// PaymentGateway is the collaborator boundary to the payment processor.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*GatewayIntent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*GatewayIntent, error)
	// Refund carries an idempotency key so a retried call after a timeout
	// cannot refund twice.
	Refund(ctx context.Context, intentID string, amountCents int64, idempotencyKey string) (*GatewayRefund, error)
}

// restGateway talks to the processor's REST API with a caller-enforced
// timeout. A timeout is an unknown outcome: callers must not assume failure
// and must reconcile via RetrieveIntent or the webhook channel.
type restGateway struct {
	client *resty.Client
}

func NewRESTGateway(cfg config.GatewayConfig) PaymentGateway {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Content-Type", "application/json")
	return &restGateway{client: client}
}

func (g *restGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*GatewayIntent, error) {
	var intent GatewayIntent
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"amount":   amountCents,
			"currency": currency,
			"metadata": metadata,
		}).
		SetResult(&intent).
		Post("/v1/payment_intents")
	if err != nil {
		return nil, &ExternalGatewayError{Op: "create intent", Err: err}
	}
	if resp.IsError() {
		return nil, &ExternalGatewayError{Op: "create intent", Err: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return &intent, nil
}

func (g *restGateway) RetrieveIntent(ctx context.Context, intentID string) (*GatewayIntent, error) {
	var intent GatewayIntent
	resp, err := g.client.R().
		SetContext(ctx).
		SetResult(&intent).
		Get("/v1/payment_intents/" + intentID)
	if err != nil {
		return nil, &ExternalGatewayError{Op: "retrieve intent", Err: err}
	}
	if resp.IsError() {
		return nil, &ExternalGatewayError{Op: "retrieve intent", Err: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return &intent, nil
}

func (g *restGateway) Refund(ctx context.Context, intentID string, amountCents int64, idempotencyKey string) (*GatewayRefund, error) {
	var refund GatewayRefund
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", idempotencyKey).
		SetBody(map[string]interface{}{
			"payment_intent": intentID,
			"amount":         amountCents,
		}).
		SetResult(&refund).
		Post("/v1/refunds")
	if err != nil {
		return nil, &ExternalGatewayError{Op: "refund", Err: err}
	}
	if resp.IsError() {
		return nil, &ExternalGatewayError{Op: "refund", Err: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}
	return &refund, nil
}
