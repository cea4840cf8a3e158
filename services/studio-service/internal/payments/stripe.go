// Package payments talks to Stripe. Keys come from the site settings per call, so
// nothing here touches the stripe package globals.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	EventSucceeded = "payment_intent.succeeded"
	EventFailed    = "payment_intent.payment_failed"
)

var ErrInvalidSignature = errors.New("invalid signature")

type Intent struct {
	ID           string
	ClientSecret string
}

// WebhookEvent is the subset of a verified Stripe event the studio acts on.
type WebhookEvent struct {
	ID            string
	Type          string
	AppointmentID string
}

// Cents converts a dollar amount for the Stripe API.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

type Stripe struct{}

func (Stripe) CreateIntent(ctx context.Context, secretKey string, amountCents int64, metadata map[string]string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	sc := client.New(secretKey, nil)
	pi, err := sc.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ParseWebhook verifies the Stripe-Signature header against secret.
func (Stripe) ParseWebhook(payload []byte, signature, secret string) (WebhookEvent, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := WebhookEvent{ID: evt.ID, Type: string(evt.Type)}
	if out.Type != EventSucceeded && out.Type != EventFailed {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode payment intent: %w", err)
	}
	out.AppointmentID = pi.Metadata["appointment_id"]
	return out, nil
}

// IntentStatus fetches the current lifecycle status of a payment intent.
func (Stripe) IntentStatus(ctx context.Context, secretKey, intentID string) (stripe.PaymentIntentStatus, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	sc := client.New(secretKey, nil)
	pi, err := sc.PaymentIntents.Get(intentID, params)
	if err != nil {
		return "", fmt.Errorf("get payment intent %s: %w", intentID, err)
	}
	return pi.Status, nil
}
