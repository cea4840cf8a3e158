package payments

import (
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

func sign(payload []byte, secret string, ts time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
		Scheme:    "v1",
	}).Header
}

const succeededEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "payment_intent.succeeded",
  "data": {"object": {"id": "pi_1", "object": "payment_intent", "metadata": {"appointment_id": "a1", "client_id": "c1"}}}
}`

func TestParseWebhookSucceeded(t *testing.T) {
	payload := []byte(succeededEvent)
	evt, err := Stripe{}.ParseWebhook(payload, sign(payload, "whsec_test", time.Now()), "whsec_test")
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if evt.Type != EventSucceeded || evt.AppointmentID != "a1" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	payload := []byte(succeededEvent)
	_, err := Stripe{}.ParseWebhook(payload, sign(payload, "other", time.Now()), "whsec_test")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestCents(t *testing.T) {
	cases := map[float64]int64{120: 12000, 19.99: 1999, 0.1 + 0.2: 30, 0: 0}
	for in, want := range cases {
		if got := Cents(in); got != want {
			t.Fatalf("Cents(%v) = %d, want %d", in, got, want)
		}
	}
}
