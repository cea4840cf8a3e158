package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/lashstudio/studio-backend/libs/httpx"
	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/store"
	"github.com/lashstudio/studio-backend/services/studio-service/internal/payments"
)

type createIntentRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
}

// stripeKeys prefers the site settings and falls back to the environment.
func (a *API) stripeKeys(r *http.Request) (model.StripeIntegration, error) {
	in, _, err := a.Settings.Integrations(r.Context())
	if err != nil {
		return model.StripeIntegration{}, err
	}
	keys := in.Stripe
	if strings.TrimSpace(keys.SecretKey) == "" {
		keys.SecretKey = a.cfg.StripeSecretKey
	}
	if strings.TrimSpace(keys.WebhookSecret) == "" {
		keys.WebhookSecret = a.cfg.StripeWebhookSecret
	}
	return keys, nil
}

func (a *API) createPaymentIntent(w http.ResponseWriter, r *http.Request, caller model.User) {
	var req createIntentRequest
	if !decode(w, r, &req) {
		return
	}
	appt, err := a.Appointments.Get(r.Context(), req.AppointmentID)
	if err != nil {
		a.storeError(w, r, err, "appointment not found")
		return
	}
	if caller.Role == model.RoleClient && appt.Client.ID != caller.ID {
		httpx.WriteError(w, http.StatusForbidden, "access denied")
		return
	}
	keys, err := a.stripeKeys(r)
	if err != nil {
		a.storeError(w, r, err, "")
		return
	}
	if keys.SecretKey == "" {
		httpx.WriteError(w, http.StatusInternalServerError, "stripe not configured")
		return
	}

	amount := appt.Payment.AmountDue()
	intent, err := a.Payments.CreateIntent(r.Context(), keys.SecretKey, payments.Cents(amount), map[string]string{
		"appointment_id": appt.ID,
		"client_id":      appt.Client.ID,
	})
	if err != nil {
		a.logger.Error("stripe payment intent failed", "err", err, "appointment_id", appt.ID)
		httpx.WriteError(w, http.StatusBadGateway, "failed to create payment intent")
		return
	}
	if err := a.Appointments.MergePayment(r.Context(), appt.ID, map[string]any{"stripe_payment_intent_id": intent.ID}); err != nil {
		a.storeError(w, r, err, "appointment not found")
		return
	}
	respond(w, http.StatusOK, map[string]any{"client_secret": intent.ClientSecret, "amount": amount})
}

// stripeWebhook is unauthenticated; the signature is the auth.
func (a *API) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sig) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing Stripe-Signature header")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	keys, err := a.stripeKeys(r)
	if err != nil {
		a.storeError(w, r, err, "")
		return
	}
	if keys.WebhookSecret == "" {
		httpx.WriteError(w, http.StatusInternalServerError, "webhook secret not configured")
		return
	}
	evt, err := a.Payments.ParseWebhook(body, sig, keys.WebhookSecret)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid signature")
			return
		}
		httpx.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	var patch map[string]any
	switch evt.Type {
	case payments.EventSucceeded:
		patch = map[string]any{"status": model.PaymentPaid, "method": "stripe", "processed_at": a.now().UTC()}
	case payments.EventFailed:
		patch = map[string]any{"status": model.PaymentFailed}
	default:
		respond(w, http.StatusOK, nil)
		return
	}
	if evt.AppointmentID == "" {
		a.logger.Warn("stripe event without appointment_id", "event_id", evt.ID, "event_type", evt.Type)
		respond(w, http.StatusOK, nil)
		return
	}
	if err := a.Appointments.MergePayment(r.Context(), evt.AppointmentID, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("stripe event for unknown appointment", "event_id", evt.ID, "appointment_id", evt.AppointmentID)
			respond(w, http.StatusOK, nil)
			return
		}
		a.storeError(w, r, err, "")
		return
	}
	if evt.Type == payments.EventSucceeded {
		a.logger.Info("payment succeeded", "appointment_id", evt.AppointmentID)
	} else {
		a.logger.Warn("payment failed", "appointment_id", evt.AppointmentID)
	}
	respond(w, http.StatusOK, nil)
}
