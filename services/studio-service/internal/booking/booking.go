// Package booking writes appointment changes together with their side records
// (promo redemption, outbox event) in one transaction.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/outbox"
	"github.com/lashstudio/studio-backend/libs/store"
)

// ErrPromoExhausted means the promo hit its usage limit between validation and redemption.
var ErrPromoExhausted = errors.New("promo code usage limit reached")

type Service struct {
	appts  *store.AppointmentRepository
	promos *store.PromoRepository
	outbox *outbox.Repository
}

func NewService(appts *store.AppointmentRepository, promos *store.PromoRepository, outboxRepo *outbox.Repository) *Service {
	return &Service{appts: appts, promos: promos, outbox: outboxRepo}
}

type bookedPayload struct {
	AppointmentID string  `json:"appointment_id"`
	ClientID      string  `json:"client_id"`
	ServiceID     string  `json:"service_id"`
	StartsAt      string  `json:"starts_at"`
	TotalPrice    float64 `json:"total_price"`
	PromoCode     string  `json:"promo_code,omitempty"`
}

// Book inserts appt (assigning its ID), redeems promoID when set and queues the
// booked event. Nothing is written unless all three succeed.
func (s *Service) Book(ctx context.Context, appt *model.Appointment, promoID string) error {
	tx, err := s.appts.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if promoID != "" {
		if err := s.promos.Redeem(ctx, tx, promoID); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrPromoExhausted
			}
			return err
		}
	}
	if err := s.appts.Create(ctx, tx, appt); err != nil {
		return err
	}

	payload := bookedPayload{
		AppointmentID: appt.ID,
		ClientID:      appt.Client.ID,
		ServiceID:     appt.Service.ID,
		StartsAt:      appt.DateTime.Date.UTC().Format(time.RFC3339),
		TotalPrice:    appt.Payment.TotalPrice,
	}
	if appt.Payment.Discount != nil {
		payload.PromoCode = appt.Payment.Discount.Code
	}
	if err := s.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     outbox.TopicAppointmentBooked,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update locks the appointment row, lets fn mutate it and saves the result.
// An error from fn aborts without writing.
func (s *Service) Update(ctx context.Context, id string, fn func(*model.Appointment) error) (model.Appointment, error) {
	tx, err := s.appts.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.appts.GetForUpdate(ctx, tx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := fn(&appt); err != nil {
		return model.Appointment{}, err
	}
	if err := s.appts.SaveChanges(ctx, tx, appt); err != nil {
		return model.Appointment{}, err
	}
	return appt, tx.Commit(ctx)
}
