// Package storage keeps an append-only log of delivery attempts, one row per
// notification status transition written by a sweep.
package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lashstudio/studio-backend/libs/db"
	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/notify"
	"github.com/lashstudio/studio-backend/libs/outbox"
)

type Delivery struct {
	AppointmentID string    `json:"appointment_id"`
	Kind          string    `json:"kind"`
	Channel       string    `json:"channel"`
	Recipient     string    `json:"recipient"`
	Provider      string    `json:"provider,omitempty"`
	Status        string    `json:"status"`
	ErrorReason   string    `json:"error_reason,omitempty"`
	AttemptedAt   time.Time `json:"attempted_at"`
}

// DeliveryFrom flattens a sweep outcome. The recipient is the address the channel targets.
func DeliveryFrom(o notify.Outcome) Delivery {
	d := Delivery{
		AppointmentID: o.Appointment.ID,
		Kind:          o.Record.Type.String(),
		Channel:       string(o.Record.Method),
		Provider:      o.Provider,
		Status:        string(o.Record.Status),
		ErrorReason:   o.Reason,
	}
	if o.Record.SentAt != nil {
		d.AttemptedAt = o.Record.SentAt.UTC()
	}
	switch o.Record.Method {
	case model.ChannelSMS:
		d.Recipient = o.Appointment.Client.Phone
	default:
		d.Recipient = o.Appointment.Client.Email
	}
	return d
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert writes d through q so it commits with the caller's transaction.
func (r *Repository) Insert(ctx context.Context, q outbox.Execer, d Delivery) error {
	attempted := d.AttemptedAt
	if attempted.IsZero() {
		attempted = time.Now().UTC()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO notification_deliveries (appointment_id, kind, channel, recipient, provider, status, error_reason, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.AppointmentID, d.Kind, d.Channel, d.Recipient, d.Provider, d.Status, d.ErrorReason, attempted)
	return err
}

// ListForAppointment returns the attempts for one appointment, oldest first.
func (r *Repository) ListForAppointment(ctx context.Context, appointmentID string) ([]Delivery, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT appointment_id, kind, channel, recipient, provider, status, error_reason, attempted_at
		FROM notification_deliveries
		WHERE appointment_id = $1
		ORDER BY attempted_at, id
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Delivery, error) {
		var d Delivery
		err := row.Scan(&d.AppointmentID, &d.Kind, &d.Channel, &d.Recipient, &d.Provider, &d.Status, &d.ErrorReason, &d.AttemptedAt)
		return d, err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Delivery{}
	}
	return out, nil
}
