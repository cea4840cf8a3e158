package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lashstudio/studio-backend/libs/db"
	"github.com/lashstudio/studio-backend/libs/model"
)

type AppointmentRepository struct {
	pool   *db.Pool
	logger *slog.Logger
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, logger: slog.Default()}
}

// WithLogger sets the logger that reports rows skipped by the notification scan.
func (r *AppointmentRepository) WithLogger(logger *slog.Logger) *AppointmentRepository {
	r.logger = logger
	return r
}

// DecodeError is a row whose JSONB documents could not be decoded.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("appointment %s: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const appointmentColumns = `id, client, service, starts_at, time_label, timezone, status, payment, addons,
	notes, notifications, timeline, referral_source, completed_at, cancelled_at, cancellation_reason,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a                                                        model.Appointment
		client, service, payment, addons, notes, notifs, timeline []byte
	)
	err := row.Scan(&a.ID, &client, &service, &a.DateTime.Date, &a.DateTime.Time, &a.DateTime.Timezone,
		&a.Status, &payment, &addons, &notes, &notifs, &timeline, &a.ReferralSource,
		&a.CompletedAt, &a.CancelledAt, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{client, &a.Client},
		{service, &a.Service},
		{payment, &a.Payment},
		{addons, &a.AddOns},
		{notes, &a.Notes},
		{notifs, &a.Notifications},
		{timeline, &a.Timeline},
	} {
		if err := unjson(f.raw, f.dst); err != nil {
			return model.Appointment{}, &DecodeError{ID: a.ID, Err: err}
		}
	}
	return a, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowIterator interface {
	Next() bool
	Err() error
	Close()
}

// collectDecodable drops rows that fail with a DecodeError and hands them to skip.
// Any other scan error aborts.
func collectDecodable(rows rowIterator, scan func() (model.Appointment, error), skip func(*DecodeError)) ([]model.Appointment, error) {
	defer rows.Close()
	var out []model.Appointment
	for rows.Next() {
		a, err := scan()
		var bad *DecodeError
		if errors.As(err, &bad) {
			skip(bad)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts appt, assigning an id when it has none.
func (r *AppointmentRepository) Create(ctx context.Context, q Querier, appt *model.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	docs, err := marshalAll(appt.Client, appt.Service, appt.Payment, nonNil(appt.AddOns),
		nonNil(appt.Notes), nonNil(appt.Notifications), nonNil(appt.Timeline))
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		INSERT INTO appointments
			(id, client_id, client, service, starts_at, time_label, timezone, status, payment, addons,
			 notes, notifications, timeline, referral_source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
	`, appt.ID, appt.Client.ID, docs[0], docs[1], appt.DateTime.Date.UTC(), appt.DateTime.Time,
		appt.DateTime.Timezone, appt.Status, docs[2], docs[3], docs[4], docs[5], docs[6],
		appt.ReferralSource, appt.CreatedAt)
	return err
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	return a, notFound(err)
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	a, err := scanAppointment(tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
	return a, notFound(err)
}

type ListFilter struct {
	ClientID string
	From     *time.Time
	To       *time.Time
	Status   string
}

// List returns matching appointments, latest start first.
func (r *AppointmentRepository) List(ctx context.Context, f ListFilter) ([]model.Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.ClientID != "" {
		add("client_id = ?", f.ClientID)
	}
	if f.From != nil {
		add("starts_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		add("starts_at <= ?", f.To.UTC())
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}

	sql := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY starts_at DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// SaveChanges writes the mutable booking fields of appt. Notifications are left alone.
func (r *AppointmentRepository) SaveChanges(ctx context.Context, q Querier, appt model.Appointment) error {
	docs, err := marshalAll(appt.Payment, nonNil(appt.Notes), nonNil(appt.Timeline))
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			payment = $3,
			notes = $4,
			timeline = $5,
			completed_at = $6,
			cancelled_at = $7,
			cancellation_reason = $8,
			updated_at = now()
		WHERE id = $1
	`, appt.ID, appt.Status, docs[0], docs[1], docs[2], appt.CompletedAt, appt.CancelledAt, appt.CancellationReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWithNotifications skips appointments whose notification list is empty.
// Rows that cannot be decoded are logged and left out so one bad document does
// not stall every sweep.
func (r *AppointmentRepository) ListWithNotifications(ctx context.Context) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE jsonb_array_length(notifications) > 0
		ORDER BY starts_at
	`)
	if err != nil {
		return nil, err
	}
	return collectDecodable(rows, func() (model.Appointment, error) { return scanAppointment(rows) }, func(bad *DecodeError) {
		r.logger.Error("skipping malformed appointment", "err", bad.Err, "appointment_id", bad.ID)
	})
}

// SetNotifications overwrites the whole notifications field.
func (r *AppointmentRepository) SetNotifications(ctx context.Context, id string, recs []model.NotificationRecord) error {
	raw, err := jsonb(nonNil(recs))
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE appointments SET notifications = $2 WHERE id = $1`, id, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateNotifications re-reads the notifications field under a row lock, hands it to fn
// and writes the result back only when fn reports a change.
func (r *AppointmentRepository) UpdateNotifications(ctx context.Context, id string, fn func([]model.NotificationRecord) ([]model.NotificationRecord, bool)) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	if err := tx.QueryRow(ctx, `SELECT notifications FROM appointments WHERE id = $1 FOR UPDATE`, id).Scan(&raw); err != nil {
		return notFound(err)
	}
	var current []model.NotificationRecord
	if err := unjson(raw, &current); err != nil {
		return err
	}

	next, changed := fn(current)
	if !changed {
		return tx.Commit(ctx)
	}
	out, err := jsonb(nonNil(next))
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE appointments SET notifications = $2 WHERE id = $1`, id, out); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListPendingStripe returns unpaid, non-cancelled appointments that already carry a
// Stripe payment intent, least recently touched first.
func (r *AppointmentRepository) ListPendingStripe(ctx context.Context, limit int) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE payment->>'status' = 'pending'
		  AND coalesce(payment->>'stripe_payment_intent_id', '') <> ''
		  AND status <> 'cancelled'
		ORDER BY updated_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// MergePayment shallow-merges patch into the payment document.
func (r *AppointmentRepository) MergePayment(ctx context.Context, id string, patch map[string]any) error {
	raw, err := jsonb(patch)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET payment = payment || $2::jsonb,
			updated_at = now()
		WHERE id = $1
	`, id, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
