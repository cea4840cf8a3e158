package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lashstudio/studio-backend/libs/model"
	otelx "github.com/lashstudio/studio-backend/libs/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type EmailTransport interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMSTransport interface {
	Send(ctx context.Context, to, body string) error
}

// Transports holds the senders for one sweep. A nil sender means the channel is not configured.
type Transports struct {
	Email EmailTransport
	SMS   SMSTransport
}

// ProviderNamer is implemented by transports that can name the backend they send through.
type ProviderNamer interface {
	ProviderID() string
}

func (t Transports) provider(ch model.Channel) string {
	var tr any
	switch ch {
	case model.ChannelEmail:
		tr = t.Email
	case model.ChannelSMS:
		tr = t.SMS
	}
	if p, ok := tr.(ProviderNamer); ok {
		return p.ProviderID()
	}
	return ""
}

// TransportFactory builds senders from the integration settings loaded for a sweep.
type TransportFactory func(model.Integrations) Transports

var ErrTransportNotConfigured = errors.New("transport not configured")

type AppointmentStore interface {
	ListWithNotifications(ctx context.Context) ([]model.Appointment, error)
	UpdateNotifications(ctx context.Context, appointmentID string, fn func([]model.NotificationRecord) ([]model.NotificationRecord, bool)) error
}

type IntegrationsSource interface {
	Integrations(ctx context.Context) (model.Integrations, bool, error)
}

// Outcome is one persisted status transition.
type Outcome struct {
	Appointment model.Appointment
	Record      model.NotificationRecord
	Reason      string
	Provider    string
}

type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, o Outcome) error
}

type SweepResult struct {
	Scanned     int
	Eligible    int
	Sent        int
	Failed      int
	Updated     int
	WriteErrors int
}

type Dispatcher struct {
	store    AppointmentStore
	settings IntegrationsSource
	factory  TransportFactory
	recorder OutcomeRecorder
	logger   *slog.Logger
}

// NewDispatcher wires a sweep. recorder may be nil.
func NewDispatcher(store AppointmentStore, settings IntegrationsSource, factory TransportFactory, recorder OutcomeRecorder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		settings: settings,
		factory:  factory,
		recorder: recorder,
		logger:   logger,
	}
}

type attempt struct {
	status   model.NotificationStatus
	reason   string
	provider string
}

// Sweep sends every pending notification due at now and persists the transitions.
// Individual send or write failures are logged and counted; an error is returned only
// when settings or appointments cannot be loaded at all.
//
// Cancelling ctx stops the sweep before the next appointment. Sends already started
// for an appointment are persisted on a detached context so a delivered message is
// never left pending.
func (d *Dispatcher) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	ctx, span := otelx.StartSpan(ctx, "notify", "notifications.sweep")
	defer span.End()

	var res SweepResult
	integrations, configured, err := d.settings.Integrations(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load integrations")
		return res, fmt.Errorf("load integrations: %w", err)
	}
	if !configured {
		d.logger.Warn("site settings missing; transports fall back to environment")
	}
	transports := d.factory(integrations)

	appts, err := d.store.ListWithNotifications(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list appointments")
		return res, fmt.Errorf("list appointments: %w", err)
	}

	work := context.WithoutCancel(ctx)
	for _, appt := range appts {
		if len(appt.Notifications) == 0 {
			continue
		}
		if ctx.Err() != nil {
			d.logger.Warn("notification sweep interrupted", "err", ctx.Err(), "scanned", res.Scanned)
			break
		}
		res.Scanned++

		attempts := make(map[string]attempt)
		for _, rec := range appt.Notifications {
			if !rec.Due(now) {
				continue
			}
			res.Eligible++
			provider := transports.provider(rec.Method)
			if err := d.deliver(work, transports, appt, rec); err != nil {
				d.logger.Error("notification send failed",
					"err", err,
					"appointment_id", appt.ID,
					"type", rec.Type.String(),
					"method", string(rec.Method),
				)
				attempts[rec.Key()] = attempt{status: model.NotificationFailed, reason: err.Error(), provider: provider}
				continue
			}
			attempts[rec.Key()] = attempt{status: model.NotificationSent, provider: provider}
		}
		if len(attempts) == 0 {
			continue
		}

		applied, err := d.persist(work, appt.ID, attempts, now)
		if err != nil {
			res.WriteErrors++
			d.logger.Error("notification status write failed", "err", err, "appointment_id", appt.ID)
			continue
		}
		if len(applied) == 0 {
			continue
		}
		res.Updated++

		for _, o := range applied {
			if o.Record.Status == model.NotificationSent {
				res.Sent++
			} else {
				res.Failed++
			}
			if d.recorder == nil {
				continue
			}
			o.Appointment = appt
			if err := d.recorder.RecordOutcome(work, o); err != nil {
				d.logger.Error("notification outcome not recorded", "err", err, "appointment_id", appt.ID)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("notifications.eligible", res.Eligible),
		attribute.Int("notifications.sent", res.Sent),
		attribute.Int("notifications.failed", res.Failed),
	)
	return res, nil
}

// persist applies attempts to the freshly read notification list. A record that is no
// longer pending was transitioned by a concurrent sweep and is left as it is.
func (d *Dispatcher) persist(ctx context.Context, appointmentID string, attempts map[string]attempt, now time.Time) ([]Outcome, error) {
	var applied []Outcome
	err := d.store.UpdateNotifications(ctx, appointmentID, func(current []model.NotificationRecord) ([]model.NotificationRecord, bool) {
		applied = applied[:0]
		next := make([]model.NotificationRecord, len(current))
		copy(next, current)
		for i := range next {
			a, ok := attempts[next[i].Key()]
			if !ok {
				continue
			}
			if next[i].Status != model.NotificationPending {
				d.logger.Warn("notification already transitioned by another sweep",
					"appointment_id", appointmentID, "type", next[i].Type.String(), "method", string(next[i].Method))
				continue
			}
			sentAt := now
			next[i].Status = a.status
			next[i].SentAt = &sentAt
			applied = append(applied, Outcome{Record: next[i], Reason: a.reason, Provider: a.provider})
		}
		return next, len(applied) > 0
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func (d *Dispatcher) deliver(ctx context.Context, t Transports, appt model.Appointment, rec model.NotificationRecord) error {
	switch rec.Method {
	case model.ChannelEmail:
		if t.Email == nil {
			return fmt.Errorf("email: %w", ErrTransportNotConfigured)
		}
		if appt.Client.Email == "" {
			return errors.New("client has no email address")
		}
		msg := Render(rec.Type, model.ChannelEmail, FactsFrom(appt))
		return t.Email.Send(ctx, appt.Client.Email, msg.Subject, msg.Body)
	case model.ChannelSMS:
		if t.SMS == nil {
			return fmt.Errorf("sms: %w", ErrTransportNotConfigured)
		}
		if appt.Client.Phone == "" {
			return errors.New("client has no phone number")
		}
		msg := Render(rec.Type, model.ChannelSMS, FactsFrom(appt))
		return t.SMS.Send(ctx, appt.Client.Phone, msg.Body)
	default:
		return fmt.Errorf("unsupported method %q", rec.Method)
	}
}
