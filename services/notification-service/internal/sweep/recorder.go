package sweep

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/notify"
	"github.com/lashstudio/studio-backend/libs/outbox"
	"github.com/lashstudio/studio-backend/services/notification-service/internal/storage"
)

type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Recorder logs each outcome and enqueues the matching notification event in one transaction.
type Recorder struct {
	db         Beginner
	deliveries *storage.Repository
	outbox     *outbox.Repository
}

func NewRecorder(db Beginner, deliveries *storage.Repository, outboxRepo *outbox.Repository) *Recorder {
	return &Recorder{db: db, deliveries: deliveries, outbox: outboxRepo}
}

func (r *Recorder) RecordOutcome(ctx context.Context, o notify.Outcome) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.deliveries.Insert(ctx, tx, storage.DeliveryFrom(o)); err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, outcomeEvent(o)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func outcomeEvent(o notify.Outcome) outbox.Event {
	at := time.Now().UTC()
	if o.Record.SentAt != nil {
		at = o.Record.SentAt.UTC()
	}
	payload := map[string]any{
		"appointment_id": o.Appointment.ID,
		"channel":        string(o.Record.Method),
		"kind":           o.Record.Type.String(),
	}
	if o.Provider != "" {
		payload["provider"] = o.Provider
	}
	eventType := outbox.TopicNotificationSent
	if o.Record.Status == model.NotificationSent {
		payload["sent_at"] = at.Format(time.RFC3339)
	} else {
		eventType = outbox.TopicNotificationFailed
		payload["error_reason"] = o.Reason
		payload["failed_at"] = at.Format(time.RFC3339)
	}
	return outbox.Event{
		AggregateType: "notification",
		AggregateID:   o.Appointment.ID,
		EventType:     eventType,
		Payload:       payload,
	}
}
