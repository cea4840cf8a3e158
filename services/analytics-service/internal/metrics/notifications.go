// Package metrics folds notification outcome events into daily counters.
package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lashstudio/studio-backend/libs/outbox"
	"github.com/lashstudio/studio-backend/services/analytics-service/internal/consumer"
	"github.com/segmentio/kafka-go"
)

type Counter interface {
	BumpNotificationMetric(ctx context.Context, day time.Time, channel, kind string, sentInc, failedInc int) error
}

type outcomePayload struct {
	AppointmentID string `json:"appointment_id"`
	Channel       string `json:"channel"`
	Kind          string `json:"kind"`
	SentAt        string `json:"sent_at"`
	FailedAt      string `json:"failed_at"`
	ErrorReason   string `json:"error_reason"`
}

// NotificationHandler counts one sent or failed delivery per event, on the day it happened.
// Malformed events are logged and dropped.
func NotificationHandler(counter Counter, logger *slog.Logger) consumer.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var p outcomePayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid notification event", "err", err, "topic", msg.Topic)
			return nil
		}
		if p.AppointmentID == "" || p.Channel == "" {
			logger.Error("missing notification event fields", "topic", msg.Topic)
			return nil
		}
		if p.Kind == "" {
			p.Kind = "unknown"
		}

		var ts string
		sentInc, failedInc := 0, 0
		switch msg.Topic {
		case outbox.TopicNotificationSent:
			ts, sentInc = p.SentAt, 1
		case outbox.TopicNotificationFailed:
			ts, failedInc = p.FailedAt, 1
		default:
			logger.Warn("unexpected topic", "topic", msg.Topic)
			return nil
		}
		at, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			logger.Error("invalid notification timestamp", "err", err, "appointment_id", p.AppointmentID)
			return nil
		}

		if err := counter.BumpNotificationMetric(ctx, at.UTC(), p.Channel, p.Kind, sentInc, failedInc); err != nil {
			return err
		}
		if failedInc > 0 {
			logger.Info("notification failure recorded", "appointment_id", p.AppointmentID, "channel", p.Channel, "kind", p.Kind, "reason", p.ErrorReason)
		} else {
			logger.Info("notification metric recorded", "appointment_id", p.AppointmentID, "channel", p.Channel, "kind", p.Kind)
		}
		return nil
	}
}
