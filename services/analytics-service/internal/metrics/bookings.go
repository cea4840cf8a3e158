package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lashstudio/studio-backend/services/analytics-service/internal/consumer"
	"github.com/segmentio/kafka-go"
)

type BookingCounter interface {
	BumpBookingMetric(ctx context.Context, day time.Time, serviceID string, value float64, withPromo bool) error
}

type bookedPayload struct {
	AppointmentID string  `json:"appointment_id"`
	ServiceID     string  `json:"service_id"`
	StartsAt      string  `json:"starts_at"`
	TotalPrice    float64 `json:"total_price"`
	PromoCode     string  `json:"promo_code"`
}

func BookingHandler(counter BookingCounter, logger *slog.Logger) consumer.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var p bookedPayload
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			logger.Error("invalid booking event", "err", err)
			return nil
		}
		if p.AppointmentID == "" || p.ServiceID == "" || p.StartsAt == "" {
			logger.Error("missing booking event fields")
			return nil
		}
		startsAt, err := time.Parse(time.RFC3339, p.StartsAt)
		if err != nil {
			logger.Error("invalid starts_at", "err", err, "appointment_id", p.AppointmentID)
			return nil
		}
		if err := counter.BumpBookingMetric(ctx, startsAt.UTC(), p.ServiceID, p.TotalPrice, p.PromoCode != ""); err != nil {
			return err
		}
		logger.Info("booking metric recorded", "appointment_id", p.AppointmentID, "service_id", p.ServiceID)
		return nil
	}
}
