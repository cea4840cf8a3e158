package store

import (
	"context"
	"time"

	"github.com/lashstudio/studio-backend/libs/db"
)

type AnalyticsRepository struct {
	pool *db.Pool
}

func NewAnalyticsRepository(pool *db.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// Upsert stores one metrics document per (kind, day); reruns replace it.
func (r *AnalyticsRepository) Upsert(ctx context.Context, kind string, day time.Time, metrics any) error {
	raw, err := jsonb(metrics)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO analytics (kind, day, metrics)
		VALUES ($1, $2::date, $3)
		ON CONFLICT (kind, day) DO UPDATE SET metrics = EXCLUDED.metrics, generated_at = now()
	`, kind, day.UTC(), raw)
	return err
}

// BumpNotificationMetric adds to the per-day delivery counters.
func (r *AnalyticsRepository) BumpNotificationMetric(ctx context.Context, day time.Time, channel, kind string, sentInc, failedInc int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_notification_metrics (day, channel, kind, sent_count, failed_count)
		VALUES ($1::date, $2, $3, $4, $5)
		ON CONFLICT (day, channel, kind)
		DO UPDATE SET sent_count = daily_notification_metrics.sent_count + EXCLUDED.sent_count,
		              failed_count = daily_notification_metrics.failed_count + EXCLUDED.failed_count,
		              updated_at = now()
	`, day.UTC(), channel, kind, sentInc, failedInc)
	return err
}

// BumpBookingMetric counts one booking against the day it is scheduled for.
func (r *AnalyticsRepository) BumpBookingMetric(ctx context.Context, day time.Time, serviceID string, value float64, withPromo bool) error {
	promoInc := 0
	if withPromo {
		promoInc = 1
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_booking_metrics (day, service_id, booked_count, booked_value, promo_count)
		VALUES ($1::date, $2, 1, $3, $4)
		ON CONFLICT (day, service_id)
		DO UPDATE SET booked_count = daily_booking_metrics.booked_count + 1,
		              booked_value = daily_booking_metrics.booked_value + EXCLUDED.booked_value,
		              promo_count = daily_booking_metrics.promo_count + EXCLUDED.promo_count,
		              updated_at = now()
	`, day.UTC(), serviceID, value, promoInc)
	return err
}
