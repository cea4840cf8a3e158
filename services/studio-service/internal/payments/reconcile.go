package payments

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/stripe/stripe-go/v79"
)

type PendingPayments interface {
	ListPendingStripe(ctx context.Context, limit int) ([]model.Appointment, error)
	MergePayment(ctx context.Context, id string, patch map[string]any) error
}

type IntentFetcher interface {
	IntentStatus(ctx context.Context, secretKey, intentID string) (stripe.PaymentIntentStatus, error)
}

// Locker elects a single reconciling instance.
type Locker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (bool, func(), error)
}

// SecretKeyFunc resolves the Stripe secret key at call time.
type SecretKeyFunc func(ctx context.Context) (string, error)

type ReconcilerConfig struct {
	Interval        time.Duration
	BatchSize       int
	AdvisoryLockKey int64
}

type ReconcileResult struct {
	Checked int
	Paid    int
	Failed  int
}

// Reconciler applies payment outcomes that a missed webhook never delivered.
type Reconciler struct {
	payments PendingPayments
	stripe   IntentFetcher
	key      SecretKeyFunc
	locker   Locker
	logger   *slog.Logger
	interval time.Duration
	batch    int
	lockKey  int64
	now      func() time.Time
}

func NewReconciler(p PendingPayments, fetcher IntentFetcher, key SecretKeyFunc, locker Locker, logger *slog.Logger, cfg ReconcilerConfig) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.AdvisoryLockKey == 0 {
		cfg.AdvisoryLockKey = 4242001
	}
	return &Reconciler{
		payments: p,
		stripe:   fetcher,
		key:      key,
		locker:   locker,
		logger:   logger,
		interval: cfg.Interval,
		batch:    cfg.BatchSize,
		lockKey:  cfg.AdvisoryLockKey,
		now:      time.Now,
	}
}

// Run waits for the advisory lock, then reconciles on every tick until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	var release func()
	for release == nil {
		ok, rel, err := r.locker.TryAdvisoryLock(ctx, r.lockKey)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("payment reconcile: advisory lock failed", "err", err)
		case !ok:
			r.logger.Debug("payment reconcile: lock held by another instance", "lock_key", r.lockKey)
		default:
			release = rel
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(30 * time.Second):
		}
	}
	defer release()
	r.logger.Info("payment reconcile: advisory lock acquired", "lock_key", r.lockKey)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		r.runLogged(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Reconciler) runLogged(ctx context.Context) {
	res, err := r.ReconcileOnce(ctx)
	if err != nil {
		r.logger.Error("payment reconcile failed", "err", err)
		return
	}
	if res.Paid > 0 || res.Failed > 0 {
		r.logger.Info("payment reconcile applied", "checked", res.Checked, "paid", res.Paid, "failed", res.Failed)
	}
}

func (r *Reconciler) ReconcileOnce(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	key, err := r.key(ctx)
	if err != nil {
		return res, err
	}
	if strings.TrimSpace(key) == "" {
		return res, nil
	}
	pending, err := r.payments.ListPendingStripe(ctx, r.batch)
	if err != nil {
		return res, err
	}
	for _, appt := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		intentID := appt.Payment.StripePaymentIntentID
		status, err := r.stripe.IntentStatus(ctx, key, intentID)
		if err != nil {
			r.logger.Warn("payment reconcile: fetch failed", "err", err, "appointment_id", appt.ID, "payment_intent", intentID)
			continue
		}
		res.Checked++

		var patch map[string]any
		switch status {
		case stripe.PaymentIntentStatusSucceeded:
			patch = map[string]any{"status": model.PaymentPaid, "method": "stripe", "processed_at": r.now().UTC()}
			res.Paid++
		case stripe.PaymentIntentStatusCanceled:
			patch = map[string]any{"status": model.PaymentFailed}
			res.Failed++
		default:
			continue
		}
		if err := r.payments.MergePayment(ctx, appt.ID, patch); err != nil {
			r.logger.Error("payment reconcile: update failed", "err", err, "appointment_id", appt.ID)
		}
	}
	return res, nil
}
