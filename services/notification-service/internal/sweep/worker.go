package sweep

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lashstudio/studio-backend/libs/httpx"
	"github.com/lashstudio/studio-backend/libs/notify"
)

var ErrBusy = errors.New("sweep already running")

type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (notify.SweepResult, error)
}

type WorkerConfig struct {
	Interval time.Duration
	// RunOnStart triggers a sweep immediately instead of waiting one interval.
	RunOnStart bool
}

// Worker runs at most one sweep at a time in this process.
type Worker struct {
	sweeper    Sweeper
	logger     *slog.Logger
	interval   time.Duration
	runOnStart bool
	now        func() time.Time
	mu         sync.Mutex
}

func NewWorker(sweeper Sweeper, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	return &Worker{
		sweeper:    sweeper,
		logger:     logger,
		interval:   cfg.Interval,
		runOnStart: cfg.RunOnStart,
		now:        time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	if w.runOnStart {
		w.tick(ctx)
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	res, err := w.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		w.logger.Warn("sweep skipped; previous run still in progress")
	case err != nil:
		w.logger.Error("notification sweep failed", "err", err)
	default:
		w.logger.Info("notification sweep finished",
			"scanned", res.Scanned,
			"eligible", res.Eligible,
			"sent", res.Sent,
			"failed", res.Failed,
			"updated", res.Updated,
			"write_errors", res.WriteErrors,
		)
	}
}

// RunOnce sweeps now, or returns ErrBusy when another sweep holds the worker.
func (w *Worker) RunOnce(ctx context.Context) (notify.SweepResult, error) {
	if !w.mu.TryLock() {
		return notify.SweepResult{}, ErrBusy
	}
	defer w.mu.Unlock()
	return w.sweeper.Sweep(ctx, w.now().UTC())
}

type sweepResponse struct {
	Success     bool `json:"success"`
	Scanned     int  `json:"scanned"`
	Eligible    int  `json:"eligible"`
	Sent        int  `json:"sent"`
	Failed      int  `json:"failed"`
	Updated     int  `json:"updated"`
	WriteErrors int  `json:"write_errors"`
}

// TriggerHandler runs a sweep on demand.
func (w *Worker) TriggerHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		// A disconnecting client must not cut a sweep short between send and persist.
		res, err := w.RunOnce(context.WithoutCancel(r.Context()))
		if errors.Is(err, ErrBusy) {
			httpx.WriteError(rw, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			w.logger.Error("manual sweep failed", "err", err)
			httpx.WriteError(rw, http.StatusInternalServerError, "sweep failed")
			return
		}
		httpx.WriteJSON(rw, http.StatusOK, sweepResponse{
			Success:     true,
			Scanned:     res.Scanned,
			Eligible:    res.Eligible,
			Sent:        res.Sent,
			Failed:      res.Failed,
			Updated:     res.Updated,
			WriteErrors: res.WriteErrors,
		})
	}
}
