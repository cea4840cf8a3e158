// Package daily builds the per-day analytics document once a day.
package daily

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lashstudio/studio-backend/libs/analytics"
	"github.com/lashstudio/studio-backend/libs/httpx"
	"github.com/lashstudio/studio-backend/libs/model"
	otelx "github.com/lashstudio/studio-backend/libs/otel"
	"github.com/lashstudio/studio-backend/libs/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const Kind = "daily"

type AppointmentLister interface {
	List(ctx context.Context, f store.ListFilter) ([]model.Appointment, error)
}

type SummaryWriter interface {
	Upsert(ctx context.Context, kind string, day time.Time, metrics any) error
}

// Clock is a wall-clock time of day in UTC.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock accepts "HH:MM".
func ParseClock(raw string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return Clock{}, fmt.Errorf("run time %q: want HH:MM", raw)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("run time %q: bad hour", raw)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("run time %q: bad minute", raw)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// Next returns the first occurrence of c strictly after now.
func (c Clock) Next(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

type Job struct {
	appts  AppointmentLister
	out    SummaryWriter
	logger *slog.Logger
	at     Clock
	now    func() time.Time
}

func NewJob(appts AppointmentLister, out SummaryWriter, logger *slog.Logger, at Clock) *Job {
	return &Job{appts: appts, out: out, logger: logger, at: at, now: time.Now}
}

// Run summarizes the previous UTC day each time the clock fires.
func (j *Job) Run(ctx context.Context) {
	for {
		next := j.at.Next(j.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		day := next.AddDate(0, 0, -1)
		if _, err := j.Summarize(ctx, day); err != nil {
			j.logger.Error("daily analytics failed", "err", err, "day", day.Format(time.DateOnly))
		}
	}
}

// Summarize aggregates the appointments starting on day (UTC) and stores the result.
func (j *Job) Summarize(ctx context.Context, day time.Time) (analytics.Summary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)

	ctx, span := otelx.StartSpan(ctx, "analytics", "analytics.daily",
		attribute.String("analytics.day", start.Format(time.DateOnly)))
	defer span.End()

	appts, err := j.appts.List(ctx, store.ListFilter{From: &start, To: &end})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list appointments")
		return analytics.Summary{}, fmt.Errorf("list appointments: %w", err)
	}
	summary := analytics.Summarize(appts)
	if err := j.out.Upsert(ctx, Kind, start, summary); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store summary")
		return summary, fmt.Errorf("store summary: %w", err)
	}
	span.SetAttributes(attribute.Int("analytics.appointments", summary.TotalAppointments))
	j.logger.Info("daily analytics stored",
		"day", start.Format(time.DateOnly),
		"appointments", summary.TotalAppointments,
		"revenue", summary.TotalRevenue,
	)
	return summary, nil
}

var errBadDay = errors.New("day must be YYYY-MM-DD")

// RerunHandler recomputes one day; ?day=YYYY-MM-DD, default yesterday.
func (j *Job) RerunHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := j.now().UTC().AddDate(0, 0, -1)
		if raw := r.URL.Query().Get("day"); raw != "" {
			parsed, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				httpx.WriteError(w, http.StatusBadRequest, errBadDay.Error())
				return
			}
			day = parsed
		}
		summary, err := j.Summarize(r.Context(), day)
		if err != nil {
			j.logger.Error("daily analytics rerun failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "analytics run failed")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"day":     day.Format(time.DateOnly),
			"summary": summary,
		})
	}
}
