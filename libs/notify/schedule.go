package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/store"
)

// Schedule computes the complete notification set for an appointment starting at
// startsAt: one reminder per lead time and enabled channel, then a confirmation due now
// on the client's preferred channel. Duplicate or non-positive lead times are dropped
// so each (type, method) pair appears once. Reminders already in the past are kept and
// go out on the next sweep.
func Schedule(startsAt time.Time, prefs model.Preferences, now time.Time) []model.NotificationRecord {
	settings := prefs.Reminders()
	seen := make(map[int]bool)
	var out []model.NotificationRecord

	for _, h := range settings.Hours() {
		if h <= 0 || seen[h] {
			continue
		}
		seen[h] = true
		at := startsAt.Add(-time.Duration(h) * time.Hour)
		if settings.EmailEnabled() {
			out = append(out, pending(model.Reminder(h), model.ChannelEmail, at))
		}
		if settings.SMSEnabled() {
			out = append(out, pending(model.Reminder(h), model.ChannelSMS, at))
		}
	}
	return append(out, pending(model.Confirmation(), model.ParseChannel(prefs.NotificationMethod), now))
}

func pending(kind model.Kind, ch model.Channel, at time.Time) model.NotificationRecord {
	return model.NotificationRecord{
		Type:         kind,
		Method:       ch,
		ScheduledFor: at.UTC(),
		Status:       model.NotificationPending,
	}
}

type UserLookup interface {
	Get(ctx context.Context, id string) (model.User, error)
}

type NotificationWriter interface {
	SetNotifications(ctx context.Context, appointmentID string, recs []model.NotificationRecord) error
}

type Scheduler struct {
	users  UserLookup
	appts  NotificationWriter
	logger *slog.Logger
	now    func() time.Time
}

func NewScheduler(users UserLookup, appts NotificationWriter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		users:  users,
		appts:  appts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ScheduleNotifications replaces the appointment's notifications with a fresh schedule
// built from the client's current preferences. Any prior send state is discarded.
// A client or appointment that no longer exists is not an error; nothing is scheduled.
func (s *Scheduler) ScheduleNotifications(ctx context.Context, appt model.Appointment) ([]model.NotificationRecord, error) {
	user, err := s.users.Get(ctx, appt.Client.ID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("client not found; no notifications scheduled",
			"appointment_id", appt.ID, "client_id", appt.Client.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	recs := Schedule(appt.DateTime.Date, user.Preferences, s.now())
	err = s.appts.SetNotifications(ctx, appt.ID, recs)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("appointment vanished before scheduling", "appointment_id", appt.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("notifications scheduled", "appointment_id", appt.ID, "count", len(recs))
	return recs, nil
}
