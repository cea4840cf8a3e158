package storage

import (
	"testing"
	"time"

	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/notify"
)

func TestDeliveryFromPicksRecipientByChannel(t *testing.T) {
	sent := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	appt := model.Appointment{
		ID:     "appt-1",
		Client: model.ClientSnapshot{Email: "jane@example.com", Phone: "+15550001111"},
	}

	d := DeliveryFrom(notify.Outcome{
		Appointment: appt,
		Record: model.NotificationRecord{
			Type:   model.Reminder(24),
			Method: model.ChannelSMS,
			Status: model.NotificationFailed,
			SentAt: &sent,
		},
		Reason:   "twilio returned status 500",
		Provider: "twilio",
	})
	if d.Recipient != "+15550001111" || d.Kind != "reminder_24h" || d.Channel != "sms" || d.Provider != "twilio" {
		t.Fatalf("unexpected delivery %+v", d)
	}
	if d.Status != "failed" || d.ErrorReason != "twilio returned status 500" || !d.AttemptedAt.Equal(sent) {
		t.Fatalf("unexpected delivery %+v", d)
	}

	d = DeliveryFrom(notify.Outcome{
		Appointment: appt,
		Record:      model.NotificationRecord{Type: model.Confirmation(), Method: model.ChannelEmail, Status: model.NotificationSent},
	})
	if d.Recipient != "jane@example.com" || d.Kind != "confirmation" || d.ErrorReason != "" {
		t.Fatalf("unexpected delivery %+v", d)
	}
}
