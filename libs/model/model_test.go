package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestKindTextRoundTrip(t *testing.T) {
	cases := map[string]Kind{
		"confirmation": Confirmation(),
		"reminder_24h": Reminder(24),
		"reminder_2h":  Reminder(2),
	}
	for text, want := range cases {
		got, err := ParseKind(text)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", text, err)
		}
		if got != want {
			t.Fatalf("ParseKind(%q) = %+v, want %+v", text, got, want)
		}
		if got.String() != text {
			t.Fatalf("String() = %q, want %q", got.String(), text)
		}
	}
}

func TestParseKindRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "reminder", "reminder_h", "reminder_0h", "reminder_-3h", "reminder_2", "followup"} {
		if _, err := ParseKind(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestNotificationRecordJSON(t *testing.T) {
	at := time.Date(2024, 12, 14, 14, 0, 0, 0, time.UTC)
	rec := NotificationRecord{Type: Reminder(24), Method: ChannelSMS, ScheduledFor: at, Status: NotificationPending}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"reminder_24h","method":"sms","scheduled_for":"2024-12-14T14:00:00Z","status":"pending"}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}
}

func TestDue(t *testing.T) {
	now := time.Date(2024, 12, 15, 12, 0, 0, 0, time.UTC)
	rec := NotificationRecord{ScheduledFor: now, Status: NotificationPending}
	if !rec.Due(now) {
		t.Fatal("record scheduled exactly at now should be due")
	}
	rec.ScheduledFor = now.Add(time.Second)
	if rec.Due(now) {
		t.Fatal("future record should not be due")
	}
	rec.ScheduledFor = now.Add(-time.Hour)
	rec.Status = NotificationFailed
	if rec.Due(now) {
		t.Fatal("terminal record should never be due")
	}
}

func TestReminderSettingsDefaults(t *testing.T) {
	var s ReminderSettings
	if !s.EmailEnabled() || s.SMSEnabled() {
		t.Fatal("defaults should be email on, sms off")
	}
	if len(s.Hours()) != 2 {
		t.Fatalf("expected default hours, got %v", s.Hours())
	}

	var explicit ReminderSettings
	if err := json.Unmarshal([]byte(`{"hours_before":[]}`), &explicit); err != nil {
		t.Fatal(err)
	}
	if explicit.Hours() == nil || len(explicit.Hours()) != 0 {
		t.Fatalf("explicit empty list should disable reminders, got %v", explicit.Hours())
	}
}

func TestSiteSettingsPublicStripsSecrets(t *testing.T) {
	s := SiteSettings{
		"brand": map[string]any{"name": "Lash Studio"},
		"integrations": map[string]any{
			"email":  map[string]any{"api_key": "SG.secret"},
			"stripe": map[string]any{"publishable_key": "pk_test", "secret_key": "sk_test"},
		},
	}
	pub := s.Public()
	b, _ := json.Marshal(pub)
	got := string(b)
	for _, secret := range []string{"SG.secret", "sk_test"} {
		if strings.Contains(got, secret) {
			t.Fatalf("public settings leaked %q: %s", secret, got)
		}
	}
	if !strings.Contains(got, "pk_test") || !strings.Contains(got, "Lash Studio") {
		t.Fatalf("public settings lost data: %s", got)
	}
}

func TestPaymentAmountDue(t *testing.T) {
	p := Payment{TotalPrice: 120, Discount: &Discount{Amount: 20}}
	if p.AmountDue() != 100 {
		t.Fatalf("got %v", p.AmountDue())
	}
	p.Discount.Amount = 500
	if p.AmountDue() != 0 {
		t.Fatalf("got %v", p.AmountDue())
	}
}
