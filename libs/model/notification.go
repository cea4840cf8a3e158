package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ParseChannel maps unknown or empty values to email.
func ParseChannel(s string) Channel {
	if Channel(strings.ToLower(strings.TrimSpace(s))) == ChannelSMS {
		return ChannelSMS
	}
	return ChannelEmail
}

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

func (s NotificationStatus) Terminal() bool {
	return s == NotificationSent || s == NotificationFailed
}

type KindTag uint8

const (
	KindConfirmation KindTag = iota + 1
	KindReminder
)

// Kind is either a confirmation or a reminder sent LeadHours before the appointment.
// On the wire it is "confirmation" or "reminder_{H}h".
type Kind struct {
	Tag       KindTag
	LeadHours int
}

func Confirmation() Kind { return Kind{Tag: KindConfirmation} }

func Reminder(hours int) Kind { return Kind{Tag: KindReminder, LeadHours: hours} }

func (k Kind) Valid() bool {
	return k.Tag == KindConfirmation || (k.Tag == KindReminder && k.LeadHours > 0)
}

func (k Kind) String() string {
	switch k.Tag {
	case KindConfirmation:
		return "confirmation"
	case KindReminder:
		return "reminder_" + strconv.Itoa(k.LeadHours) + "h"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("notification kind: invalid %+v", k)
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func ParseKind(s string) (Kind, error) {
	if s == "confirmation" {
		return Confirmation(), nil
	}
	raw, ok := strings.CutPrefix(s, "reminder_")
	if ok {
		raw, ok = strings.CutSuffix(raw, "h")
	}
	if !ok {
		return Kind{}, fmt.Errorf("notification kind: unrecognised %q", s)
	}
	h, err := strconv.Atoi(raw)
	if err != nil || h <= 0 {
		return Kind{}, fmt.Errorf("notification kind: bad lead time in %q", s)
	}
	return Reminder(h), nil
}

// NotificationRecord is embedded in an appointment. Records are never added or removed
// after scheduling; only Status and SentAt change, once.
type NotificationRecord struct {
	Type         Kind               `json:"type"`
	Method       Channel            `json:"method"`
	ScheduledFor time.Time          `json:"scheduled_for"`
	Status       NotificationStatus `json:"status"`
	SentAt       *time.Time         `json:"sent_at,omitempty"`
}

// Due reports whether the record should be sent at now.
func (r NotificationRecord) Due(now time.Time) bool {
	return r.Status == NotificationPending && !r.ScheduledFor.After(now)
}

// Key identifies the record within its appointment.
func (r NotificationRecord) Key() string {
	return r.Type.String() + "/" + string(r.Method)
}
