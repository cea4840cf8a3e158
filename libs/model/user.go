package model

import (
	"encoding/json"
	"strings"
	"time"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleClient, RoleTechnician, RoleAdmin:
		return r, true
	}
	return "", false
}

type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ReminderSettings leaves Email/SMS nil when the client never chose. A nil HoursBefore
// means "use the defaults" while an empty one disables reminders.
type ReminderSettings struct {
	Email       *bool `json:"email,omitempty"`
	SMS         *bool `json:"sms,omitempty"`
	HoursBefore []int `json:"hours_before"`
}

var DefaultReminderHours = []int{24, 2}

func (s ReminderSettings) EmailEnabled() bool { return s.Email == nil || *s.Email }

func (s ReminderSettings) SMSEnabled() bool { return s.SMS != nil && *s.SMS }

func (s ReminderSettings) Hours() []int {
	if s.HoursBefore == nil {
		return DefaultReminderHours
	}
	return s.HoursBefore
}

type Preferences struct {
	NotificationMethod string            `json:"notification_method,omitempty"`
	MarketingConsent   bool              `json:"marketing_consent"`
	ReminderSettings   *ReminderSettings `json:"reminder_settings,omitempty"`
}

func DefaultPreferences() Preferences {
	on, off := true, false
	return Preferences{
		NotificationMethod: string(ChannelEmail),
		ReminderSettings: &ReminderSettings{
			Email:       &on,
			SMS:         &off,
			HoursBefore: append([]int(nil), DefaultReminderHours...),
		},
	}
}

func (p Preferences) Reminders() ReminderSettings {
	if p.ReminderSettings == nil {
		return ReminderSettings{}
	}
	return *p.ReminderSettings
}

type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Role         Role            `json:"role"`
	Profile      Profile         `json:"profile"`
	Preferences  Preferences     `json:"preferences"`
	MedicalInfo  json.RawMessage `json:"medical_info,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.Profile.FirstName + " " + u.Profile.LastName)
}
