package model

import "time"

const (
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// ClientSnapshot and ServiceSnapshot are copied at booking time and never refreshed.
type ClientSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ServiceSnapshot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Duration int     `json:"duration"`
}

type DateTime struct {
	Date     time.Time `json:"date"`
	Time     string    `json:"time"`
	Timezone string    `json:"timezone"`
}

type Discount struct {
	Amount      float64  `json:"amount"`
	Percentage  *float64 `json:"percentage"`
	Code        string   `json:"code"`
	Description string   `json:"description"`
}

type Payment struct {
	Status                string     `json:"status"`
	TotalPrice            float64    `json:"total_price"`
	Discount              *Discount  `json:"discount,omitempty"`
	Method                string     `json:"method,omitempty"`
	ProcessedAt           *time.Time `json:"processed_at,omitempty"`
	StripePaymentIntentID string     `json:"stripe_payment_intent_id,omitempty"`
}

// AmountDue is the total minus any applied discount, never negative.
func (p Payment) AmountDue() float64 {
	due := p.TotalPrice
	if p.Discount != nil {
		due -= p.Discount.Amount
	}
	if due < 0 {
		return 0
	}
	return due
}

type AddOn struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type TimelineEntry struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Notes     string    `json:"notes"`
}

type Note struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	IsPrivate bool      `json:"is_private"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Appointment struct {
	ID                 string               `json:"id"`
	Client             ClientSnapshot       `json:"client"`
	Service            ServiceSnapshot      `json:"service"`
	DateTime           DateTime             `json:"date_time"`
	Status             string               `json:"status"`
	Payment            Payment              `json:"payment"`
	AddOns             []AddOn              `json:"addons"`
	Notes              []Note               `json:"notes"`
	Notifications      []NotificationRecord `json:"notifications"`
	Timeline           []TimelineEntry      `json:"timeline"`
	ReferralSource     string               `json:"referral_source,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}
