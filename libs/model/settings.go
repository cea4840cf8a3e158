package model

import "encoding/json"

// SiteSettings is the free-form "main" settings document. Only the integrations
// section has a fixed shape.
type SiteSettings map[string]any

type EmailIntegration struct {
	APIKey    string `json:"api_key,omitempty"`
	FromEmail string `json:"from_email,omitempty"`
}

// SMSIntegration holds Twilio credentials; APIKey is the account SID.
type SMSIntegration struct {
	APIKey     string `json:"api_key,omitempty"`
	AuthToken  string `json:"auth_token,omitempty"`
	FromNumber string `json:"from_number,omitempty"`
}

type StripeIntegration struct {
	PublishableKey string `json:"publishable_key,omitempty"`
	SecretKey      string `json:"secret_key,omitempty"`
	WebhookSecret  string `json:"webhook_secret,omitempty"`
}

type Integrations struct {
	Email  EmailIntegration  `json:"email"`
	SMS    SMSIntegration    `json:"sms"`
	Stripe StripeIntegration `json:"stripe"`
}

func (s SiteSettings) Integrations() (Integrations, error) {
	var out Integrations
	raw, ok := s["integrations"]
	if !ok || raw == nil {
		return out, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}

// Public strips every secret, keeping only the stripe publishable key.
func (s SiteSettings) Public() SiteSettings {
	out := make(SiteSettings, len(s))
	for k, v := range s {
		if k == "integrations" {
			continue
		}
		out[k] = v
	}
	if _, ok := s["integrations"]; ok {
		in, _ := s.Integrations()
		out["integrations"] = map[string]any{
			"stripe": map[string]any{"publishable_key": in.Stripe.PublishableKey},
		}
	}
	return out
}

// Merge overwrites top-level keys of s with those of patch.
func (s SiteSettings) Merge(patch map[string]any) SiteSettings {
	out := make(SiteSettings, len(s)+len(patch))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
