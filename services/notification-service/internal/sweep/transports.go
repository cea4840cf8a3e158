package sweep

import (
	"log/slog"
	"strings"

	"github.com/lashstudio/studio-backend/libs/model"
	"github.com/lashstudio/studio-backend/libs/notify"
	"github.com/lashstudio/studio-backend/services/notification-service/internal/email"
	"github.com/lashstudio/studio-backend/services/notification-service/internal/sms"
)

// Fallback configures the transports used when the stored integration settings
// leave a channel empty.
type Fallback struct {
	SMTP email.Config

	SMSProvider     string
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
	SMSWebhookURL   string
	SMSWebhookToken string
}

// NewTransportFactory prefers credentials from site settings and falls back to process configuration.
func NewTransportFactory(fb Fallback, logger *slog.Logger) notify.TransportFactory {
	return func(in model.Integrations) notify.Transports {
		var t notify.Transports
		if s := emailSender(in.Email, fb); s != nil {
			t.Email = s
		}
		if s := smsSender(in.SMS, fb, logger); s != nil {
			t.SMS = s
		}
		return t
	}
}

func emailSender(in model.EmailIntegration, fb Fallback) *email.SMTPSender {
	from := firstNonEmpty(in.FromEmail, fb.SMTP.From)
	if strings.TrimSpace(in.APIKey) != "" {
		return email.NewSendGridSender(in.APIKey, from)
	}
	if strings.TrimSpace(fb.SMTP.Host) == "" {
		return nil
	}
	cfg := fb.SMTP
	cfg.From = from
	return email.NewSMTPSender(cfg)
}

func smsSender(in model.SMSIntegration, fb Fallback, logger *slog.Logger) sms.Sender {
	if in.APIKey != "" && in.AuthToken != "" {
		return sms.NewTwilioSender(in.APIKey, in.AuthToken, firstNonEmpty(in.FromNumber, fb.TwilioFrom))
	}
	switch strings.ToLower(strings.TrimSpace(fb.SMSProvider)) {
	case "":
		return nil
	case "twilio":
		return sms.NewTwilioSender(fb.TwilioSID, fb.TwilioToken, fb.TwilioFrom)
	case "webhook":
		return sms.NewWebhookSender(fb.SMSWebhookURL, fb.SMSWebhookToken)
	case "noop":
		return sms.NewNoopSender()
	default:
		logger.Warn("unknown sms provider; sms disabled", "provider", fb.SMSProvider)
		return nil
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
