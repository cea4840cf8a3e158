package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

const (
	sendGridHost = "smtp.sendgrid.net"
	sendGridPort = "587"
	sendGridUser = "apikey"

	defaultFrom    = "noreply@lashstudio.com"
	defaultTimeout = 30 * time.Second
)

type Config struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string

	// Timeout bounds one whole SMTP session. Zero means 30s.
	Timeout time.Duration
}

// SMTPSender delivers HTML mail. Auth is attempted only when a username is set,
// so a local Mailpit works without credentials.
type SMTPSender struct {
	host     string
	addr     string
	from     string
	auth     smtp.Auth
	provider string
	timeout  time.Duration
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTPSender(cfg Config) *SMTPSender {
	host := strings.TrimSpace(cfg.Host)
	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = "25"
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = defaultFrom
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	s := &SMTPSender{
		host:     host,
		addr:     net.JoinHostPort(host, port),
		from:     from,
		provider: "smtp",
		timeout:  timeout,
		dial:     (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	return s
}

// NewSendGridSender relays through SendGrid's SMTP endpoint using the API key as password.
func NewSendGridSender(apiKey, from string) *SMTPSender {
	s := NewSMTPSender(Config{
		Host:     sendGridHost,
		Port:     sendGridPort,
		From:     from,
		Username: sendGridUser,
		Password: apiKey,
	})
	s.provider = "sendgrid"
	return s
}

func (s *SMTPSender) From() string { return s.from }

func (s *SMTPSender) ProviderID() string { return s.provider }

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if s.host == "" {
		return errors.New("smtp host not configured")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("recipient is empty")
	}
	conn, err := s.dial(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.addr, err)
	}
	_ = conn.SetDeadline(sessionDeadline(ctx, time.Now(), s.timeout))
	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(tlsConfig(s.host)); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.auth != nil {
		if err := c.Auth(s.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(s.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(buildMessage(s.from, to, subject, htmlBody, time.Now()))); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// sessionDeadline is now+timeout, or the ctx deadline when that comes first.
func sessionDeadline(ctx context.Context, now time.Time, timeout time.Duration) time.Time {
	deadline := now.Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}

func tlsConfig(host string) *tls.Config {
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}

func buildMessage(from, to, subject, htmlBody string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(htmlBody, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.String()
}
