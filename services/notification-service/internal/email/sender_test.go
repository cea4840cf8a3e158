package email

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func TestBuildMessageIsHTML(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	msg := buildMessage("studio@example.com", "jane@example.com", "Booking Confirmed", "<p>Hi\nJane</p>", now)

	for _, want := range []string{
		"From: studio@example.com\r\n",
		"To: jane@example.com\r\n",
		"Subject: Booking Confirmed\r\n",
		"Content-Type: text/html; charset=utf-8\r\n",
		"\r\n\r\n<p>Hi\r\nJane</p>\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestBuildMessageEncodesNonASCIISubject(t *testing.T) {
	msg := buildMessage("a@example.com", "b@example.com", "Rappel: rendez-vous à 10h", "x", time.Now())
	if !strings.Contains(msg, "Subject: =?utf-8?q?") {
		t.Fatalf("expected encoded subject:\n%s", msg)
	}
}

func TestSendGridSenderDefaults(t *testing.T) {
	s := NewSendGridSender("SG.key", "")
	if s.addr != "smtp.sendgrid.net:587" {
		t.Fatalf("unexpected addr %s", s.addr)
	}
	if s.From() != defaultFrom {
		t.Fatalf("unexpected from %s", s.From())
	}
	if s.auth == nil {
		t.Fatalf("expected auth to be configured")
	}
	if s.ProviderID() != "sendgrid" || NewSMTPSender(Config{Host: "mail"}).ProviderID() != "smtp" {
		t.Fatalf("unexpected provider ids")
	}
}

func TestSendRequiresHost(t *testing.T) {
	s := NewSMTPSender(Config{})
	if err := s.Send(context.Background(), "jane@example.com", "s", "b"); err == nil {
		t.Fatalf("expected error without host")
	}
}

func TestSendDeliversThroughSMTP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan string, 1)
	go serveOnce(t, ln, received)

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	s := NewSMTPSender(Config{Host: host, Port: port, From: "studio@example.com"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Send(ctx, "jane@example.com", "Reminder", "<p>See you tomorrow</p>"); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case data := <-received:
		if !strings.Contains(data, "<p>See you tomorrow</p>") || !strings.Contains(data, "To: jane@example.com") {
			t.Fatalf("unexpected data:\n%s", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not receive message")
	}
}

func TestSendTimesOutOnSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()
	defer func() {
		select {
		case conn := <-accepted:
			conn.Close()
		default:
		}
	}()

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	s := NewSMTPSender(Config{Host: host, Port: port, Timeout: 200 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- s.Send(context.Background(), "jane@example.com", "s", "b") }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected timeout error from silent server")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("send still blocked against a silent server")
	}
}

func TestSessionDeadlinePrefersEarlierContextDeadline(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	if got := sessionDeadline(context.Background(), now, 30*time.Second); !got.Equal(now.Add(30 * time.Second)) {
		t.Fatalf("unexpected default deadline %v", got)
	}
	ctx, cancel := context.WithDeadline(context.Background(), now.Add(time.Second))
	defer cancel()
	if got := sessionDeadline(ctx, now, 30*time.Second); !got.Equal(now.Add(time.Second)) {
		t.Fatalf("expected ctx deadline, got %v", got)
	}
	if got := NewSMTPSender(Config{Host: "mail"}).timeout; got != defaultTimeout {
		t.Fatalf("unexpected default timeout %v", got)
	}
}

// serveOnce speaks just enough SMTP for one plain-text session.
func serveOnce(t *testing.T, ln net.Listener, out chan<- string) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

	write("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			write("250 localhost")
		case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
			write("250 OK")
		case cmd == "DATA":
			write("354 go ahead")
			var data strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				data.WriteString(l)
			}
			out <- data.String()
			write("250 queued")
		case cmd == "QUIT":
			write("221 bye")
			return
		default:
			write("250 OK")
		}
	}
}
