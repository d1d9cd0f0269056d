// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail delivers transactional e-mail (password reset links).

Two [Sender] implementations are provided:

  - SMTPSender: SMTP with STARTTLS when offered and optional PLAIN auth, used
    when SMTP_HOST is set.
  - LogSender: writes the envelope to the structured log, used in development.

Both honour context cancellation so the caller controls the delivery budget.
*/
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRecipient is returned for an empty or header-breaking address.
var ErrInvalidRecipient = errors.New("mail: invalid recipient")

// Sender delivers a single plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// # SMTP

// SMTPConfig configures an [SMTPSender].
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	cfg  SMTPConfig
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
	now  func() time.Time
}

// NewSMTPSender returns a sender for the given relay.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	dialer := &net.Dialer{}
	return &SMTPSender{cfg: cfg, dial: dialer.DialContext, now: time.Now}
}

// Send delivers the message, giving up when ctx is done.
func (sender *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := checkHeader(to); err != nil {
		return err
	}
	if err := checkHeader(subject); err != nil {
		return fmt.Errorf("mail: invalid subject: %w", err)
	}

	addr := net.JoinHostPort(sender.cfg.Host, strconv.Itoa(sender.cfg.Port))
	message := buildMessage(sender.cfg.From, to, subject, body, sender.now())

	if err := sender.deliver(ctx, addr, to, message); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("mail: smtp send aborted: %w", ctxErr)
		}
		return fmt.Errorf("mail: smtp send failed: %w", err)
	}
	return nil
}

// deliver runs one SMTP transaction on a connection bound to ctx. The ctx
// deadline caps every read and write, and cancellation closes the socket.
func (sender *SMTPSender) deliver(ctx context.Context, addr, to string, message []byte) error {
	conn, err := sender.dial(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, sender.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: sender.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if sender.cfg.Username != "" {
		auth := smtp.PlainAuth("", sender.cfg.Username, sender.cfg.Password, sender.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(sender.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write(message); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func checkHeader(value string) error {
	if strings.TrimSpace(value) == "" || strings.ContainsAny(value, "\r\n") {
		return ErrInvalidRecipient
	}
	return nil
}

func buildMessage(from, to, subject, body string, date time.Time) []byte {
	var builder strings.Builder
	builder.WriteString("From: " + from + "\r\n")
	builder.WriteString("To: " + to + "\r\n")
	builder.WriteString("Subject: " + subject + "\r\n")
	builder.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(builder.String())
}

// # Development

// LogSender records messages in the log instead of delivering them.
//
// The body is logged at debug level only since it carries the reset link.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a sender writing to logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the envelope.
func (sender *LogSender) Send(ctx context.Context, to, subject, body string) error {
	if err := checkHeader(to); err != nil {
		return err
	}
	sender.logger.InfoContext(ctx, "mail_logged", slog.String("to", to), slog.String("subject", subject))
	sender.logger.DebugContext(ctx, "mail_logged_body", slog.String("body", body))
	return nil
}
