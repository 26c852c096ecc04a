// Package mail delivers notification emails over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// NewSender returns an SMTP sender, or a LogSender when no host is
// configured.
func NewSender(cfg config.MailConfig, logger *log.Logger) Sender {
	if logger == nil {
		logger = log.Default()
	}
	if strings.TrimSpace(cfg.Host) == "" {
		logger.Printf("mail: SMTP_HOST not set, emails will be logged only")
		return &LogSender{logger: logger}
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &SMTPSender{dialer: d, from: cfg.From, logger: logger}
}

// SMTPSender opens one SMTP session per message.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	logger *log.Logger
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := validate(m); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := build(s.from, m)
	if err := s.dialer.DialAndSend(msg); err != nil {
		return err
	}
	s.logger.Printf("mail: sent %q to %s", m.Subject, m.To)
	return nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	logger *log.Logger
}

func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, m Message) error {
	if err := validate(m); err != nil {
		return err
	}
	s.logger.Printf("mail: to=%s subject=%q\n%s", m.To, m.Subject, m.Body)
	return nil
}

func validate(m Message) error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("mail: empty recipient")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("mail: empty subject")
	}
	return nil
}

func build(from string, m Message) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	return msg
}
