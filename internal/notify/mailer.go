package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"storefront/internal/domain"

	"github.com/jordan-wright/email"
)

// Message is a single outbound HTML email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	StoreName string
}

// SMTPSender sends mail through an authenticated SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg}
}

// Send blocks until the relay answers or ctx is done. The SMTP exchange
// itself cannot be cancelled; on ctx expiry it finishes in the background.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.cfg.Host == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("smtp: %w", domain.ErrNotConfigured)
	}
	if len(msg.To) == 0 {
		return domain.Invalid("to", "no recipients")
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	if s.cfg.StoreName != "" {
		e.From = fmt.Sprintf("%s <%s>", s.cfg.StoreName, s.cfg.From)
	}
	e.To = msg.To
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	done := make(chan error, 1)
	go func() { done <- e.Send(addr, auth) }()

	select {
	case err := <-done:
		if err != nil {
			return &domain.UpstreamError{Service: "smtp", Err: err}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
