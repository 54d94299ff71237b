// Package mailer delivers transactional HTML email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wacka-accessories/wacka-backend/pkg/config"
	"github.com/wacka-accessories/wacka-backend/pkg/logger"
)

// ErrNotConfigured is returned when SMTP credentials are absent.
var ErrNotConfigured = errors.New("smtp not configured")

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends through a STARTTLS submission server.
type SMTPMailer struct {
	cfg  config.SMTPConfig
	logg *logger.Logger
	send sendFunc
	now  func() time.Time
}

func New(cfg config.SMTPConfig, logg *logger.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logg: logg, send: smtp.SendMail, now: time.Now}
}

// Send skips delivery with a warning when credentials are missing.
// smtp.SendMail upgrades to TLS whenever the server offers STARTTLS.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled() {
		if m.logg != nil {
			m.logg.Warn(ctx, "email not configured, skipping send")
		}
		return ErrNotConfigured
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, auth, m.cfg.Username, []string{msg.To}, m.build(msg)); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	if m.logg != nil {
		m.logg.Info(m.logg.WithField(ctx, "email_to", msg.To), "email sent")
	}
	return nil
}

// AdminEmail is where back-office alerts go. Empty disables them.
func (m *SMTPMailer) AdminEmail() string {
	return strings.TrimSpace(m.cfg.AdminEmail)
}

// SupportEmail is shown in customer-facing footers.
func (m *SMTPMailer) SupportEmail() string {
	return m.cfg.Username
}

func (m *SMTPMailer) build(msg Message) []byte {
	from := (&mailAddress{name: m.cfg.FromName, addr: m.cfg.Username}).String()
	var buf bytes.Buffer
	headers := [][2]string{
		{"From", from},
		{"To", msg.To},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", m.now().UTC().Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), m.cfg.Host)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/html; charset="utf-8"`},
	}
	for _, h := range headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], h[1])
	}
	buf.WriteString("\r\n")
	buf.WriteString(msg.HTML)
	return buf.Bytes()
}

type mailAddress struct {
	name string
	addr string
}

func (a *mailAddress) String() string {
	if a.name == "" {
		return a.addr
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", a.name), a.addr)
}
