package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/booking-assistant/pkg/logging"
)

// SMTPConfig holds the relay and mailbox used to send mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	// Timeout bounds dialing; zero means 30s.
	Timeout time.Duration
}

// SMTPSender sends plain-text mail over SMTP, upgrading with STARTTLS when
// the server offers it and authenticating with PLAIN when it offers AUTH.
type SMTPSender struct {
	cfg       SMTPConfig
	tlsConfig *tls.Config
	logger    *logging.Logger
}

// NewSMTPSender returns nil when the mailbox credentials are missing.
func NewSMTPSender(cfg SMTPConfig, logger *logging.Logger) *SMTPSender {
	if strings.TrimSpace(cfg.Username) == "" || cfg.Password == "" {
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SMTPSender{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		logger:    logger,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil {
		return fmt.Errorf("notify: smtp sender not configured")
	}
	if err := s.send(ctx, msg); err != nil {
		s.logger.Error("smtp send failed", "error", err, "host", s.cfg.Host)
		return fmt.Errorf("notify: smtp send failed: %w", err)
	}
	s.logger.Info("email sent via smtp", "subject", msg.Subject, "host", s.cfg.Host)
	return nil
}

func (s *SMTPSender) send(ctx context.Context, msg EmailMessage) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(s.tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if ok, _ := c.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(s.cfg.Username); err != nil {
		return err
	}
	if err := c.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(s.compose(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (s *SMTPSender) compose(msg EmailMessage) []byte {
	from := &mail.Address{Name: s.cfg.FromName, Address: s.cfg.Username}
	to := &mail.Address{Name: msg.ToName, Address: msg.To}
	var b strings.Builder
	b.WriteString("From: " + from.String() + "\r\n")
	b.WriteString("To: " + to.String() + "\r\n")
	if msg.ReplyTo != "" {
		b.WriteString("Reply-To: " + (&mail.Address{Address: msg.ReplyTo}).String() + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

var _ EmailSender = (*SMTPSender)(nil)
