package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/wolfman30/booking-assistant/internal/booking"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

var notifyTracer = otel.Tracer("booking.internal.notify")

const defaultFromName = "Appointment Booking Service"

var (
	// ErrNotificationFailed marks every delivery failure. Bookings stay
	// committed when it is returned.
	ErrNotificationFailed = errors.New("notify: notification failed")
	// ErrNotConfigured is returned when no sender is wired.
	ErrNotConfigured = errors.New("Email credentials not configured. Please set EMAIL_ADDRESS and EMAIL_PASSWORD environment variables.") //nolint:staticcheck // shown to the user verbatim
)

// DeliveryError reports which of the two messages failed. Its text is shown
// to the user as is.
type DeliveryError struct {
	User     error
	Business error
}

func (e *DeliveryError) Error() string {
	var parts []string
	if e.User != nil {
		parts = append(parts, "User email: "+e.User.Error())
	}
	if e.Business != nil {
		parts = append(parts, "Business email: "+e.Business.Error())
	}
	return strings.Join(parts, "; ")
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrNotificationFailed
}

func (e *DeliveryError) Unwrap() []error {
	var errs []error
	for _, err := range []error{e.User, e.Business} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Config carries the business identity used in both messages.
type Config struct {
	BusinessName  string
	BusinessEmail string
}

// Service sends the customer confirmation and the business alert for a
// stored booking.
type Service struct {
	email  EmailSender
	cfg    Config
	now    func() time.Time
	logger *logging.Logger
}

// NewService creates a notification service. A nil sender makes every
// Notify call fail with ErrNotConfigured.
func NewService(email EmailSender, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.BusinessName) == "" {
		cfg.BusinessName = defaultFromName
	}
	return &Service{email: email, cfg: cfg, now: time.Now, logger: logger}
}

// Notify sends both messages. The business alert is attempted even when the
// customer confirmation fails.
func (s *Service) Notify(ctx context.Context, record booking.Record) error {
	ctx, span := notifyTracer.Start(ctx, "notify.booking")
	defer span.End()

	if s.email == nil {
		span.RecordError(ErrNotConfigured)
		return fmt.Errorf("%w: %w", ErrNotificationFailed, ErrNotConfigured)
	}

	var derr DeliveryError
	if err := s.sendUserConfirmation(ctx, record); err != nil {
		derr.User = err
	}
	if err := s.sendBusinessAlert(ctx, record); err != nil {
		derr.Business = err
	}
	if derr.User != nil || derr.Business != nil {
		span.RecordError(&derr)
		s.logger.Warn("booking notification incomplete", "error", derr.Error())
		return &derr
	}
	s.logger.Info("booking notifications sent", "date", record.Date, "time", record.Time)
	return nil
}

func (s *Service) sendUserConfirmation(ctx context.Context, r booking.Record) error {
	if strings.TrimSpace(r.Email) == "" {
		return errors.New("user email not provided")
	}
	return s.email.Send(ctx, EmailMessage{
		To:      r.Email,
		ToName:  r.Name,
		Subject: fmt.Sprintf("Appointment Confirmation - %s", s.cfg.BusinessName),
		Body:    s.userBody(r),
	})
}

func (s *Service) sendBusinessAlert(ctx context.Context, r booking.Record) error {
	if strings.TrimSpace(s.cfg.BusinessEmail) == "" {
		return errors.New("business email not configured")
	}
	return s.email.Send(ctx, EmailMessage{
		To:      s.cfg.BusinessEmail,
		ToName:  s.cfg.BusinessName,
		ReplyTo: r.Email,
		Subject: fmt.Sprintf("New Appointment Booking - %s %s", r.Date, r.Time),
		Body:    s.businessBody(r),
	})
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func (s *Service) userBody(r booking.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", orDefault(r.Name, "Customer"))
	fmt.Fprintf(&b, "Thank you for booking an appointment with %s!\n\n", s.cfg.BusinessName)
	b.WriteString("Your appointment details:\n")
	fmt.Fprintf(&b, "• Date: %s\n", r.Date)
	fmt.Fprintf(&b, "• Time: %s\n", r.Time)
	fmt.Fprintf(&b, "• Service: %s\n", r.Service)
	fmt.Fprintf(&b, "• Contact: %s\n\n", orDefault(r.Phone, "Not provided"))
	fmt.Fprintf(&b, "Additional Notes: %s\n\n", orDefault(r.Notes, "None"))
	b.WriteString("We look forward to seeing you on your appointment date. If you need to reschedule or cancel, please contact us as soon as possible.\n\n")
	fmt.Fprintf(&b, "Best regards,\n%s\n\n", s.cfg.BusinessName)
	b.WriteString("---\nThis is an automated message. Please do not reply to this email.\n")
	return b.String()
}

func (s *Service) businessBody(r booking.Record) string {
	var b strings.Builder
	b.WriteString("New Appointment Booking Alert\n\n")
	b.WriteString("A new appointment has been booked through the online system:\n\n")
	b.WriteString("Customer Details:\n")
	fmt.Fprintf(&b, "• Name: %s\n", r.Name)
	fmt.Fprintf(&b, "• Email: %s\n", r.Email)
	fmt.Fprintf(&b, "• Phone: %s\n\n", orDefault(r.Phone, "Not provided"))
	b.WriteString("Appointment Details:\n")
	fmt.Fprintf(&b, "• Date: %s\n", r.Date)
	fmt.Fprintf(&b, "• Time: %s\n", r.Time)
	fmt.Fprintf(&b, "• Service: %s\n\n", r.Service)
	fmt.Fprintf(&b, "Additional Notes: %s\n\n", orDefault(r.Notes, "None"))
	fmt.Fprintf(&b, "Booking Time: %s\n\n", s.now().Format("2006-01-02 15:04:05"))
	b.WriteString("Please prepare for this appointment and contact the customer if needed.\n\n")
	b.WriteString("---\nAutomated Booking System\n")
	return b.String()
}
