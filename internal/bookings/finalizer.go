package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/booking-assistant/internal/booking"
	"github.com/wolfman30/booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

// Notifier delivers the confirmation and business alert for a stored
// booking.
type Notifier interface {
	Notify(ctx context.Context, record booking.Record) error
}

// OutcomeStatus tags how a finalization ended.
type OutcomeStatus string

const (
	OutcomeCommitted         OutcomeStatus = "committed"
	OutcomePartial           OutcomeStatus = "partial"
	OutcomePersistenceFailed OutcomeStatus = "persistence_failed"
)

// Outcome reports what finalization did and what the caller should do next.
// The finalizer never touches conversation state itself.
type Outcome struct {
	Status     OutcomeStatus
	PersistErr error
	NotifyErr  error
	// Reset tells the caller to clear the record and return to greeting.
	Reset   bool
	Message string
}

// Committed reports whether the booking row was written.
func (o Outcome) Committed() bool {
	return o.Status == OutcomeCommitted || o.Status == OutcomePartial
}

const (
	msgBooked        = "✅ Perfect! Your appointment has been booked successfully. You'll receive a confirmation email shortly."
	msgBookedNoEmail = "✅ Your appointment has been booked successfully, but there was an issue sending the email: %s"
	msgSaveFailed    = "❌ Sorry, there was an error saving your appointment: %s. Please try again."
)

// Finalizer persists a confirmed record and then notifies both parties.
type Finalizer struct {
	store    Store
	notifier Notifier
	now      func() time.Time
	metrics  *metrics.AssistantMetrics
	logger   *logging.Logger
}

type FinalizerOption func(*Finalizer)

func WithClock(now func() time.Time) FinalizerOption {
	return func(f *Finalizer) {
		if now != nil {
			f.now = now
		}
	}
}

func WithFinalizeMetrics(m *metrics.AssistantMetrics) FinalizerOption {
	return func(f *Finalizer) { f.metrics = m }
}

func WithFinalizeLogger(logger *logging.Logger) FinalizerOption {
	return func(f *Finalizer) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFinalizer constructs a finalizer. A nil notifier skips notification.
func NewFinalizer(store Store, notifier Notifier, opts ...FinalizerOption) *Finalizer {
	if store == nil {
		panic("bookings: store required")
	}
	f := &Finalizer{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize appends the record with a server timestamp and the Confirmed
// status. Notification runs only after a successful append and its failure
// does not undo the booking.
func (f *Finalizer) Finalize(ctx context.Context, record booking.Record) Outcome {
	ctx, span := bookingsTracer.Start(ctx, "bookings.finalize")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.date", record.Date),
		attribute.String("booking.time", record.Time),
	)

	out := f.finalize(ctx, record)
	span.SetAttributes(attribute.String("booking.outcome", string(out.Status)))
	if out.PersistErr != nil {
		span.RecordError(out.PersistErr)
	}
	f.metrics.ObserveFinalize(string(out.Status))
	return out
}

func (f *Finalizer) finalize(ctx context.Context, record booking.Record) Outcome {
	entry := Entry{Record: record, Timestamp: f.now(), Status: StatusConfirmed}
	if err := f.store.Append(ctx, entry); err != nil {
		if !errors.Is(err, ErrPersistenceFailed) {
			err = fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		f.logger.Error("booking persistence failed", "error", err, "date", record.Date, "time", record.Time)
		return Outcome{
			Status:     OutcomePersistenceFailed,
			PersistErr: err,
			Message:    fmt.Sprintf(msgSaveFailed, err),
		}
	}
	f.logger.Info("booking stored", "date", record.Date, "time", record.Time, "service", record.Service)

	if f.notifier != nil {
		if err := f.notifier.Notify(ctx, record); err != nil {
			f.logger.Warn("booking notification failed", "error", err)
			return Outcome{
				Status:    OutcomePartial,
				NotifyErr: err,
				Reset:     true,
				Message:   fmt.Sprintf(msgBookedNoEmail, err),
			}
		}
	}
	return Outcome{Status: OutcomeCommitted, Reset: true, Message: msgBooked}
}
