package bookings

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/wolfman30/booking-assistant/internal/booking"
)

var bookingsTracer = otel.Tracer("booking.internal.bookings")

// StatusConfirmed is written to the Status column of every new row.
const StatusConfirmed = "Confirmed"

// TimestampLayout formats the server timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the fixed column order of the bookings log.
var Header = []string{"Timestamp", "Name", "Email", "Phone", "Date", "Time", "Service", "Notes", "Status"}

// ErrPersistenceFailed wraps every failure to append a booking.
var ErrPersistenceFailed = errors.New("bookings: persistence failed")

// Entry is one appended booking row.
type Entry struct {
	Record    booking.Record
	Timestamp time.Time
	Status    string
}

// Row renders the entry in Header order.
func (e Entry) Row() []string {
	r := e.Record
	return []string{
		e.Timestamp.Format(TimestampLayout),
		r.Name,
		r.Email,
		r.Phone,
		r.Date,
		r.Time,
		r.Service,
		r.Notes,
		e.Status,
	}
}

// Store is the append-only bookings log.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// ListBookedTimes returns the HH:00 times of confirmed bookings on date.
	ListBookedTimes(ctx context.Context, date string) ([]string, error)
}

// AvailableSlots returns the hourly slots on date not taken by a confirmed
// booking. Advisory only.
func AvailableSlots(ctx context.Context, store Store, date string) ([]string, error) {
	booked, err := store.ListBookedTimes(ctx, date)
	if err != nil {
		return nil, err
	}
	return booking.AvailableSlots(booked), nil
}

// IsSlotAvailable reports whether time is open on date. A failed lookup
// reports the slot as available since availability is never enforced.
func IsSlotAvailable(ctx context.Context, store Store, date, slot string) bool {
	open, err := AvailableSlots(ctx, store, date)
	if err != nil {
		return true
	}
	for _, s := range open {
		if s == slot {
			return true
		}
	}
	return false
}
