package conversation

import (
	"strings"
	"testing"

	"github.com/wolfman30/booking-assistant/internal/booking"
)

func TestFallbackAsksForFirstMissingField(t *testing.T) {
	ex := FallbackResponse(booking.Record{Name: "Jane", Phone: "5551234567"})

	if ex.State != booking.StateCollecting {
		t.Fatalf("expected collecting, got %s", ex.State)
	}
	if !strings.Contains(ex.Message, "email") {
		t.Fatalf("expected request for email, got %q", ex.Message)
	}
	if ex.ReadyForConfirmation || !ex.Data.IsEmpty() {
		t.Fatalf("fallback must not be ready or carry data: %+v", ex)
	}
	if ex.Provenance != ProvenanceFallback {
		t.Fatalf("expected fallback provenance, got %s", ex.Provenance)
	}
}

func TestFallbackOnlyTimeMissing(t *testing.T) {
	record := booking.Record{Name: "Jane", Email: "jane@x.com", Phone: "5551234567", Service: "Consultation", Date: "2026-03-11"}
	ex := FallbackResponse(record)

	if ex.State != booking.StateCollecting {
		t.Fatalf("expected collecting, got %s", ex.State)
	}
	if !strings.Contains(ex.Message, "time") {
		t.Fatalf("expected time prompt, got %q", ex.Message)
	}
	if len(ex.Needs) != 1 || ex.Needs[0] != booking.FieldTime {
		t.Fatalf("expected needs [time], got %v", ex.Needs)
	}
}

func TestFallbackCompleteRecordAsksToConfirm(t *testing.T) {
	record := booking.Record{Name: "Jane", Email: "jane@x.com", Phone: "5551234567", Service: "Consultation", Date: "2026-03-11", Time: "10:00"}
	ex := FallbackResponse(record)

	if ex.State != booking.StateConfirming || !ex.ReadyForConfirmation {
		t.Fatalf("expected confirming/ready, got %+v", ex)
	}
	if ex.Message != fallbackConfirmMessage {
		t.Fatalf("unexpected message %q", ex.Message)
	}
	if len(ex.Needs) != 0 {
		t.Fatalf("expected no needs, got %v", ex.Needs)
	}
}
