package conversation

import (
	"fmt"

	"github.com/wolfman30/booking-assistant/internal/booking"
)

const fallbackConfirmMessage = "Perfect! I have all your information. Would you like me to book this appointment for you?"

// FallbackResponse continues the conversation without the extraction engine.
// It ignores the utterance and asks for the first missing required field, or
// for confirmation once nothing is missing.
func FallbackResponse(record booking.Record) TurnExchange {
	missing := record.Missing()
	if len(missing) > 0 {
		return TurnExchange{
			Message:    fmt.Sprintf("I need to collect some more information. Could you please provide your %s?", missing[0].Label()),
			State:      booking.StateCollecting,
			Needs:      missing,
			Provenance: ProvenanceFallback,
		}
	}
	return TurnExchange{
		Message:              fallbackConfirmMessage,
		State:                booking.StateConfirming,
		Needs:                []booking.Field{},
		ReadyForConfirmation: true,
		Provenance:           ProvenanceFallback,
	}
}
