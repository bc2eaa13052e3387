package conversation

import (
	"errors"

	"github.com/wolfman30/booking-assistant/internal/booking"
)

// Provenance records which path produced a turn's reply.
type Provenance string

const (
	ProvenanceModel    Provenance = "model"
	ProvenanceFallback Provenance = "fallback"
)

var (
	// ErrEngineUnavailable wraps transport or provider failures of the extraction engine.
	ErrEngineUnavailable = errors.New("conversation: extraction engine unavailable")
	// ErrEngineMalformed wraps replies that cannot be read as a suggestion object.
	ErrEngineMalformed = errors.New("conversation: extraction engine reply malformed")
)

// TurnExchange is the result of processing one utterance.
type TurnExchange struct {
	Utterance string        `json:"utterance"`
	Message   string        `json:"message"`
	State     booking.State `json:"state"`
	// Data holds only the validated fields extracted this turn; the caller
	// merges it into the long-lived record.
	Data                 booking.Record  `json:"data"`
	Needs                []booking.Field `json:"needs"`
	ReadyForConfirmation bool            `json:"ready_for_confirmation"`
	Provenance           Provenance      `json:"provenance"`
	// FallbackReason is set on fallback turns: "engine_unavailable" or "engine_malformed".
	FallbackReason string `json:"fallback_reason,omitempty"`
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrEngineMalformed):
		return "engine_malformed"
	default:
		return "engine_unavailable"
	}
}
