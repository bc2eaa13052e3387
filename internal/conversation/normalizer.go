package conversation

import (
	"github.com/wolfman30/booking-assistant/internal/booking"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

const defaultPromptMessage = "I'm here to help you book an appointment. Could you please tell me what you need?"

// Normalizer turns an untrusted Suggestion into a TurnExchange. It is the
// enforcement boundary: only validator-accepted values leave it, and needs
// and readiness are always recomputed from the record.
type Normalizer struct {
	validator *booking.Validator
	logger    *logging.Logger
}

func NewNormalizer(validator *booking.Validator, logger *logging.Logger) *Normalizer {
	if validator == nil {
		validator = booking.NewValidator(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Normalizer{validator: validator, logger: logger}
}

// Normalize validates s against the accumulated record. record is not modified.
func (n *Normalizer) Normalize(s Suggestion, record booking.Record) TurnExchange {
	message := s.Message
	if message == "" {
		message = defaultPromptMessage
	}
	state, ok := booking.ParseState(s.State)
	if !ok {
		state = booking.StateCollecting
	}

	var validated booking.Record
	for _, key := range s.Keys() {
		field, known := booking.ParseField(key)
		if !known {
			n.logger.Debug("normalizer: dropping unknown field", "field", key)
			continue
		}
		value, err := n.validator.Validate(field, s.Data[key])
		if err != nil {
			n.logger.Debug("normalizer: rejected field", "field", key, "error", err)
			continue
		}
		validated = validated.With(field, value)
	}

	needs := record.Merge(validated).Missing()
	ready := len(needs) == 0
	if !ready && (state == booking.StateConfirming || state == booking.StateConfirmed) {
		state = booking.StateCollecting
	}

	return TurnExchange{
		Message:              message,
		State:                state,
		Data:                 validated,
		Needs:                needs,
		ReadyForConfirmation: ready,
		Provenance:           ProvenanceModel,
	}
}
