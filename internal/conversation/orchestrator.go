package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/booking-assistant/internal/booking"
	"github.com/wolfman30/booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

var orchestratorTracer = otel.Tracer("booking.internal.conversation.orchestrator")

// SlotLister answers advisory availability questions. It never blocks a turn.
type SlotLister interface {
	ListBookedTimes(ctx context.Context, date string) ([]string, error)
}

// Orchestrator processes one utterance: it assembles the engine context,
// calls the extraction engine, and routes the reply through the Normalizer or
// the fallback responder. It holds no conversation state.
type Orchestrator struct {
	client     LLMClient
	provider   string
	model      string
	timeout    time.Duration
	validator  *booking.Validator
	normalizer *Normalizer
	slots      SlotLister
	logger     *logging.Logger
	metrics    *metrics.AssistantMetrics
}

type OrchestratorOption func(*Orchestrator)

// WithProvider labels engine metrics and selects a model id override.
func WithProvider(provider, model string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.provider = provider
		o.model = model
	}
}

// WithEngineTimeout bounds a single engine call. Zero disables the bound.
func WithEngineTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.timeout = d }
}

func WithSlotLister(l SlotLister) OrchestratorOption {
	return func(o *Orchestrator) { o.slots = l }
}

func WithMetrics(m *metrics.AssistantMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator builds an orchestrator. A nil client makes every turn use
// the fallback responder.
func NewOrchestrator(client LLMClient, validator *booking.Validator, opts ...OrchestratorOption) *Orchestrator {
	if validator == nil {
		validator = booking.NewValidator(nil)
	}
	o := &Orchestrator{
		client:    client,
		provider:  "engine",
		validator: validator,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.normalizer = NewNormalizer(validator, o.logger)
	return o
}

// Process handles one turn. Engine failures never surface as errors; they
// produce a fallback exchange.
func (o *Orchestrator) Process(ctx context.Context, utterance string, state booking.State, record booking.Record) TurnExchange {
	ctx, span := orchestratorTracer.Start(ctx, "conversation.process_turn")
	defer span.End()

	exchange, err := o.viaEngine(ctx, utterance, state, record)
	if err != nil {
		span.RecordError(err)
		o.logger.Warn("extraction engine failed, using fallback responder",
			"error", err,
			"provider", o.provider,
		)
		exchange = FallbackResponse(record)
		exchange.FallbackReason = fallbackReason(err)
	}
	exchange.Utterance = utterance

	span.SetAttributes(
		attribute.String("booking.turn.provenance", string(exchange.Provenance)),
		attribute.String("booking.turn.state", string(exchange.State)),
		attribute.Int("booking.turn.needs", len(exchange.Needs)),
	)
	o.metrics.ObserveTurn(string(exchange.Provenance), exchange.FallbackReason)
	return exchange
}

func (o *Orchestrator) viaEngine(ctx context.Context, utterance string, state booking.State, record booking.Record) (TurnExchange, error) {
	if o.client == nil {
		return TurnExchange{}, fmt.Errorf("%w: no engine configured", ErrEngineUnavailable)
	}

	extraction := ExtractionContext{
		State:     state,
		Record:    record,
		Missing:   record.Missing(),
		Utterance: utterance,
		OpenSlots: o.openSlots(ctx, record.Date),
	}
	req := LLMRequest{
		Model:       o.model,
		System:      []string{SystemInstructions(o.validator.Today(), o.services())},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: extraction.Render()}},
		MaxTokens:   1024,
		Temperature: 0.2,
		JSONMode:    true,
	}

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.client.Complete(callCtx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.metrics.ObserveEngineLatency(o.provider, status, time.Since(start).Seconds())
	if err != nil {
		return TurnExchange{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	suggestion, err := ParseSuggestion(resp.Text)
	if err != nil {
		return TurnExchange{}, err
	}
	o.logger.Debug("extraction engine replied",
		"provider", o.provider,
		"fields", strings.Join(suggestion.Keys(), ","),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return o.normalizer.Normalize(suggestion, record), nil
}

// openSlots returns nil when availability is unknown.
func (o *Orchestrator) openSlots(ctx context.Context, date string) []string {
	if o.slots == nil || date == "" {
		return nil
	}
	booked, err := o.slots.ListBookedTimes(ctx, date)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			o.logger.Debug("advisory slot lookup failed", "date", date, "error", err)
		}
		return nil
	}
	return booking.AvailableSlots(booked)
}

func (o *Orchestrator) services() []string {
	if o.validator.Services != nil {
		return o.validator.Services
	}
	return booking.DefaultServices
}
