package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/booking-assistant/internal/booking"
	"github.com/wolfman30/booking-assistant/internal/bookings"
	"github.com/wolfman30/booking-assistant/internal/conversation"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

var sessionTracer = otel.Tracer("booking.internal.session")

const msgAlreadyBooked = "This appointment has already been booked. Let me know if you'd like to book another one."

// affirmativeTokens trigger finalization when the previous or current turn
// reported readiness. Matched as case-insensitive substrings.
var affirmativeTokens = []string{"yes", "confirm", "book", "ok"}

// Engine produces one turn exchange from an utterance.
type Engine interface {
	Process(ctx context.Context, utterance string, state booking.State, record booking.Record) conversation.TurnExchange
}

// Finalizer commits a confirmed record.
type Finalizer interface {
	Finalize(ctx context.Context, record booking.Record) bookings.Outcome
}

// TurnResult is what a caller renders after one turn.
type TurnResult struct {
	SessionID string                    `json:"session_id"`
	Exchange  conversation.TurnExchange `json:"exchange"`
	// Replies are the assistant messages appended this turn, in order.
	Replies  []string        `json:"replies"`
	Finalize *FinalizeResult `json:"finalize,omitempty"`
	Session  *Session        `json:"session"`
}

// FinalizeResult is the serialisable view of a finalization outcome.
type FinalizeResult struct {
	Status      bookings.OutcomeStatus `json:"status"`
	Message     string                 `json:"message"`
	NotifyError string                 `json:"notify_error,omitempty"`
	PersistErr  string                 `json:"persist_error,omitempty"`
}

// Service drives turns for many isolated sessions.
type Service struct {
	store     Store
	engine    Engine
	finalizer Finalizer
	logger    *logging.Logger
	now       func() time.Time
	newID     func() string

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewService(store Store, engine Engine, finalizer Finalizer, logger *logging.Logger) *Service {
	if store == nil {
		panic("session: store required")
	}
	if engine == nil {
		panic("session: engine required")
	}
	if finalizer == nil {
		panic("session: finalizer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		engine:    engine,
		finalizer: finalizer,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		locks:     make(map[string]*sessionLock),
	}
}

// lock serialises turns for one session id.
func (s *Service) lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// Handle processes one utterance. An empty id starts a new session.
func (s *Service) Handle(ctx context.Context, id, utterance string) (*TurnResult, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, ErrEmptyMessage
	}
	if id == "" {
		id = s.newID()
	}

	ctx, span := sessionTracer.Start(ctx, "session.handle_turn")
	defer span.End()
	span.SetAttributes(attribute.String("booking.session_id", id))

	unlock := s.lock(id)
	defer unlock()

	sess, err := s.loadOrCreate(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := s.now()
	sess.append(RoleUser, utterance, now)

	ex := s.engine.Process(ctx, utterance, sess.State, sess.Record)
	sess.State = ex.State
	sess.Record = sess.Record.Merge(ex.Data)
	sess.append(RoleAssistant, ex.Message, now)

	wasReady := sess.LastReady
	sess.LastReady = ex.ReadyForConfirmation

	result := &TurnResult{SessionID: id, Exchange: ex, Replies: []string{ex.Message}}
	committed := false

	if s.shouldFinalize(sess, ex, wasReady, utterance) {
		if key := sess.Record.Key(); key == sess.FinalizedKey {
			s.logger.Info("duplicate confirmation ignored", "session_id", id)
			sess.append(RoleAssistant, msgAlreadyBooked, now)
			result.Replies = append(result.Replies, msgAlreadyBooked)
			resetConversation(sess)
		} else {
			// The key is stored before the append so a lost final save
			// cannot lead to the same record being committed again.
			prevKey := sess.FinalizedKey
			sess.FinalizedKey = key
			sess.UpdatedAt = now
			if err := s.store.Save(ctx, sess); err != nil {
				span.RecordError(err)
				s.logger.Error("session save before finalize failed", "session_id", id, "error", err)
				return nil, fmt.Errorf("session: save: %w", err)
			}

			out := s.finalizer.Finalize(ctx, sess.Record)
			result.Finalize = newFinalizeResult(out)
			sess.append(RoleAssistant, out.Message, now)
			result.Replies = append(result.Replies, out.Message)
			committed = out.Committed()
			if !committed {
				sess.FinalizedKey = prevKey
			}
			if out.Reset {
				resetConversation(sess)
			}
			s.logger.Info("booking finalization", "session_id", id, "status", string(out.Status))
		}
	}

	sess.UpdatedAt = now
	if err := s.store.Save(ctx, sess); err != nil {
		span.RecordError(err)
		s.logger.Error("session save failed", "session_id", id, "error", err)
		// A committed booking is reported as booked even if the transcript
		// could not be stored.
		if !committed {
			return nil, fmt.Errorf("session: save: %w", err)
		}
	}
	result.Session = sess
	return result, nil
}

// shouldFinalize requires a complete record plus either an explicit
// confirmed state or readiness followed by an affirmative reply.
func (s *Service) shouldFinalize(sess *Session, ex conversation.TurnExchange, wasReady bool, utterance string) bool {
	if !sess.Record.Complete() {
		return false
	}
	if ex.State == booking.StateConfirmed {
		return true
	}
	return (wasReady || ex.ReadyForConfirmation) && IsAffirmative(utterance)
}

// IsAffirmative reports whether the utterance contains a confirmation token.
func IsAffirmative(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, tok := range affirmativeTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func resetConversation(sess *Session) {
	sess.Record = booking.Record{}
	sess.State = booking.StateGreeting
	sess.LastReady = false
}

func newFinalizeResult(out bookings.Outcome) *FinalizeResult {
	r := &FinalizeResult{Status: out.Status, Message: out.Message}
	if out.NotifyErr != nil {
		r.NotifyError = out.NotifyErr.Error()
	}
	if out.PersistErr != nil {
		r.PersistErr = out.PersistErr.Error()
	}
	return r
}

func (s *Service) loadOrCreate(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return New(id, s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	return sess, nil
}

// Get returns the stored session.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.store.Load(ctx, id)
}

// Reset starts the conversation over: empty record, greeting state, empty
// transcript.
func (s *Service) Reset(ctx context.Context, id string) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess := New(id, s.now())
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("session: reset: %w", err)
	}
	s.logger.Info("session reset", "session_id", id)
	return sess, nil
}
