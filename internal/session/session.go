// Package session owns per-conversation state: the accumulated booking
// record, the conversation state, and the transcript. Each session is only
// ever touched by its own turns.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/booking-assistant/internal/booking"
)

// ErrNotFound is returned by stores for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// ErrEmptyMessage rejects blank utterances before any work is done.
var ErrEmptyMessage = errors.New("session: message is empty")

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session is the persisted state of one conversation.
type Session struct {
	ID         string         `json:"id"`
	State      booking.State  `json:"state"`
	Record     booking.Record `json:"record"`
	Transcript []Message      `json:"transcript"`
	// LastReady is the readiness flag returned on the previous turn.
	LastReady bool `json:"last_ready"`
	// FinalizedKey is the content key of the last committed record.
	FinalizedKey string    `json:"finalized_key,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// New returns an empty session in the greeting state.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		State:      booking.StateGreeting,
		Transcript: []Message{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *Session) append(role Role, content string, at time.Time) {
	s.Transcript = append(s.Transcript, Message{Role: role, Content: content, At: at})
}

// clone deep-copies the transcript so callers never share backing arrays.
func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Transcript = append([]Message(nil), s.Transcript...)
	return &cp
}

// Store persists sessions.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
