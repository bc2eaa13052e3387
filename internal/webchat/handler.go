package webchat

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/booking-assistant/internal/booking"
	"github.com/wolfman30/booking-assistant/internal/session"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

//go:embed widget.js
var widgetJS []byte

// ChatService runs turns against per-session state.
type ChatService interface {
	Handle(ctx context.Context, id, utterance string) (*session.TurnResult, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Reset(ctx context.Context, id string) (*session.Session, error)
}

// Handler serves the chat API over HTTP and WebSocket.
type Handler struct {
	chat   ChatService
	logger *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "reset", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "booking", "error", "pong"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
	Booking   *BookingView     `json:"booking,omitempty"`
}

// HistoryMessage is a simplified transcript entry.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// BookingView is the current booking details panel.
type BookingView struct {
	State  booking.State     `json:"state"`
	Record map[string]string `json:"record"`
	Needs  []booking.Field   `json:"needs"`
	Ready  bool              `json:"ready_for_confirmation"`
}

// TurnResponse is the HTTP reply to a posted message.
type TurnResponse struct {
	SessionID  string                  `json:"session_id"`
	Replies    []string                `json:"replies"`
	Booking    BookingView             `json:"booking"`
	Provenance string                  `json:"provenance"`
	Finalize   *session.FinalizeResult `json:"finalize,omitempty"`
}

// SessionResponse is the HTTP view of a stored session.
type SessionResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
	Booking   BookingView      `json:"booking"`
}

// NewHandler creates a web chat handler.
func NewHandler(chat ChatService, logger *logging.Logger) *Handler {
	if chat == nil {
		panic("webchat: chat service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{chat: chat, logger: logger}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

func historyOf(sess *session.Session) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(sess.Transcript))
	for _, m := range sess.Transcript {
		out = append(out, HistoryMessage{
			Role:      string(m.Role),
			Text:      m.Content,
			Timestamp: m.At.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func bookingOf(sess *session.Session, needs []booking.Field, ready bool) BookingView {
	if needs == nil {
		needs = sess.Record.Missing()
	}
	return BookingView{
		State:  sess.State,
		Record: sess.Record.Fields(),
		Needs:  needs,
		Ready:  ready,
	}
}

// turnBooking reflects the session after the turn; a reset by finalization
// shows the fresh empty record.
func turnBooking(res *session.TurnResult) BookingView {
	if res.Session.Record.IsEmpty() {
		return bookingOf(res.Session, nil, false)
	}
	return bookingOf(res.Session, res.Exchange.Needs, res.Exchange.ReadyForConfirmation)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})

	if sess, err := h.chat.Get(ctx, sessionID); err == nil && len(sess.Transcript) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: historyOf(sess)})
		view := bookingOf(sess, nil, sess.LastReady)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "booking", Booking: &view})
	}

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
		case "reset":
			sess, err := h.chat.Reset(ctx, sessionID)
			if err != nil {
				h.logger.Error("webchat: reset failed", "session_id", sessionID, "error", err)
				_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
				continue
			}
			view := bookingOf(sess, nil, false)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "booking", Booking: &view})
		case "message":
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			h.processMessage(ctx, conn, sessionID, msg.Text)
		}
	}
}

func (h *Handler) processMessage(ctx context.Context, conn *websocket.Conn, sessionID, text string) {
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})

	res, err := h.chat.Handle(ctx, sessionID, text)
	if err != nil {
		h.logger.Error("webchat: turn failed", "session_id", sessionID, "error", err)
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type: "error",
			Text: "Sorry, something went wrong. Please try again.",
		})
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, reply := range res.Replies {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "message", Role: "assistant", Text: reply, Timestamp: now})
	}
	view := turnBooking(res)
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "booking", Booking: &view})
}

// HandleMessage is the HTTP fallback for sending messages.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	res, err := h.chat.Handle(r.Context(), req.SessionID, req.Text)
	if err != nil {
		if errors.Is(err, session.ErrEmptyMessage) {
			http.Error(w, "text is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("webchat: turn failed", "session_id", req.SessionID, "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, TurnResponse{
		SessionID:  res.SessionID,
		Replies:    res.Replies,
		Booking:    turnBooking(res),
		Provenance: string(res.Exchange.Provenance),
		Finalize:   res.Finalize,
	})
}

// HandleSession returns the transcript and booking details for a session.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, err := h.chat.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("webchat: failed to load session", "session_id", id, "error", err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID: sess.ID,
		Messages:  historyOf(sess),
		Booking:   bookingOf(sess, nil, sess.LastReady),
	})
}

// HandleReset clears the record, state and transcript of a session.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, err := h.chat.Reset(r.Context(), id)
	if err != nil {
		h.logger.Error("webchat: reset failed", "session_id", id, "error", err)
		http.Error(w, "failed to reset session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID: sess.ID,
		Messages:  historyOf(sess),
		Booking:   bookingOf(sess, nil, false),
	})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(widgetJS)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
