package bookings

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/booking-assistant/internal/booking"
	"github.com/wolfman30/booking-assistant/pkg/logging"
)

// SlotsHandler exposes advisory availability for a date.
type SlotsHandler struct {
	store  Store
	logger *logging.Logger
}

func NewSlotsHandler(store Store, logger *logging.Logger) *SlotsHandler {
	if store == nil {
		panic("bookings: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotsHandler{store: store, logger: logger}
}

type slotsResponse struct {
	Date      string   `json:"date"`
	Available []string `json:"available"`
	Booked    []string `json:"booked"`
}

// HandleSlots serves GET /slots?date=YYYY-MM-DD.
func (h *SlotsHandler) HandleSlots(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	booked, err := h.store.ListBookedTimes(r.Context(), date)
	if err != nil {
		h.logger.Error("failed to list booked times", "date", date, "error", err)
		http.Error(w, "failed to load availability", http.StatusBadGateway)
		return
	}
	if booked == nil {
		booked = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(slotsResponse{
		Date:      date,
		Available: booking.AvailableSlots(booked),
		Booked:    booked,
	})
}
