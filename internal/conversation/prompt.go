package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/booking-assistant/internal/booking"
)

// ExtractionContext is the per-turn data handed to the extraction engine.
type ExtractionContext struct {
	State     booking.State
	Record    booking.Record
	Missing   []booking.Field
	Utterance string
	// OpenSlots lists advisory availability for Record.Date, if it was looked up.
	OpenSlots []string
}

// SystemInstructions renders the fixed booking policy for the engine. today
// anchors the date window.
func SystemInstructions(today time.Time, services []string) string {
	currentDate := today.Format("2006-01-02")
	currentDay := today.Format("Monday, January 2, 2006")
	tomorrow := today.AddDate(0, 0, 1).Format("2006-01-02")
	lastDay := today.AddDate(0, 0, booking.MaxAdvanceDays).Format("2006-01-02")

	required := make([]string, 0, len(booking.RequiredFields))
	for _, f := range booking.RequiredFields {
		required = append(required, string(f))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an appointment booking assistant. You help users book appointments through a friendly conversation.\n\n")
	fmt.Fprintf(&b, "CURRENT DATE: Today is %s (%s).\n\n", currentDay, currentDate)
	b.WriteString("APPOINTMENT REQUIREMENTS:\n")
	b.WriteString("- name (required)\n")
	b.WriteString("- email (required, valid format)\n")
	b.WriteString("- phone (required, 10-15 digits)\n")
	b.WriteString("- service (required, a listed service or a custom one)\n")
	fmt.Fprintf(&b, "- date (required, from %s through %s)\n", tomorrow, lastDay)
	fmt.Fprintf(&b, "- time (required, one of %s)\n", strings.Join(booking.Slots, ", "))
	b.WriteString("- notes (optional)\n\n")
	fmt.Fprintf(&b, "AVAILABLE SERVICES: %s\n\n", strings.Join(services, ", "))
	b.WriteString("RULES:\n")
	b.WriteString("- Greet the user and progressively collect every required field.\n")
	b.WriteString("- Validate information as it arrives and politely ask again for anything invalid.\n")
	fmt.Fprintf(&b, "- Ask for exactly one missing field at a time, in this order: %s.\n", strings.Join(required, " -> "))
	b.WriteString("- Never ask for a field that already appears in the current appointment data.\n")
	b.WriteString("- Only move to confirmation when no required field is missing; then summarise and ask the user to confirm.\n")
	fmt.Fprintf(&b, "- Dates must be strictly after today (%s) and no more than %d days ahead.\n", currentDate, booking.MaxAdvanceDays)
	b.WriteString("- Times must be one of the nine hourly slots between 09:00 and 17:00.\n")
	b.WriteString("- A service may be a listed service or a free-text custom service.\n\n")
	b.WriteString("RESPONSE FORMAT: reply with one JSON object only:\n")
	b.WriteString(`{"message": "your reply to the user", "state": "greeting|collecting|confirming|confirmed", "data": {"field": "value extracted from this message"}}`)
	b.WriteString("\nOnly include fields in data that the user provided in this message.")
	return b.String()
}

// Render serialises the context as the user turn sent to the engine.
func (c ExtractionContext) Render() string {
	record, _ := json.Marshal(c.Record)
	missing := make([]string, 0, len(c.Missing))
	for _, f := range c.Missing {
		missing = append(missing, string(f))
	}
	missingJSON, _ := json.Marshal(missing)

	var b strings.Builder
	fmt.Fprintf(&b, "CURRENT STATE: %s\n", c.State)
	fmt.Fprintf(&b, "CURRENT APPOINTMENT DATA: %s\n", record)
	fmt.Fprintf(&b, "MISSING FIELDS: %s\n", missingJSON)
	if c.Record.Date != "" && c.OpenSlots != nil {
		fmt.Fprintf(&b, "OPEN SLOTS ON %s: %s\n", c.Record.Date, strings.Join(c.OpenSlots, ", "))
	}
	fmt.Fprintf(&b, "USER MESSAGE: %s\n\n", c.Utterance)
	b.WriteString("Look at CURRENT APPOINTMENT DATA before replying and do not ask for anything already present. ")
	b.WriteString("Extract any new details from the user message into data, including the service if one is mentioned, ")
	b.WriteString("and ask for the next missing field only.")
	return b.String()
}
