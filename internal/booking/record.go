// Package booking holds the appointment record collected during a
// conversation, the field validators that guard it, and the fixed slot and
// service catalogues.
package booking

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Field names a Booking Record field. Values match the keys the extraction
// engine uses in its "data" object.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldPhone   Field = "phone"
	FieldService Field = "service"
	FieldDate    Field = "date"
	FieldTime    Field = "time"
	FieldNotes   Field = "notes"
)

// RequiredFields lists the fields that must be present before a booking can be
// confirmed, in the order they are solicited.
var RequiredFields = []Field{FieldName, FieldEmail, FieldPhone, FieldService, FieldDate, FieldTime}

// AllFields is RequiredFields plus the optional notes field.
var AllFields = append(append([]Field(nil), RequiredFields...), FieldNotes)

// ParseField maps an engine key to a known Field.
func ParseField(key string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(key)))
	for _, known := range AllFields {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// Label is the human-readable name of the field used in prompts.
func (f Field) Label() string {
	switch f {
	case FieldEmail:
		return "email address"
	case FieldPhone:
		return "phone number"
	case FieldService:
		return "service"
	case FieldDate:
		return "preferred date"
	case FieldTime:
		return "preferred time"
	default:
		return string(f)
	}
}

// State is where the conversation last said it was. It is a cache, not a
// source of truth for completeness.
type State string

const (
	StateGreeting   State = "greeting"
	StateCollecting State = "collecting"
	StateConfirming State = "confirming"
	StateConfirmed  State = "confirmed"
)

// ParseState returns the State for s and whether it was recognised.
func ParseState(s string) (State, bool) {
	switch st := State(strings.ToLower(strings.TrimSpace(s))); st {
	case StateGreeting, StateCollecting, StateConfirming, StateConfirmed:
		return st, true
	default:
		return "", false
	}
}

// Record is the accumulating appointment data for one conversation. Empty
// strings mean "not collected yet". Date is YYYY-MM-DD and Time is HH:00.
type Record struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Service string `json:"service,omitempty"`
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Get returns the value stored for f.
func (r Record) Get(f Field) string {
	switch f {
	case FieldName:
		return r.Name
	case FieldEmail:
		return r.Email
	case FieldPhone:
		return r.Phone
	case FieldService:
		return r.Service
	case FieldDate:
		return r.Date
	case FieldTime:
		return r.Time
	case FieldNotes:
		return r.Notes
	default:
		return ""
	}
}

// With returns a copy of r with f set to value.
func (r Record) With(f Field, value string) Record {
	switch f {
	case FieldName:
		r.Name = value
	case FieldEmail:
		r.Email = value
	case FieldPhone:
		r.Phone = value
	case FieldService:
		r.Service = value
	case FieldDate:
		r.Date = value
	case FieldTime:
		r.Time = value
	case FieldNotes:
		r.Notes = value
	}
	return r
}

// Merge returns a copy of r with every non-empty field of delta applied.
// Empty delta fields never clear collected values.
func (r Record) Merge(delta Record) Record {
	for _, f := range AllFields {
		if v := delta.Get(f); v != "" {
			r = r.With(f, v)
		}
	}
	return r
}

// Missing returns the required fields absent from r, in solicitation order.
func (r Record) Missing() []Field {
	missing := make([]Field, 0, len(RequiredFields))
	for _, f := range RequiredFields {
		if strings.TrimSpace(r.Get(f)) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether every required field is present.
func (r Record) Complete() bool {
	return len(r.Missing()) == 0
}

// IsEmpty reports whether no field has been collected.
func (r Record) IsEmpty() bool {
	return r == Record{}
}

// Fields returns the populated fields as a map keyed by engine field name.
func (r Record) Fields() map[string]string {
	out := make(map[string]string, len(AllFields))
	for _, f := range AllFields {
		if v := r.Get(f); v != "" {
			out[string(f)] = v
		}
	}
	return out
}

// Key returns a stable content hash used to detect re-submission of the same
// confirmed record.
func (r Record) Key() string {
	h := sha256.New()
	for _, f := range AllFields {
		h.Write([]byte(f))
		h.Write([]byte{0})
		h.Write([]byte(r.Get(f)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
