package booking

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrInvalidFormat means the value could not be parsed for its field.
	ErrInvalidFormat = errors.New("booking: invalid format")
	// ErrOutOfRange means the value parsed but falls outside the bookable window.
	ErrOutOfRange = errors.New("booking: out of range")
)

const (
	// MaxAdvanceDays is how far ahead a date may be booked.
	MaxAdvanceDays = 180
	// OpeningHour and ClosingHour bound the hourly slots, inclusive.
	OpeningHour = 9
	ClosingHour = 17
)

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneStrip     = regexp.MustCompile(`[\s\-()]`)
	hourPattern    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?$`)
	meridiemFormat = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(AM|PM)$`)

	// Accepted date layouts, tried in order.
	dateLayouts = []string{
		"2006-1-2",
		"1/2/2006",
		"1-2-2006",
		"January 2, 2006",
		"Jan 2, 2006",
	}
)

// ValidateEmail accepts local@domain.tld addresses and returns them lower-cased.
func ValidateEmail(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !emailPattern.MatchString(s) {
		return "", fmt.Errorf("%w: email %q", ErrInvalidFormat, s)
	}
	return strings.ToLower(s), nil
}

// CleanPhone strips whitespace, hyphens and parentheses and accepts 10 to 15
// digits.
func CleanPhone(s string) (string, error) {
	cleaned := phoneStrip.ReplaceAllString(s, "")
	if len(cleaned) < 10 || len(cleaned) > 15 {
		return "", fmt.Errorf("%w: phone must have 10-15 digits", ErrInvalidFormat)
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: phone must be digits only", ErrInvalidFormat)
		}
	}
	return cleaned, nil
}

// ValidateDate parses s with the accepted layouts and requires the date to be
// strictly after today and at most MaxAdvanceDays ahead. today is interpreted
// as a calendar date in its own location.
func ValidateDate(s string, today time.Time) (string, error) {
	s = strings.TrimSpace(s)
	ty, tm, td := today.Date()
	start := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	limit := start.AddDate(0, 0, MaxAdvanceDays)

	parsedAny := false
	for _, layout := range dateLayouts {
		d, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		parsedAny = true
		if d.After(start) && !d.After(limit) {
			return d.Format("2006-01-02"), nil
		}
	}
	if parsedAny {
		return "", fmt.Errorf("%w: date %q must be after %s and within %d days", ErrOutOfRange, s, start.Format("2006-01-02"), MaxAdvanceDays)
	}
	return "", fmt.Errorf("%w: date %q", ErrInvalidFormat, s)
}

// ValidateTime accepts 12-hour ("9:00 AM", "2pm") and 24-hour ("9", "14:30")
// inputs within opening hours and returns the HH:00 slot. Minutes are floored
// to the hour: only whole-hour slots exist.
func ValidateTime(s string) (string, error) {
	s = strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), ".", ":")

	var hour, minute int
	if strings.Contains(s, "AM") || strings.Contains(s, "PM") {
		m := meridiemFormat.FindStringSubmatch(s)
		if m == nil {
			return "", fmt.Errorf("%w: time %q", ErrInvalidFormat, s)
		}
		hour, _ = strconv.Atoi(m[1])
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("%w: time %q", ErrInvalidFormat, s)
		}
		hour %= 12
		if m[3] == "PM" {
			hour += 12
		}
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
	} else {
		m := hourPattern.FindStringSubmatch(s)
		if m == nil {
			return "", fmt.Errorf("%w: time %q", ErrInvalidFormat, s)
		}
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
	}
	if minute > 59 {
		return "", fmt.Errorf("%w: time %q", ErrInvalidFormat, s)
	}
	if hour < OpeningHour || hour > ClosingHour {
		return "", fmt.Errorf("%w: time %q outside %02d:00-%02d:00", ErrInvalidFormat, s, OpeningHour, ClosingHour)
	}
	return fmt.Sprintf("%02d:00", hour), nil
}

// ValidateService matches s against the catalogue case-insensitively (either
// side may contain the other). Unmatched values are accepted as title-cased
// custom services.
func ValidateService(s string, catalog []string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty service", ErrInvalidFormat)
	}
	if hasControl(s) {
		return "", fmt.Errorf("%w: control character in service", ErrInvalidFormat)
	}
	lower := strings.ToLower(s)
	for _, svc := range catalog {
		candidate := strings.ToLower(svc)
		if strings.Contains(lower, candidate) || strings.Contains(candidate, lower) {
			return svc, nil
		}
	}
	return cases.Title(language.English).String(s), nil
}

func validateText(f Field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty %s", ErrInvalidFormat, f)
	}
	if hasControl(s) {
		return "", fmt.Errorf("%w: control character in %s", ErrInvalidFormat, f)
	}
	return s, nil
}

// hasControl reports CR, LF and other control runes, which must never
// reach a mail header.
func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// Validator applies the field validators with a fixed service catalogue and
// a clock that defines "today".
type Validator struct {
	Services []string
	Now      func() time.Time
	Location *time.Location
}

// NewValidator returns a Validator using the default catalogue and wall clock.
func NewValidator(loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{Services: DefaultServices, Now: time.Now, Location: loc}
}

// Today returns the current calendar date in the validator's location.
func (v *Validator) Today() time.Time {
	now := time.Now
	if v != nil && v.Now != nil {
		now = v.Now
	}
	loc := time.UTC
	if v != nil && v.Location != nil {
		loc = v.Location
	}
	return now().In(loc)
}

// Validate runs the validator for f. Unknown fields are rejected.
func (v *Validator) Validate(f Field, value string) (string, error) {
	switch f {
	case FieldEmail:
		return ValidateEmail(value)
	case FieldPhone:
		return CleanPhone(value)
	case FieldDate:
		return ValidateDate(value, v.Today())
	case FieldTime:
		return ValidateTime(value)
	case FieldService:
		services := DefaultServices
		if v != nil && v.Services != nil {
			services = v.Services
		}
		return ValidateService(value, services)
	case FieldName, FieldNotes:
		return validateText(f, value)
	default:
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidFormat, f)
	}
}
