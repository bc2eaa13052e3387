package booking

import (
	"errors"
	"testing"
	"time"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"A@B.COM", "a@b.com", false},
		{"jane.doe+spa@Example.org", "jane.doe+spa@example.org", false},
		{"  jane@x.com ", "jane@x.com", false},
		{"not-an-email", "", true},
		{"jane@x", "", true},
		{"jane@x.c", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ValidateEmail(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ValidateEmail(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("ValidateEmail(%q) expected ErrInvalidFormat, got %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ValidateEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"(555) 123-4567", "5551234567", false},
		{"555 123 4567", "5551234567", false},
		{"44 20 7946 0958 12", "44207946095812", false},
		{"12345", "", true},
		{"1234567890123456", "", true},
		{"555-CALL-NOW", "", true},
		{"+1 555 123 4567", "", true},
	}
	for _, tt := range tests {
		got, err := CleanPhone(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("CleanPhone(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("CleanPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateDateWindow(t *testing.T) {
	today := time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC)
	iso := func(days int) string { return today.AddDate(0, 0, days).Format("2006-01-02") }

	if _, err := ValidateDate(iso(0), today); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("today should be rejected as out of range, got %v", err)
	}
	if _, err := ValidateDate(iso(-3), today); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("past date should be rejected, got %v", err)
	}
	if _, err := ValidateDate(iso(181), today); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("today+181 should be rejected, got %v", err)
	}
	if got, err := ValidateDate(iso(1), today); err != nil || got != iso(1) {
		t.Fatalf("today+1 should be accepted, got %q %v", got, err)
	}
	if got, err := ValidateDate(iso(180), today); err != nil || got != iso(180) {
		t.Fatalf("today+180 should be accepted, got %q %v", got, err)
	}
}

func TestValidateDateLayouts(t *testing.T) {
	today := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want string
	}{
		{"2026-04-02", "2026-04-02"},
		{"04/02/2026", "2026-04-02"},
		{"4/2/2026", "2026-04-02"},
		{"04-02-2026", "2026-04-02"},
		{"April 2, 2026", "2026-04-02"},
		{"Apr 2, 2026", "2026-04-02"},
		{" april 2, 2026 ", "2026-04-02"},
	}
	for _, tt := range tests {
		got, err := ValidateDate(tt.in, today)
		if err != nil {
			t.Fatalf("ValidateDate(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ValidateDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"next tuesday", "2026/04/02", "", "13/45/2026"} {
		if _, err := ValidateDate(bad, today); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("ValidateDate(%q) expected ErrInvalidFormat, got %v", bad, err)
		}
	}
}

func TestValidateDateUsesCalendarDayOfLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 23:30 on March 10 in New York is already March 11 in UTC.
	today := time.Date(2026, time.March, 10, 23, 30, 0, 0, ny)
	if got, err := ValidateDate("2026-03-11", today); err != nil || got != "2026-03-11" {
		t.Fatalf("expected next local day to be accepted, got %q %v", got, err)
	}
}

func TestValidateTime(t *testing.T) {
	accepted := map[string]string{
		"9":       "09:00",
		"9:00":    "09:00",
		"9:30":    "09:00",
		"9:00 AM": "09:00",
		"9 am":    "09:00",
		"9.15am":  "09:00",
		"09:00":   "09:00",
		"12 PM":   "12:00",
		"2:00 pm": "14:00",
		"17:00":   "17:00",
		"17:45":   "17:00",
		"5:00 PM": "17:00",
		" 13:00 ": "13:00",
	}
	for in, want := range accepted {
		got, err := ValidateTime(in)
		if err != nil {
			t.Fatalf("ValidateTime(%q) unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ValidateTime(%q) = %q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"8:00", "18:00", "8 AM", "6 PM", "12 AM", "13 PM", "9:75", "noon", "", "9:00:00"} {
		if _, err := ValidateTime(in); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("ValidateTime(%q) expected ErrInvalidFormat, got %v", in, err)
		}
	}
}

func TestValidateService(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"consultation", "Consultation"},
		{"I'd like a dental cleaning please", "Dental Cleaning"},
		{"x-ray", "X-Ray"},
		{"blood", "Blood Test"},
		{"hair CUT", "Hair Cut"},
	}
	for _, tt := range tests {
		got, err := ValidateService(tt.in, DefaultServices)
		if err != nil {
			t.Fatalf("ValidateService(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ValidateService(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := ValidateService("   ", DefaultServices); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected empty service to be rejected, got %v", err)
	}
}

func TestValidatorDispatch(t *testing.T) {
	v := &Validator{
		Services: DefaultServices,
		Now:      func() time.Time { return time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	}
	cases := []struct {
		field   Field
		in      string
		want    string
		wantErr bool
	}{
		{FieldName, "  Jane  ", "Jane", false},
		{FieldName, " ", "", true},
		{FieldEmail, "JANE@X.COM", "jane@x.com", false},
		{FieldPhone, "555-123-4567", "5551234567", false},
		{FieldService, "vaccine", "Vaccine", false},
		{FieldDate, "2026-01-06", "2026-01-06", false},
		{FieldDate, "2026-01-05", "", true},
		{FieldTime, "3pm", "15:00", false},
		{FieldNotes, " bring x-rays ", "bring x-rays", false},
		{FieldName, "Jane\r\nBcc: victim@evil.com", "", true},
		{FieldName, "Jane\x00Doe", "", true},
		{FieldNotes, "first\nsecond", "", true},
		{FieldService, "consultation\r\n", "Consultation", false},
		{FieldService, "hair\ncut", "", true},
		{Field("age"), "42", "", true},
	}
	for _, tc := range cases {
		got, err := v.Validate(tc.field, tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("Validate(%s, %q) err = %v, wantErr %v", tc.field, tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("Validate(%s, %q) = %q, want %q", tc.field, tc.in, got, tc.want)
		}
	}
}
