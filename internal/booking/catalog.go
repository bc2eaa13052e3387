package booking

// DefaultServices is the bookable service catalogue. Values outside it are
// still accepted as custom services.
var DefaultServices = []string{
	"Consultation",
	"Medical Check-up",
	"Dental Cleaning",
	"Physical Therapy",
	"Vaccination",
	"Blood Test",
	"X-Ray",
	"Other",
}

// Slots are the bookable hourly start times.
var Slots = []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"}

// AvailableSlots returns Slots minus booked, preserving slot order.
func AvailableSlots(booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	out := make([]string, 0, len(Slots))
	for _, s := range Slots {
		if _, ok := taken[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
