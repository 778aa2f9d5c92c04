package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/conversational-appointment-booking/internal/doctor"
)

// SlotCandidate is one bookable hour for a doctor. Candidates are derived,
// never stored; SlotID is stable for the same doctor, date and start.
type SlotCandidate struct {
	SlotID         uuid.UUID             `json:"slot_id"`
	DoctorID       uuid.UUID             `json:"doctor_id"`
	DoctorName     string                `json:"doctor_name"`
	Specialization doctor.Specialization `json:"specialization"`
	Date           string                `json:"date"`
	StartTime      string                `json:"start_time"`
	EndTime        string                `json:"end_time"`
}

// Start returns the slot's start instant in loc.
func (s SlotCandidate) Start(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, s.Date+" "+s.StartTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("slot %s: %w", s.SlotID, err)
	}
	return t, nil
}

var slotNamespace = uuid.MustParse("8a5c6f0e-3b2d-4c1a-9e7f-5d4b3a2c1b0a")

func slotID(doctorID uuid.UUID, date, start string) uuid.UUID {
	return uuid.NewSHA1(slotNamespace, []byte(doctorID.String()+"|"+date+"|"+start))
}

// ClinicHours bounds slot generation: one slot per hour in [Open, Close).
type ClinicHours struct {
	Open  int
	Close int
}

// BookedSet holds the (doctor, start) pairs taken by blocking appointments.
type BookedSet map[string]struct{}

func bookedKey(doctorID uuid.UUID, date, start string) string {
	return doctorID.String() + "|" + date + "|" + start
}

func NewBookedSet(appts []Appointment) BookedSet {
	set := make(BookedSet, len(appts))
	for _, a := range appts {
		if !a.Status.Blocking() {
			continue
		}
		set[bookedKey(a.DoctorID, a.Date(), a.Clock())] = struct{}{}
	}
	return set
}

func (b BookedSet) has(doctorID uuid.UUID, date, start string) bool {
	_, ok := b[bookedKey(doctorID, date, start)]
	return ok
}

// Window is the calendar range to enumerate. From is truncated to its day
// in its own location. Slots starting before NotBefore are skipped.
type Window struct {
	From      time.Time
	Days      int
	NotBefore time.Time
}

// AvailableSlots lists a doctor's open hourly slots over the window in
// ascending (date, start) order. Days the doctor does not work are skipped.
func AvailableSlots(doc doctor.Doctor, w Window, hours ClinicHours, booked BookedSet) []SlotCandidate {
	var out []SlotCandidate
	loc := w.From.Location()
	day := time.Date(w.From.Year(), w.From.Month(), w.From.Day(), 0, 0, 0, 0, loc)

	for i := 0; i < w.Days; i++ {
		d := day.AddDate(0, 0, i)
		if !doc.WorksOn(d.Weekday()) {
			continue
		}
		date := d.Format(DateLayout)

		for h := hours.Open; h < hours.Close; h++ {
			start := time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, loc)
			if !w.NotBefore.IsZero() && start.Before(w.NotBefore) {
				continue
			}
			startClock := start.Format(ClockLayout)
			if booked.has(doc.ID, date, startClock) {
				continue
			}
			out = append(out, SlotCandidate{
				SlotID:         slotID(doc.ID, date, startClock),
				DoctorID:       doc.ID,
				DoctorName:     doc.DisplayName(),
				Specialization: doc.Specialization,
				Date:           date,
				StartTime:      startClock,
				EndTime:        start.Add(time.Hour).Format(ClockLayout),
			})
		}
	}
	return out
}

type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

// ParseTimeOfDay accepts the three buckets case-insensitively.
func ParseTimeOfDay(s string) (TimeOfDay, bool) {
	switch t := TimeOfDay(strings.ToLower(strings.TrimSpace(s))); t {
	case Morning, Afternoon, Evening:
		return t, true
	default:
		return "", false
	}
}

func (t TimeOfDay) hours() (from, to int, ok bool) {
	switch t {
	case Morning:
		return 9, 12, true
	case Afternoon:
		return 12, 17, true
	case Evening:
		return 17, 20, true
	default:
		return 0, 0, false
	}
}

// FilterByTimeOfDay keeps slots whose start hour falls in the bucket. An
// empty or unknown preference returns slots unchanged.
func FilterByTimeOfDay(slots []SlotCandidate, pref TimeOfDay) []SlotCandidate {
	from, to, ok := pref.hours()
	if !ok {
		return slots
	}
	out := make([]SlotCandidate, 0, len(slots))
	for _, s := range slots {
		var h, m int
		if _, err := fmt.Sscanf(s.StartTime, "%d:%d", &h, &m); err != nil {
			continue
		}
		if h >= from && h < to {
			out = append(out, s)
		}
	}
	return out
}
