package doctor

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Specialization string

const (
	GeneralPhysician Specialization = "General Physician"
	Cardiologist     Specialization = "Cardiologist"
	Dermatologist    Specialization = "Dermatologist"
	Pediatrician     Specialization = "Pediatrician"
	Orthopedic       Specialization = "Orthopedic"
	Gynecologist     Specialization = "Gynecologist"
	ENTSpecialist    Specialization = "ENT Specialist"
	Ophthalmologist  Specialization = "Ophthalmologist"
	Psychiatrist     Specialization = "Psychiatrist"
	Dentist          Specialization = "Dentist"
)

var Specializations = []Specialization{
	GeneralPhysician, Cardiologist, Dermatologist, Pediatrician, Orthopedic,
	Gynecologist, ENTSpecialist, Ophthalmologist, Psychiatrist, Dentist,
}

// ParseSpecialization matches case-insensitively against the catalogue.
func ParseSpecialization(s string) (Specialization, error) {
	s = strings.TrimSpace(s)
	for _, sp := range Specializations {
		if strings.EqualFold(string(sp), s) {
			return sp, nil
		}
	}
	return "", fmt.Errorf("unknown specialization %q", s)
}

type Doctor struct {
	ID                  uuid.UUID      `json:"id"`
	Name                string         `json:"name"`
	Specialization      Specialization `json:"specialization"`
	Qualification       string         `json:"qualification,omitempty"`
	ExperienceYears     int            `json:"experience_years"`
	AvailableDays       []time.Weekday `json:"available_days"`
	ConsultationMinutes int            `json:"consultation_minutes"`
	Active              bool           `json:"active"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// DisplayName is the name shown to patients and stored on appointments.
func (d Doctor) DisplayName() string {
	return "Dr. " + d.Name
}

func (d Doctor) WorksOn(day time.Weekday) bool {
	if !d.Active {
		return false
	}
	for _, wd := range d.AvailableDays {
		if wd == day {
			return true
		}
	}
	return false
}

// IDFor derives a stable doctor id from a name so seeded rosters keep their
// ids across restarts.
func IDFor(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("doctor:"+strings.ToLower(strings.TrimSpace(name))))
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func ParseWeekday(s string) (time.Weekday, error) {
	if wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
