package doctor

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type rosterFile struct {
	Doctors []rosterEntry `mapstructure:"doctors"`
}

type rosterEntry struct {
	Name                string   `mapstructure:"name"`
	Specialization      string   `mapstructure:"specialization"`
	Qualification       string   `mapstructure:"qualification"`
	ExperienceYears     int      `mapstructure:"experience_years"`
	AvailableDays       []string `mapstructure:"available_days"`
	ConsultationMinutes int      `mapstructure:"consultation_minutes"`
	Active              *bool    `mapstructure:"active"`
}

// LoadRoster reads a YAML, JSON or TOML roster file. An empty path yields
// DefaultRoster.
func LoadRoster(path string, defaultMinutes int) ([]Doctor, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRoster(defaultMinutes), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}

	var file rosterFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode roster %s: %w", path, err)
	}
	if len(file.Doctors) == 0 {
		return nil, fmt.Errorf("roster %s has no doctors", path)
	}

	doctors := make([]Doctor, 0, len(file.Doctors))
	for i, e := range file.Doctors {
		d, err := e.toDoctor(defaultMinutes)
		if err != nil {
			return nil, fmt.Errorf("roster entry %d: %w", i, err)
		}
		doctors = append(doctors, d)
	}
	return doctors, nil
}

func (e rosterEntry) toDoctor(defaultMinutes int) (Doctor, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return Doctor{}, fmt.Errorf("name is required")
	}
	spec, err := ParseSpecialization(e.Specialization)
	if err != nil {
		return Doctor{}, err
	}

	days := make([]time.Weekday, 0, len(e.AvailableDays))
	for _, s := range e.AvailableDays {
		wd, err := ParseWeekday(s)
		if err != nil {
			return Doctor{}, err
		}
		days = append(days, wd)
	}
	if len(days) == 0 {
		days = weekdays()
	}

	minutes := e.ConsultationMinutes
	if minutes <= 0 {
		minutes = defaultMinutes
	}
	active := true
	if e.Active != nil {
		active = *e.Active
	}

	return Doctor{
		ID:                  IDFor(name),
		Name:                name,
		Specialization:      spec,
		Qualification:       e.Qualification,
		ExperienceYears:     e.ExperienceYears,
		AvailableDays:       days,
		ConsultationMinutes: minutes,
		Active:              active,
	}, nil
}

func weekdays() []time.Weekday {
	return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
}

// DefaultRoster is the clinic's built-in staff list.
func DefaultRoster(defaultMinutes int) []Doctor {
	if defaultMinutes <= 0 {
		defaultMinutes = 30
	}
	mk := func(name string, spec Specialization, qual string, years int, minutes int, days ...time.Weekday) Doctor {
		if minutes == 0 {
			minutes = defaultMinutes
		}
		return Doctor{
			ID:                  IDFor(name),
			Name:                name,
			Specialization:      spec,
			Qualification:       qual,
			ExperienceYears:     years,
			AvailableDays:       days,
			ConsultationMinutes: minutes,
			Active:              true,
		}
	}

	return []Doctor{
		mk("Rajesh Kumar", GeneralPhysician, "MBBS, MD", 15, 0, weekdays()...),
		mk("Priya Sharma", Cardiologist, "MBBS, MD (Cardiology)", 12, 45, time.Monday, time.Wednesday, time.Friday),
		mk("Amit Verma", Dermatologist, "MBBS, MD (Dermatology)", 8, 0,
			time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday),
		mk("Neha Gupta", Pediatrician, "MBBS, MD (Pediatrics)", 10, 0, weekdays()...),
		mk("Sandeep Singh", Orthopedic, "MBBS, MS (Orthopedics)", 18, 40,
			time.Monday, time.Tuesday, time.Thursday, time.Friday),
	}
}
