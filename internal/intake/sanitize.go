package intake

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
)

const (
	maxNameLen   = 100
	maxReasonLen = 500
	maxEmailLen  = 254
	minPhoneLen  = 7
	maxPhoneLen  = 15
)

// sanitize turns a decoded extraction object into PatientInfo. Anything of
// the wrong type or shape is dropped rather than trusted.
func sanitize(raw map[string]any) PatientInfo {
	return PatientInfo{
		Name:             text(raw["patient_name"], maxNameLen),
		Phone:            phone(raw["patient_phone"]),
		Email:            email(raw["patient_email"]),
		Reason:           text(raw["reason"], maxReasonLen),
		DoctorPreference: text(raw["doctor_preference"], maxNameLen),
		PreferredDate:    date(raw["preferred_date"]),
		PreferredTime:    timeOfDay(raw["preferred_time"]),
	}
}

func text(v any, limit int) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	if !present(s) || utf8.RuneCountInString(s) > limit {
		return ""
	}
	return s
}

// phone keeps digits only, with a leading + if the model supplied one.
// Numbers are accepted because models sometimes emit the phone unquoted.
func phone(v any) string {
	var s string
	switch p := v.(type) {
	case string:
		s = p
	case float64:
		if p <= 0 || p != float64(int64(p)) {
			return ""
		}
		s = strconv.FormatInt(int64(p), 10)
	default:
		return ""
	}

	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return ""
		}
	}
	out := b.String()
	digits := len(strings.TrimPrefix(out, "+"))
	if digits < minPhoneLen || digits > maxPhoneLen {
		return ""
	}
	return out
}

func email(v any) string {
	s := text(v, maxEmailLen)
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 || strings.ContainsAny(s, " ,;") {
		return ""
	}
	return s
}

func date(v any) string {
	s := text(v, len(appointment.DateLayout))
	if s == "" {
		return ""
	}
	if _, err := time.Parse(appointment.DateLayout, s); err != nil {
		return ""
	}
	return s
}

func timeOfDay(v any) string {
	s := text(v, 20)
	tod, ok := appointment.ParseTimeOfDay(s)
	if !ok {
		return ""
	}
	return string(tod)
}
