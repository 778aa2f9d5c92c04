// Package intake gathers patient details from free-text conversation.
package intake

import "strings"

// PatientInfo is what the clinic knows about the patient so far. Name,
// Phone and Reason are required before slots can be searched.
type PatientInfo struct {
	Name             string `json:"patient_name,omitempty"`
	Phone            string `json:"patient_phone,omitempty"`
	Email            string `json:"patient_email,omitempty"`
	Reason           string `json:"reason,omitempty"`
	DoctorPreference string `json:"doctor_preference,omitempty"`
	PreferredDate    string `json:"preferred_date,omitempty"` // 2006-01-02
	PreferredTime    string `json:"preferred_time,omitempty"` // morning, afternoon or evening
}

// Merge returns existing with every non-empty field of update applied.
// Empty values and the "null" sentinel never erase what is already known.
func Merge(existing, update PatientInfo) PatientInfo {
	out := existing
	set := func(dst *string, v string) {
		if present(v) {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&out.Name, update.Name)
	set(&out.Phone, update.Phone)
	set(&out.Email, update.Email)
	set(&out.Reason, update.Reason)
	set(&out.DoctorPreference, update.DoctorPreference)
	set(&out.PreferredDate, update.PreferredDate)
	set(&out.PreferredTime, update.PreferredTime)
	return out
}

func HasRequiredInfo(info PatientInfo) bool {
	return present(info.Name) && present(info.Phone) && present(info.Reason)
}

// Missing lists the required fields still unknown, in asking order.
func Missing(info PatientInfo) []string {
	var out []string
	if !present(info.Name) {
		out = append(out, "name")
	}
	if !present(info.Phone) {
		out = append(out, "phone")
	}
	if !present(info.Reason) {
		out = append(out, "reason")
	}
	return out
}

// Fields flattens the known details for prompt context.
func (p PatientInfo) Fields() map[string]string {
	return map[string]string{
		"patient_name":      p.Name,
		"patient_phone":     p.Phone,
		"patient_email":     p.Email,
		"reason":            p.Reason,
		"doctor_preference": p.DoctorPreference,
		"preferred_date":    p.PreferredDate,
		"preferred_time":    p.PreferredTime,
	}
}

func present(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "null")
}
