package dialogue

import (
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
	"github.com/hackgods/conversational-appointment-booking/internal/intake"
)

const (
	listDateLayout = "Monday, January 2"
	fullDateLayout = "Monday, January 2, 2006"
	clockLayout    = "03:04 PM"
)

// SlotList renders the numbered menu of slots. Numbers are 1-based and
// match what the patient replies with.
func SlotList(slots []appointment.SlotCandidate) string {
	if len(slots) == 0 {
		return "I apologize, but I couldn't find any available slots at the moment. Would you like to try different dates or times?"
	}

	var b strings.Builder
	b.WriteString("I found the following available appointments:\n\n")
	for i, s := range slots {
		fmt.Fprintf(&b, "%d. **%s** (%s)\n", i+1, s.DoctorName, s.Specialization)
		fmt.Fprintf(&b, "   📅 %s\n\n", slotWhen(s, listDateLayout))
	}
	b.WriteString("Which appointment would you like to book? You can reply with the number (1, 2, 3, etc.)")
	return b.String()
}

func ConfirmationSummary(info intake.PatientInfo, slot appointment.SlotCandidate) string {
	var b strings.Builder
	b.WriteString("Let me confirm your appointment details:\n\n")
	fmt.Fprintf(&b, "👤 **Patient:** %s\n", info.Name)
	fmt.Fprintf(&b, "📞 **Phone:** %s\n", info.Phone)
	fmt.Fprintf(&b, "👨‍⚕️ **Doctor:** %s (%s)\n", slot.DoctorName, slot.Specialization)
	fmt.Fprintf(&b, "📅 **Date & Time:** %s\n", slotWhen(slot, fullDateLayout))
	fmt.Fprintf(&b, "📝 **Reason:** %s\n\n", info.Reason)
	b.WriteString("Is this correct? Please reply '**confirm**' to finalize your appointment, or let me know if you'd like to make any changes.")
	return b.String()
}

func SuccessSummary(a appointment.Appointment) string {
	var b strings.Builder
	b.WriteString("✅ **Your appointment is confirmed!**\n\n")
	fmt.Fprintf(&b, "🆔 **Appointment ID:** %s\n", a.ID)
	fmt.Fprintf(&b, "👤 **Patient:** %s\n", a.PatientName)
	fmt.Fprintf(&b, "👨‍⚕️ **Doctor:** %s\n", a.DoctorName)
	fmt.Fprintf(&b, "📅 **Date:** %s\n", a.ScheduledAt.Format(fullDateLayout))
	fmt.Fprintf(&b, "⏰ **Time:** %s\n", a.ScheduledAt.Format(clockLayout))
	fmt.Fprintf(&b, "📝 **Reason:** %s\n\n", a.Reason)
	b.WriteString("**Important reminders:**\n")
	b.WriteString("- Please arrive 10-15 minutes early\n")
	b.WriteString("- Bring a valid ID and insurance card (if applicable)\n")
	b.WriteString("- If you need to reschedule, please call us at least 24 hours in advance\n\n")
	b.WriteString("We look forward to seeing you! Is there anything else I can help you with?")
	return b.String()
}

// slotWhen formats a slot as "<date> at <time>". Slots come from the
// resolver so their fields always parse; the raw text is a last resort.
func slotWhen(s appointment.SlotCandidate, dateLayout string) string {
	t, err := s.Start(time.UTC)
	if err != nil {
		return s.Date + " at " + s.StartTime
	}
	return t.Format(dateLayout) + " at " + t.Format(clockLayout)
}
