package api

import (
	"time"

	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
	"github.com/hackgods/conversational-appointment-booking/internal/conversation"
	"github.com/hackgods/conversational-appointment-booking/internal/workflow"
)

type CreateAppointmentRequest struct {
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
	PatientEmail string `json:"patient_email,omitempty"`
	DoctorID     string `json:"doctor_id"`
	Date         string `json:"date"`       // 2006-01-02
	StartTime    string `json:"start_time"` // 15:04
	Reason       string `json:"reason"`
	Notes        string `json:"notes,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AppointmentListResponse struct {
	Appointments []appointment.Appointment `json:"appointments"`
	Count        int                       `json:"count"`
}

type SlotsResponse struct {
	Slots []appointment.SlotCandidate `json:"slots"`
	Count int                         `json:"count"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

// ConversationResponse is what clients see of a conversation: the transcript
// and a few fields of the workflow context, never the whole context.
type ConversationResponse struct {
	ID             string                      `json:"conversation_id"`
	Phase          workflow.Phase              `json:"phase"`
	Response       string                      `json:"response"`
	Messages       []conversation.Message      `json:"messages"`
	AvailableSlots []appointment.SlotCandidate `json:"available_slots,omitempty"`
	AppointmentID  string                      `json:"appointment_id,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

func toConversationResponse(c *conversation.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:            c.ID,
		Phase:         c.Context.Phase,
		Response:      c.Context.Response,
		Messages:      c.Messages,
		AppointmentID: c.Context.AppointmentID,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	switch c.Context.Phase {
	case workflow.PhaseAwaitingSelection, workflow.PhasePresentingSlots:
		resp.AvailableSlots = c.Context.AvailableSlots
	}
	return resp
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
