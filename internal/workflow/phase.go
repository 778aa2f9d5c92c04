package workflow

import (
	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
	"github.com/hackgods/conversational-appointment-booking/internal/dialogue"
	"github.com/hackgods/conversational-appointment-booking/internal/intake"
	"github.com/hackgods/conversational-appointment-booking/internal/llm"
)

// Phase is the conversation's step in the booking flow.
type Phase string

const (
	PhaseStart             Phase = "START"
	PhaseGatheringInfo     Phase = "GATHERING_INFO"
	PhaseFindingSlots      Phase = "FINDING_SLOTS"
	PhasePresentingSlots   Phase = "PRESENTING_SLOTS"
	PhaseAwaitingSelection Phase = "AWAITING_SELECTION"
	PhaseConfirming        Phase = "CONFIRMING"
	PhaseCompleted         Phase = "COMPLETED"
	PhaseError             Phase = "ERROR"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseStart, PhaseGatheringInfo, PhaseFindingSlots, PhasePresentingSlots,
		PhaseAwaitingSelection, PhaseConfirming, PhaseCompleted, PhaseError:
		return true
	default:
		return false
	}
}

// TurnContext is the whole durable state of a conversation plus the
// current turn's input and output. Callers persist it as one document.
type TurnContext struct {
	ConversationID       string                      `json:"conversation_id,omitempty"`
	UserMessage          string                      `json:"user_message"`
	History              []llm.Message               `json:"history,omitempty"`
	PatientInfo          intake.PatientInfo          `json:"patient_info"`
	AvailableSlots       []appointment.SlotCandidate `json:"available_slots,omitempty"`
	SelectedSlot         *appointment.SlotCandidate  `json:"selected_slot,omitempty"`
	Phase                Phase                       `json:"phase"`
	CurrentRole          dialogue.Role               `json:"current_role"`
	HasRequiredInfo      bool                        `json:"has_required_info"`
	AwaitingConfirmation bool                        `json:"awaiting_confirmation"`
	SelectionAttempts    int                         `json:"selection_attempts"`
	AppointmentID        string                      `json:"appointment_id,omitempty"`
	Error                string                      `json:"error,omitempty"`
	Response             string                      `json:"response"`
	// Path lists the phases entered during the latest turn, in order.
	Path []Phase `json:"path,omitempty"`
}

// NewTurnContext is the state of a conversation nobody has spoken in yet.
func NewTurnContext(conversationID string) TurnContext {
	return TurnContext{
		ConversationID: conversationID,
		Phase:          PhaseStart,
		CurrentRole:    dialogue.RoleIntake,
	}
}

// clone copies the slices so a turn never writes through to the caller's
// durable context.
func (tc TurnContext) clone() TurnContext {
	out := tc
	out.History = append([]llm.Message(nil), tc.History...)
	out.AvailableSlots = append([]appointment.SlotCandidate(nil), tc.AvailableSlots...)
	if tc.SelectedSlot != nil {
		s := *tc.SelectedSlot
		out.SelectedSlot = &s
	}
	return out
}

func (tc *TurnContext) enter(p Phase) {
	tc.Phase = p
	tc.Path = append(tc.Path, p)
}

// reset drops everything but the conversation id and the message being
// handled.
func (tc TurnContext) reset() TurnContext {
	out := NewTurnContext(tc.ConversationID)
	out.UserMessage = tc.UserMessage
	return out
}
