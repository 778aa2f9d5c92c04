package workflow

import "fmt"

const (
	msgNoSlots          = "I'm sorry, I couldn't find any available slots. Would you like to try different preferences?"
	msgSlotSearchFailed = "I encountered an error while searching for appointments. Let me try again."
	msgReshowSlots      = "I'm having trouble understanding your selection. Let me show you the available slots again."
	msgEnterSlotNumber  = "Please enter the number of the slot you'd like to book."
	msgPickDifferent    = "No problem! Would you like to select a different time slot?"
	msgConfirmReprompt  = "I didn't catch that. Please reply 'yes' to confirm or 'no' to choose a different time."
	msgAlreadyBooked    = "Your appointment has been confirmed! Is there anything else I can help you with?"
	msgBookingFailed    = "I'm sorry, there was an error creating your appointment. Please try again or contact support."
	msgSlotPassed       = "I'm sorry, that time has already passed. Here are the next available slots."
	msgResetApology     = "I apologize, but I encountered an error. Let's start over. What can I help you with today?"
)

func msgSlotOutOfRange(n int) string {
	return fmt.Sprintf("Please select a number between 1 and %d.", n)
}
