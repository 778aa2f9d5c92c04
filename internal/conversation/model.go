// Package conversation stores booking conversations and runs their turns
// one at a time.
package conversation

import (
	"errors"
	"time"

	"github.com/hackgods/conversational-appointment-booking/internal/llm"
	"github.com/hackgods/conversational-appointment-booking/internal/workflow"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationBusy     = errors.New("conversation is processing another message")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrMessageTooLong       = errors.New("message is too long")
)

const maxMessageLen = 2000

type Message struct {
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the durable record: the workflow context plus the
// transcript shown to clients.
type Conversation struct {
	ID        string               `json:"id"`
	Context   workflow.TurnContext `json:"context"`
	Messages  []Message            `json:"messages"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}
