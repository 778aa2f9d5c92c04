// Package llm is the language-model oracle used for reply generation and
// patient-detail extraction.
package llm

import (
	"context"
	"errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is one completion call. Zero Temperature or MaxTokens means the
// client default.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int64
	// Purpose labels the call in metrics and logs, e.g. "intake" or "extract".
	Purpose string
}

// Client returns free text for a message sequence. It makes no promise
// about structure; callers parse leniently.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

var ErrEmptyResponse = errors.New("llm: empty response")

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }
