package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/conversational-appointment-booking/internal/llm"
	"github.com/hackgods/conversational-appointment-booking/internal/llm/llmtest"
)

func TestRespondBuildsPersonaAndContext(t *testing.T) {
	fake := llmtest.New().On(string(RoleScheduling), llmtest.Reply{Text: "  Here are some times.  "})
	g := NewGenerator(fake, "BookaDoc", 0.7, 1024, zerolog.Nop())

	out := g.Respond(context.Background(), RoleScheduling, "what's open?", map[string]string{
		"reason":       "fever",
		"patient_name": "Ravi",
		"doctor":       "",
	})
	assert.Equal(t, "Here are some times.", out)

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	msgs := reqs[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "appointment scheduler at BookaDoc")
	assert.Equal(t, "Context:\n- patient_name: Ravi\n- reason: fever", msgs[1].Content)
	assert.Equal(t, llm.User("what's open?"), msgs[2])
	assert.Equal(t, 0.7, reqs[0].Temperature)
	assert.Equal(t, int64(1024), reqs[0].MaxTokens)
}

func TestRespondOmitsEmptyContext(t *testing.T) {
	fake := llmtest.New()
	fake.Default = llmtest.Reply{Text: "ok"}
	NewGenerator(fake, "", 0, 0, zerolog.Nop()).Respond(context.Background(), RoleIntake, "hi", nil)

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Messages, 2)
}

func TestRespondFallsBackToApology(t *testing.T) {
	for name, reply := range map[string]llmtest.Reply{
		"error": {Err: errors.New("rate limited")},
		"blank": {Text: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			fake := llmtest.New().On(string(RoleIntake), reply)
			out := NewGenerator(fake, "", 0, 0, zerolog.Nop()).Respond(context.Background(), RoleIntake, "hi", nil)
			assert.Equal(t, Apology, out)
		})
	}
}

func TestGreeting(t *testing.T) {
	tests := []struct {
		name  string
		reply llmtest.Reply
		want  string
	}{
		{"model greeting", llmtest.Reply{Text: "Welcome to BookaDoc! How can I help?"}, "Welcome to BookaDoc! How can I help?"},
		{"too short", llmtest.Reply{Text: "Hi!"}, FallbackGreeting("BookaDoc")},
		{"failure", llmtest.Reply{Err: errors.New("down")}, FallbackGreeting("BookaDoc")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := llmtest.New().On(string(RoleIntake), tt.reply)
			g := NewGenerator(fake, "BookaDoc", 0, 0, zerolog.Nop())
			assert.Equal(t, tt.want, g.Greeting(context.Background()))
		})
	}
}

func TestFallbackGreeting(t *testing.T) {
	assert.Equal(t,
		"Hello! Welcome to BookaDoc. I'm here to help you schedule an appointment. To get started, may I have your full name, please?",
		FallbackGreeting("BookaDoc"))
}
