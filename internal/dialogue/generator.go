// Package dialogue voices the booking conversation: model-written replies
// for the three personas and fixed formatting for slots and bookings.
package dialogue

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/hackgods/conversational-appointment-booking/internal/llm"
)

const (
	Apology         = "I apologize, but I encountered an error. Please try again."
	fallbackGreet   = "Hello! Welcome to %s. I'm here to help you schedule an appointment. To get started, may I have your full name, please?"
	minGreetingRune = 10
)

type Generator struct {
	client      llm.Client
	clinic      string
	temperature float64
	maxTokens   int64
	logger      zerolog.Logger
}

func NewGenerator(client llm.Client, clinic string, temperature float64, maxTokens int64, logger zerolog.Logger) *Generator {
	if clinic == "" {
		clinic = "BookaDoc"
	}
	return &Generator{
		client:      client,
		clinic:      clinic,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// Respond asks the model to reply as role. It never fails: any oracle error
// or blank output becomes Apology.
func (g *Generator) Respond(ctx context.Context, role Role, userMessage string, fields map[string]string) string {
	msgs := []llm.Message{llm.System(role.persona(g.clinic))}
	if c := formatContext(fields); c != "" {
		msgs = append(msgs, llm.System("Context:\n"+c))
	}
	msgs = append(msgs, llm.User(userMessage))

	out, err := g.client.Generate(ctx, llm.Request{
		Messages:    msgs,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Purpose:     string(role),
	})
	if err != nil {
		g.logger.Warn().Err(err).Str("role", string(role)).Msg("reply generation failed")
		return Apology
	}
	if out = strings.TrimSpace(out); out == "" {
		return Apology
	}
	return out
}

// Greeting opens a conversation, falling back to a fixed line when the
// model output is missing or too short to be a greeting.
func (g *Generator) Greeting(ctx context.Context) string {
	out := g.Respond(ctx, RoleIntake, "", map[string]string{"is_initial": "true"})
	if out == Apology || utf8.RuneCountInString(out) < minGreetingRune {
		return FallbackGreeting(g.clinic)
	}
	return out
}

func FallbackGreeting(clinic string) string {
	return fmt.Sprintf(fallbackGreet, clinic)
}

// formatContext renders "- key: value" lines in key order, skipping
// empty values.
func formatContext(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, "- "+k+": "+fields[k])
	}
	return strings.Join(lines, "\n")
}
