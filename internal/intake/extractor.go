package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hackgods/conversational-appointment-booking/internal/llm"
)

const extractionPrompt = `Extract the following information from the conversation:
- patient_name: Full name of the patient
- patient_phone: Phone number (10 digits)
- reason: Reason for visit
- doctor_preference: Any doctor name mentioned (or null)
- preferred_date: Any date mentioned, as YYYY-MM-DD (or null)
- preferred_time: Time preference like "morning", "afternoon", "evening" (or null)

Conversation:
%s

Latest message: %s

Return ONLY a valid JSON object with these fields. Use null for missing information.
Example: {"patient_name": "John Doe", "patient_phone": "9876543210", "reason": "Cough", "doctor_preference": null, "preferred_date": null, "preferred_time": null}`

var errNoJSONObject = errors.New("no json object in response")

// Extractor pulls patient details out of the conversation with the model.
type Extractor struct {
	client      llm.Client
	temperature float64
	maxTokens   int64
	logger      zerolog.Logger
}

func NewExtractor(client llm.Client, temperature float64, maxTokens int64, logger zerolog.Logger) *Extractor {
	if temperature <= 0 {
		temperature = 0.3
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Extractor{client: client, temperature: temperature, maxTokens: maxTokens, logger: logger}
}

// Extract never fails: oracle errors and unparsable output both yield an
// empty PatientInfo, which merges as a no-op.
func (e *Extractor) Extract(ctx context.Context, history []llm.Message, latest string) PatientInfo {
	prompt := fmt.Sprintf(extractionPrompt, formatHistory(history), latest)

	out, err := e.client.Generate(ctx, llm.Request{
		Messages:    []llm.Message{llm.User(prompt)},
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		Purpose:     "extract",
	})
	if err != nil {
		e.logger.Warn().Err(err).Msg("extraction call failed")
		return PatientInfo{}
	}

	raw, err := parseObject(out)
	if err != nil {
		e.logger.Warn().Err(err).Str("output", truncate(out, 200)).Msg("extraction output unparsable")
		return PatientInfo{}
	}

	info := sanitize(raw)
	e.logger.Debug().Interface("extracted", info).Msg("extracted patient details")
	return info
}

func formatHistory(history []llm.Message) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		speaker := "Receptionist"
		if m.Role == llm.RoleUser {
			speaker = "Patient"
		}
		lines = append(lines, speaker+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// parseObject accepts a bare object, a fenced block, or an object buried
// in prose.
func parseObject(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, errNoJSONObject
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode extraction: %w", err)
	}
	return raw, nil
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
