package llm

import (
	"errors"
	"strings"
	"time"
)

// Config is decoded from LLM_* environment variables.
type Config struct {
	BaseURL               string        `envconfig:"BASE_URL"`
	APIKey                string        `envconfig:"API_KEY"`
	Model                 string        `envconfig:"MODEL" default:"gpt-4o-mini"`
	Temperature           float64       `envconfig:"TEMPERATURE" default:"0.7"`
	MaxTokens             int64         `envconfig:"MAX_TOKENS" default:"1024"`
	ExtractionTemperature float64       `envconfig:"EXTRACTION_TEMPERATURE" default:"0.3"`
	ExtractionMaxTokens   int64         `envconfig:"EXTRACTION_MAX_TOKENS" default:"512"`
	Timeout               time.Duration `envconfig:"TIMEOUT" default:"30s"`
	MaxRetries            int           `envconfig:"MAX_RETRIES" default:"2"`
}

var ErrMissingAPIKey = errors.New("llm: api key is required")

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("llm: model is required")
	}
	return nil
}
