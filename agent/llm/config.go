package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
	openrouterx "github.com/pitchside/pitchside-agent/pkg/openrouter"
)

// Role selects which pipeline stage a model serves. Extraction wants a
// cheap, fast model held at low temperature; generation can afford a
// stronger model with some freedom.
type Role string

const (
	RoleExtraction Role = "extraction"
	RoleGeneration Role = "generation"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ExtractionModel       string  `envconfig:"EXTRACTION_MODEL" split_words:"true"`
	GenerationModel       string  `envconfig:"GENERATION_MODEL" split_words:"true"`
	ExtractionTemperature float32 `envconfig:"EXTRACTION_TEMPERATURE" split_words:"true" default:"0"`
	GenerationTemperature float32 `envconfig:"GENERATION_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the role-specific model and temperature, with
// the defaults as fallback.
func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case RoleExtraction:
		if v := strings.TrimSpace(c.ExtractionModel); v != "" {
			modelName = v
		}
		if c.ExtractionTemperature >= 0 {
			temp = c.ExtractionTemperature
		}
	case RoleGeneration:
		if v := strings.TrimSpace(c.GenerationModel); v != "" {
			modelName = v
		}
		if c.GenerationTemperature >= 0 {
			temp = c.GenerationTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// ModelFor returns the resolved model name for a role, for the direct
// SDK path that bypasses the eino wrapper.
func (c Config) ModelFor(role Role) string {
	return c.OpenRouterFor(role).Model
}

// TemperatureFor returns the resolved sampling temperature for a role.
func (c Config) TemperatureFor(role Role) float32 {
	return c.OpenRouterFor(role).Temperature
}
