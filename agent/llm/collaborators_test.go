package llm

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

type fakeChatModel struct {
	content  string
	err      error
	messages []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, messages []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.content, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func TestModelExtractorReturnsRawJSON(t *testing.T) {
	t.Parallel()

	chat := &fakeChatModel{content: `{"category":"stats","confidence":0.9}`}
	extractor, err := NewModelExtractor(chat)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}

	raw, err := extractor.Extract(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if string(raw) != `{"category":"stats","confidence":0.9}` {
		t.Fatalf("raw = %s", raw)
	}
	if len(chat.messages) != 2 || chat.messages[0].Role != schema.System {
		t.Fatalf("expected system+user messages, got %d", len(chat.messages))
	}
}

func TestModelExtractorStripsFences(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{"json fence", "```json\n{\"a\":1}\n```"},
		{"bare fence", "```\n{\"a\":1}\n```"},
		{"surrounding prose", "Here you go:\n{\"a\":1}\nHope that helps."},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			extractor, _ := NewModelExtractor(&fakeChatModel{content: tc.content})
			raw, err := extractor.Extract(context.Background(), "p")
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if string(raw) != `{"a":1}` {
				t.Fatalf("raw = %s", raw)
			}
		})
	}
}

func TestModelExtractorErrors(t *testing.T) {
	t.Parallel()

	failing, _ := NewModelExtractor(&fakeChatModel{err: errors.New("upstream 502")})
	if _, err := failing.Extract(context.Background(), "p"); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("err = %v, want ErrModelInvoke", err)
	}

	prose, _ := NewModelExtractor(&fakeChatModel{content: "I cannot answer that."})
	if _, err := prose.Extract(context.Background(), "p"); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("err = %v, want ErrSchemaViolation", err)
	}
}

func TestConfigRoleResolution(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:                "k",
		Model:                 "default/model",
		Temperature:           0.5,
		ExtractionModel:       "cheap/model",
		ExtractionTemperature: 0,
		GenerationTemperature: -1,
	}

	extraction := cfg.OpenRouterFor(RoleExtraction)
	if extraction.Model != "cheap/model" {
		t.Fatalf("extraction model = %q", extraction.Model)
	}
	if extraction.Temperature != 0 {
		t.Fatalf("extraction temperature = %v, want 0", extraction.Temperature)
	}

	generation := cfg.OpenRouterFor(RoleGeneration)
	if generation.Model != "default/model" {
		t.Fatalf("generation model = %q", generation.Model)
	}
	if generation.Temperature != 0.5 {
		t.Fatalf("generation temperature = %v, want default 0.5", generation.Temperature)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := (Config{APIKey: "k", Model: "m"}).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := (Config{Model: "m"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("missing api key: err = %v", err)
	}
	if err := (Config{APIKey: "k"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("missing model: err = %v", err)
	}
}
