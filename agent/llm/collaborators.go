package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"

	contractx "github.com/pitchside/pitchside-agent/agent/contract"
)

const extractionSystemPrompt = "You return structured data as a single JSON object. " +
	"No prose, no markdown fences, no explanations."

// ModelExtractor implements contract.Extractor on an eino chat model.
// It is used wherever the pipeline needs structured JSON back from a
// model: intent interpretation and parameter inference.
type ModelExtractor struct {
	chatModel einomodel.BaseChatModel
}

var _ contractx.Extractor = (*ModelExtractor)(nil)

func NewModelExtractor(chatModel einomodel.BaseChatModel) (*ModelExtractor, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is nil")
	}
	return &ModelExtractor{chatModel: chatModel}, nil
}

func (e *ModelExtractor) Extract(ctx context.Context, prompt string) (json.RawMessage, error) {
	messages := []*schema.Message{
		schema.SystemMessage(extractionSystemPrompt),
		schema.UserMessage(prompt),
	}

	reply, err := e.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if reply == nil || strings.TrimSpace(reply.Content) == "" {
		return nil, fmt.Errorf("%w: empty completion", contractx.ErrModelInvoke)
	}

	payload := extractJSONBlock(reply.Content)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object in completion", contractx.ErrSchemaViolation)
	}
	return json.RawMessage(payload), nil
}

// extractJSONBlock tolerates models that wrap JSON in markdown fences
// or pad it with prose: it returns the outermost {...} slice, or ""
// when there is none.
func extractJSONBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if fenced, ok := strings.CutPrefix(trimmed, "```json"); ok {
		trimmed = fenced
	} else if fenced, ok := strings.CutPrefix(trimmed, "```"); ok {
		trimmed = fenced
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

// SDKGenerator implements contract.Generator on the OpenAI SDK client
// directly. Free-form response text does not need the eino wrapper.
type SDKGenerator struct {
	client      *openaisdk.Client
	model       string
	temperature float32
}

var _ contractx.Generator = (*SDKGenerator)(nil)

func NewSDKGenerator(client *openaisdk.Client, model string, temperature float32) (*SDKGenerator, error) {
	if client == nil {
		return nil, errors.New("sdk client is nil")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("model name is required")
	}
	return &SDKGenerator{client: client, model: model, temperature: temperature}, nil
}

func (g *SDKGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(g.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
		Temperature: openaisdk.Float(float64(g.temperature)),
	}
	if maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(maxTokens))
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", contractx.ErrModelInvoke)
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", contractx.ErrModelInvoke)
	}
	return content, nil
}
