// Package chat wires the chat model providers and holds the small
// helpers every LLM-touched step shares: prompt rendering and JSON
// recovery from model replies.
package chat

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Ethan225300/mbspro/vars"
)

// Generator is the narrow surface the pipeline needs from a chat model.
// The eino providers satisfy it; tests substitute recorded fixtures.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// CreateChatModel builds the configured chat model. The temperature is
// set on the openai provider at construction time; the ollama provider is
// built without it and runs at the server's default.
func CreateChatModel(ctx context.Context, provider, modelName string, temperature float32) (model.ToolCallingChatModel, error) {
	switch provider {
	case vars.ProviderOllama:
		if modelName == "" {
			modelName = vars.DefaultChatModelOllama
		}
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: vars.OllamaPath,
			Model:   modelName,
		})
	case vars.ProviderOpenAI:
		if modelName == "" {
			modelName = vars.DefaultChatModelOpenAI
		}
		if vars.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("chat provider openai requires OPENAI_API_KEY")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      vars.OpenAIAPIKey,
			BaseURL:     vars.OpenAIBaseURL,
			Model:       modelName,
			Temperature: &temperature,
		})
	}
	return nil, fmt.Errorf("unknown chat provider %q", provider)
}

// RenderPrompt executes a registered prompt template against data.
func RenderPrompt(tmpl string, data any) (string, error) {
	t, err := template.New("p").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SliceJSONObject cuts the span from the first '{' to the last '}' out of
// a model reply, shedding markdown fences and any prose around it.
func SliceJSONObject(raw string) string {
	raw = trimFences(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end != -1 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// SliceJSONArray cuts the span from the first '[' to the last ']' out of
// a model reply.
func SliceJSONArray(raw string) string {
	raw = trimFences(raw)
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start != -1 && end != -1 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func trimFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
