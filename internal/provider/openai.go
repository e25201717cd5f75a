package provider

import (
	"context"
	"fmt"
	"strings"

	"promptbatch/internal/config"
	"promptbatch/internal/executor"

	"github.com/sashabaranov/go-openai"
)

// OpenAIBackend serves OpenAI and any OpenAI-compatible endpoint (OpenRouter,
// local gateways) through the chat completions API.
type OpenAIBackend struct {
	name   string
	client *openai.Client
}

func NewOpenAIBackend(name string, cfg config.ProviderConfig) *OpenAIBackend {
	apiKey := cfg.ResolveAPIKey()
	if apiKey == "" {
		logWarn("no API key configured", "provider", name, "api_key_env", cfg.APIKeyEnv)
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	return &OpenAIBackend{name: name, client: openai.NewClientWithConfig(clientCfg)}
}

func (b *OpenAIBackend) Name() string { return b.name }

func (b *OpenAIBackend) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("%s chat completion failed: %w", b.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", b.name)
	}

	return &GenerateResult{
		Text:  resp.Choices[0].Message.Content,
		Usage: usageFromOpenAI(resp.Usage),
	}, nil
}

func usageFromOpenAI(u openai.Usage) *executor.Usage {
	if u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0 {
		return nil
	}
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	return &executor.Usage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens, TotalTokens: total}
}
