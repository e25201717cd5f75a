package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"promptbatch/internal/config"
	"promptbatch/internal/executor"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaBackend runs prompts against a local Ollama server. One langchaingo
// client is kept per model.
type OllamaBackend struct {
	name      string
	serverURL string

	mu      sync.Mutex
	clients map[string]*ollama.LLM
}

func NewOllamaBackend(name string, cfg config.ProviderConfig) *OllamaBackend {
	serverURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if serverURL == "" {
		serverURL = defaultOllamaURL
	}
	return &OllamaBackend{name: name, serverURL: serverURL, clients: make(map[string]*ollama.LLM)}
}

func (b *OllamaBackend) Name() string { return b.name }

func (b *OllamaBackend) client(model string) (*ollama.LLM, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if llm, ok := b.clients[model]; ok {
		return llm, nil
	}
	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(b.serverURL))
	if err != nil {
		return nil, fmt.Errorf("%s client: %w", b.name, err)
	}
	b.clients[model] = llm
	return llm, nil
}

func (b *OllamaBackend) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	llm, err := b.client(req.Model)
	if err != nil {
		return nil, err
	}

	messages := make([]llms.MessageContent, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.UserPrompt))

	resp, err := llm.GenerateContent(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%s generation failed: %w", b.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, fmt.Errorf("%s returned no choices", b.name)
	}

	choice := resp.Choices[0]
	return &GenerateResult{Text: choice.Content, Usage: usageFromGenerationInfo(choice.GenerationInfo)}, nil
}

func usageFromGenerationInfo(info map[string]any) *executor.Usage {
	prompt, okPrompt := intFromAny(info["PromptTokens"])
	completion, okCompletion := intFromAny(info["CompletionTokens"])
	if !okPrompt && !okCompletion {
		return nil
	}
	total, ok := intFromAny(info["TotalTokens"])
	if !ok {
		total = prompt + completion
	}
	return &executor.Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}

func intFromAny(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
