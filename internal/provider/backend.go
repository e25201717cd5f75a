package provider

import (
	"context"
	"fmt"
	"strings"

	"promptbatch/internal/config"
	"promptbatch/internal/executor"
)

// GenerateRequest is one fully-resolved generation call.
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
}

// GenerateResult is a backend's answer. Usage is nil when the backend did not
// report token counts.
type GenerateResult struct {
	Text  string
	Usage *executor.Usage
}

// Backend talks to one configured provider.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// BackendFactory builds the backend for a named provider config.
type BackendFactory func(name string, cfg config.ProviderConfig) (Backend, error)

var backendFactoryFn BackendFactory = newBackend

// SetBackendFactoryFn swaps the backend constructor, typically for tests.
func SetBackendFactoryFn(fn BackendFactory) (restore func()) {
	prev := backendFactoryFn
	if fn == nil {
		fn = newBackend
	}
	backendFactoryFn = fn
	return func() { backendFactoryFn = prev }
}

func newBackend(name string, cfg config.ProviderConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case config.KindOpenAI, "":
		return NewOpenAIBackend(name, cfg), nil
	case config.KindOllama:
		return NewOllamaBackend(name, cfg), nil
	default:
		return nil, fmt.Errorf("provider %q has unsupported kind %q", name, cfg.Kind)
	}
}
