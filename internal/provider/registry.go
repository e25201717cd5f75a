package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"promptbatch/internal/config"
	"promptbatch/internal/executor"
)

// Registry resolves a task's provider and model against the models config and
// dispatches to a cached backend. It implements executor.ProviderClient.
type Registry struct {
	models          *config.ModelsConfig
	defaultProvider string
	defaultModel    string

	mu       sync.Mutex
	backends map[string]Backend
}

var _ executor.ProviderClient = (*Registry)(nil)

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithDefaults overrides the models config defaults. model only applies to
// tasks that also rely on the default provider.
func WithDefaults(provider, model string) RegistryOption {
	return func(r *Registry) {
		r.defaultProvider = strings.ToLower(strings.TrimSpace(provider))
		r.defaultModel = strings.TrimSpace(model)
	}
}

func NewRegistry(models *config.ModelsConfig, opts ...RegistryOption) *Registry {
	if models == nil {
		models = config.Models()
	}
	r := &Registry{models: models, backends: make(map[string]Backend)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Select returns the backend and config for a provider name.
func (r *Registry) Select(name string) (Backend, config.ProviderConfig, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = r.resolveDefaultProvider()
	}
	cfg, ok := r.models.Provider(key)
	if !ok {
		return nil, config.ProviderConfig{}, fmt.Errorf("unsupported provider %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.backends[key]; ok {
		return b, cfg, nil
	}
	b, err := backendFactoryFn(key, cfg)
	if err != nil {
		return nil, cfg, err
	}
	r.backends[key] = b
	return b, cfg, nil
}

// Execute resolves the request and performs one generation.
func (r *Registry) Execute(ctx context.Context, req executor.ProviderRequest) (*executor.ProviderResponse, error) {
	name := strings.ToLower(strings.TrimSpace(req.Provider))
	usingDefault := name == ""
	if usingDefault {
		name = r.resolveDefaultProvider()
	}

	backend, cfg, err := r.Select(name)
	if err != nil {
		return nil, err
	}

	model := strings.TrimSpace(req.Model)
	if model == "" && usingDefault {
		model = r.defaultModel
	}
	if model == "" {
		model = cfg.DefaultModel
	}
	if model == "" && name == r.models.DefaultProvider {
		model = r.models.DefaultModel
	}
	if model == "" {
		return nil, fmt.Errorf("no model configured for provider %q", name)
	}

	blocks, included := loadContextFiles(req.Workspace, req.ContextFiles)
	logDebug("provider request", "provider", name, "backend", backend.Name(), "model", model, "context_files", len(included))

	out, err := backend.Generate(ctx, GenerateRequest{
		Model:        model,
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   augmentPrompt(req.UserPrompt, blocks),
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%s returned no result", backend.Name())
	}

	return &executor.ProviderResponse{
		Response:      out.Text,
		Provider:      name,
		Model:         model,
		Usage:         out.Usage,
		Cost:          computeCost(cfg, out.Usage),
		FilesIncluded: included,
	}, nil
}

func (r *Registry) resolveDefaultProvider() string {
	if r.defaultProvider != "" {
		return r.defaultProvider
	}
	return r.models.DefaultProvider
}

// computeCost prices usage with the provider's per-1K token rates. It returns
// nil when either side is unknown.
func computeCost(cfg config.ProviderConfig, usage *executor.Usage) *float64 {
	if usage == nil || (cfg.InputCostPer1K == 0 && cfg.OutputCostPer1K == 0) {
		return nil
	}
	cost := float64(usage.PromptTokens)/1000*cfg.InputCostPer1K +
		float64(usage.CompletionTokens)/1000*cfg.OutputCostPer1K
	return &cost
}
