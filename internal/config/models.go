package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ilogger "promptbatch/internal/logger"

	"github.com/goccy/go-json"
)

// Provider kinds understood by the provider registry.
const (
	KindOpenAI = "openai"
	KindOllama = "ollama"
)

type ProviderConfig struct {
	Kind            string  `json:"kind"`
	BaseURL         string  `json:"base_url,omitempty"`
	APIKey          string  `json:"api_key,omitempty"`
	APIKeyEnv       string  `json:"api_key_env,omitempty"`
	DefaultModel    string  `json:"default_model,omitempty"`
	InputCostPer1K  float64 `json:"input_cost_per_1k,omitempty"`
	OutputCostPer1K float64 `json:"output_cost_per_1k,omitempty"`
}

type ModelsConfig struct {
	DefaultProvider string                    `json:"default_provider"`
	DefaultModel    string                    `json:"default_model"`
	Providers       map[string]ProviderConfig `json:"providers"`
}

var defaultModelsConfig = ModelsConfig{
	DefaultProvider: "openai",
	DefaultModel:    "gpt-4o-mini",
	Providers: map[string]ProviderConfig{
		"openai":     {Kind: KindOpenAI, BaseURL: "https://api.openai.com/v1", APIKeyEnv: "OPENAI_API_KEY", DefaultModel: "gpt-4o-mini", InputCostPer1K: 0.00015, OutputCostPer1K: 0.0006},
		"openrouter": {Kind: KindOpenAI, BaseURL: "https://openrouter.ai/api/v1", APIKeyEnv: "OPENROUTER_API_KEY", DefaultModel: "openai/gpt-4o-mini"},
		"ollama":     {Kind: KindOllama, BaseURL: "http://localhost:11434", DefaultModel: "llama3.2"},
	},
}

var (
	modelsConfigOnce   sync.Once
	modelsConfigCached *ModelsConfig
)

// Models returns the merged models config, loading ~/.promptbatch/models.json
// once per process.
func Models() *ModelsConfig {
	modelsConfigOnce.Do(func() {
		modelsConfigCached = loadModelsConfig()
	})
	if modelsConfigCached == nil {
		return &defaultModelsConfig
	}
	return modelsConfigCached
}

func loadModelsConfig() *ModelsConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		ilogger.LogWarn(fmt.Sprintf("Failed to resolve home directory for models config: %v; using defaults", err))
		return &defaultModelsConfig
	}

	configPath := filepath.Clean(filepath.Join(home, ".promptbatch", "models.json"))
	data, err := os.ReadFile(configPath) // #nosec G304 -- fixed path under user home
	if err != nil {
		if !os.IsNotExist(err) {
			ilogger.LogWarn(fmt.Sprintf("Failed to read models config %s: %v; using defaults", configPath, err))
		}
		return &defaultModelsConfig
	}

	cfg, err := ParseModelsConfig(data)
	if err != nil {
		ilogger.LogWarn(fmt.Sprintf("Failed to parse models config %s: %v; using defaults", configPath, err))
		return &defaultModelsConfig
	}
	return cfg
}

// ParseModelsConfig decodes a models.json document and merges it over the
// built-in defaults. Provider keys are case-insensitive.
func ParseModelsConfig(data []byte) (*ModelsConfig, error) {
	var cfg ModelsConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.DefaultProvider = strings.ToLower(strings.TrimSpace(cfg.DefaultProvider))
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = defaultModelsConfig.DefaultProvider
	}
	cfg.DefaultModel = strings.TrimSpace(cfg.DefaultModel)
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaultModelsConfig.DefaultModel
	}

	merged := make(map[string]ProviderConfig, len(defaultModelsConfig.Providers)+len(cfg.Providers))
	for name, p := range defaultModelsConfig.Providers {
		merged[name] = p
	}
	for name, p := range cfg.Providers {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
		if p.Kind == "" {
			p.Kind = KindOpenAI
		}
		merged[key] = p
	}
	cfg.Providers = merged

	return &cfg, nil
}

// Provider looks up a provider by case-insensitive name.
func (c *ModelsConfig) Provider(name string) (ProviderConfig, bool) {
	if c == nil {
		return ProviderConfig{}, false
	}
	p, ok := c.Providers[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// ResolveAPIKey prefers an inline key and falls back to the named env var.
func (p ProviderConfig) ResolveAPIKey() string {
	if key := strings.TrimSpace(p.APIKey); key != "" {
		return key
	}
	if env := strings.TrimSpace(p.APIKeyEnv); env != "" {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

func ResetModelsConfigCacheForTest() {
	modelsConfigCached = nil
	modelsConfigOnce = sync.Once{}
}
