package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"promptbatch/internal/config"
	"promptbatch/internal/executor"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, reply string) (*httptest.Server, *[]chatRequest) {
	t.Helper()
	var mu sync.Mutex
	var seen []chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req chatRequest
		_ = json.Unmarshal(body, &req)
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"cmpl-1","object":"chat.completion","model":"`+req.Model+`",
			"choices":[{"index":0,"message":{"role":"assistant","content":`+quote(reply)+`},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func testModels(baseURL string) *config.ModelsConfig {
	return &config.ModelsConfig{
		DefaultProvider: "local",
		Providers: map[string]config.ProviderConfig{
			"local": {
				Kind:            config.KindOpenAI,
				BaseURL:         baseURL,
				APIKey:          "test-key",
				DefaultModel:    "local-model",
				InputCostPer1K:  1,
				OutputCostPer1K: 2,
			},
			"bare": {Kind: config.KindOpenAI, BaseURL: baseURL, APIKey: "k"},
		},
	}
}

func TestRegistry_ExecuteAgainstOpenAICompatibleServer(t *testing.T) {
	srv, seen := newChatServer(t, "generated text")

	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, "notes.txt"), []byte("remember this"), 0o600))

	reg := NewRegistry(testModels(srv.URL))
	resp, err := reg.Execute(context.Background(), executor.ProviderRequest{
		SystemPrompt: "be brief",
		UserPrompt:   "summarize",
		ContextFiles: []string{"notes.txt", "missing.txt", "../outside.txt"},
		Workspace:    ws,
	})
	require.NoError(t, err)

	assert.Equal(t, "generated text", resp.Response)
	assert.Equal(t, "local", resp.Provider)
	assert.Equal(t, "local-model", resp.Model)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	require.NotNil(t, resp.Cost)
	assert.InDelta(t, 0.02, *resp.Cost, 1e-9)
	assert.Equal(t, []string{"notes.txt"}, resp.FilesIncluded)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, "local-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "be brief", req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.True(t, strings.HasPrefix(req.Messages[1].Content, "summarize\n\n"))
	assert.Contains(t, req.Messages[1].Content, "<file path=\"notes.txt\">\nremember this\n</file>")
}

func TestRegistry_ModelResolution(t *testing.T) {
	srv, seen := newChatServer(t, "ok")
	models := testModels(srv.URL)
	models.DefaultModel = "fallback-model"

	tests := []struct {
		name      string
		opts      []RegistryOption
		req       executor.ProviderRequest
		wantModel string
	}{
		{"explicit model", nil, executor.ProviderRequest{Model: "picked"}, "picked"},
		{"provider default", nil, executor.ProviderRequest{}, "local-model"},
		{"cli model for default provider", []RegistryOption{WithDefaults("", "cli-model")}, executor.ProviderRequest{}, "cli-model"},
		{"cli model ignored for explicit provider", []RegistryOption{WithDefaults("", "cli-model")}, executor.ProviderRequest{Provider: "LOCAL"}, "local-model"},
		{"no provider default", []RegistryOption{WithDefaults("bare", "")}, executor.ProviderRequest{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			*seen = nil
			resp, err := NewRegistry(models, tt.opts...).Execute(context.Background(), executor.ProviderRequest{
				UserPrompt: "x", Provider: tt.req.Provider, Model: tt.req.Model,
			})
			if tt.wantModel == "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no model configured")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, resp.Model)
			assert.Equal(t, tt.wantModel, (*seen)[0].Model)
		})
	}
}

func TestRegistry_UnknownProvider(t *testing.T) {
	_, err := NewRegistry(testModels("http://unused")).Execute(context.Background(), executor.ProviderRequest{Provider: "nope", UserPrompt: "x"})
	require.Error(t, err)
	assert.Equal(t, `unsupported provider "nope"`, err.Error())
}

type stubBackend struct {
	name  string
	calls int
	err   error
	last  GenerateRequest
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Generate(_ context.Context, req GenerateRequest) (*GenerateResult, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &GenerateResult{Text: "stub:" + req.UserPrompt}, nil
}

func TestRegistry_CachesBackendsAndPropagatesErrors(t *testing.T) {
	built := 0
	stub := &stubBackend{name: "local"}
	restore := SetBackendFactoryFn(func(name string, cfg config.ProviderConfig) (Backend, error) {
		built++
		return stub, nil
	})
	defer restore()

	reg := NewRegistry(testModels("http://unused"))
	for i := 0; i < 3; i++ {
		resp, err := reg.Execute(context.Background(), executor.ProviderRequest{UserPrompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "stub:hi", resp.Response)
		assert.Nil(t, resp.Usage)
		assert.Nil(t, resp.Cost)
	}
	assert.Equal(t, 1, built)
	assert.Equal(t, 3, stub.calls)

	stub.err = errors.New("quota")
	_, err := reg.Execute(context.Background(), executor.ProviderRequest{UserPrompt: "hi"})
	assert.EqualError(t, err, "quota")
}

func TestNewBackend_Kinds(t *testing.T) {
	b, err := newBackend("openai", config.ProviderConfig{Kind: config.KindOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIBackend{}, b)

	b, err = newBackend("ollama", config.ProviderConfig{Kind: config.KindOllama})
	require.NoError(t, err)
	require.IsType(t, &OllamaBackend{}, b)
	assert.Equal(t, defaultOllamaURL, b.(*OllamaBackend).serverURL)

	_, err = newBackend("x", config.ProviderConfig{Kind: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestComputeCost(t *testing.T) {
	cfg := config.ProviderConfig{InputCostPer1K: 0.5, OutputCostPer1K: 1.5}
	assert.Nil(t, computeCost(cfg, nil))
	assert.Nil(t, computeCost(config.ProviderConfig{}, &executor.Usage{PromptTokens: 10}))

	cost := computeCost(cfg, &executor.Usage{PromptTokens: 2000, CompletionTokens: 1000})
	require.NotNil(t, cost)
	assert.InDelta(t, 2.5, *cost, 1e-9)
}
