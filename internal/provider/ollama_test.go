package provider

import (
	"testing"

	"promptbatch/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaBackend_ReusesClientPerModel(t *testing.T) {
	b := NewOllamaBackend("local", config.ProviderConfig{Kind: config.KindOllama, BaseURL: "http://127.0.0.1:11434/"})
	assert.Equal(t, "http://127.0.0.1:11434", b.serverURL)

	first, err := b.client("llama3")
	require.NoError(t, err)
	again, err := b.client("llama3")
	require.NoError(t, err)
	other, err := b.client("mistral")
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.NotSame(t, first, other)
	assert.Len(t, b.clients, 2)
}

func TestOllamaBackend_DefaultServerURL(t *testing.T) {
	b := NewOllamaBackend("ollama", config.ProviderConfig{Kind: config.KindOllama})
	assert.Equal(t, defaultOllamaURL, b.serverURL)
	assert.Equal(t, "ollama", b.Name())
}
