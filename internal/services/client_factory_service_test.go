package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClientFactory(t *testing.T) *ClientFactoryService {
	t.Helper()
	factory := NewClientFactoryService()
	require.NoError(t, factory.Initialize())
	return factory
}

func TestClientFactoryService_Name(t *testing.T) {
	assert.Equal(t, "client_factory", NewClientFactoryService().Name())
}

func TestClientFactoryService_NotInitialized(t *testing.T) {
	factory := NewClientFactoryService()
	_, err := factory.GetClientForProvider("gemini", "key", "")
	assert.ErrorContains(t, err, "not initialized")
}

func TestClientFactoryService_GetClientForProvider(t *testing.T) {
	factory := newTestClientFactory(t)

	tests := []struct {
		provider string
		name     string
	}{
		{"gemini", "gemini"},
		{"anthropic", "anthropic"},
		{"openai", "openai"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			client, err := factory.GetClientForProvider(tt.provider, "test-key", "")
			require.NoError(t, err)
			assert.Equal(t, tt.name, client.GetProviderName())
			assert.True(t, client.IsConfigured())
		})
	}
}

func TestClientFactoryService_CachesByProviderAndKey(t *testing.T) {
	factory := newTestClientFactory(t)

	first, err := factory.GetClientForProvider("gemini", "key-one", "")
	require.NoError(t, err)
	second, err := factory.GetClientForProvider("gemini", "key-one", "")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := factory.GetClientForProvider("gemini", "key-two", "")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestClientFactoryService_InvalidArguments(t *testing.T) {
	factory := newTestClientFactory(t)

	_, err := factory.GetClientForProvider("", "key", "")
	assert.ErrorContains(t, err, "provider cannot be empty")

	_, err = factory.GetClientForProvider("gemini", "", "")
	assert.ErrorContains(t, err, "API key cannot be empty")

	_, err = factory.GetClientForProvider("cohere", "key", "")
	assert.ErrorContains(t, err, "unsupported provider")
}

func TestClientFactoryService_GetClientFromEnv(t *testing.T) {
	factory := newTestClientFactory(t)

	t.Setenv("GOOGLE_API_KEY", "env-key")
	client, err := factory.GetClientFromEnv("gemini", "")
	require.NoError(t, err)
	assert.Equal(t, "gemini", client.GetProviderName())

	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err = factory.GetClientFromEnv("anthropic", "")
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY environment variable not set")

	_, err = factory.GetClientFromEnv("cohere", "")
	assert.ErrorContains(t, err, "unsupported provider")
}

func TestClientFactoryService_ClientIDHidesKeyMaterial(t *testing.T) {
	factory := newTestClientFactory(t)

	id := factory.generateClientID("gemini", "super-secret-key")
	assert.NotContains(t, id, "super-secret-key")
	assert.Regexp(t, `^gemini:[0-9a-f]{8}$`, id)
}
