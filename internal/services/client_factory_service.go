package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"debatecore/internal/logger"
	"debatecore/pkg/debatetypes"
)

// providerKeyEnvVars maps provider names to the environment variable holding
// their API key.
var providerKeyEnvVars = map[string]string{
	"gemini":    "GOOGLE_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// ClientFactoryService manages the creation and caching of generation
// clients. Clients are cached by a provider-plus-hashed-key ID so repeated
// lookups return the same lazily initialized client.
type ClientFactoryService struct {
	initialized bool

	mu      sync.RWMutex
	clients map[string]debatetypes.LLMClient
}

// NewClientFactoryService creates a new ClientFactoryService instance.
func NewClientFactoryService() *ClientFactoryService {
	return &ClientFactoryService{
		clients: make(map[string]debatetypes.LLMClient),
	}
}

// Name returns the service name "client_factory" for registration.
func (f *ClientFactoryService) Name() string {
	return "client_factory"
}

// Initialize sets up the ClientFactoryService for operation.
func (f *ClientFactoryService) Initialize() error {
	logger.ServiceOperation("client_factory", "initialize", "completed")
	f.initialized = true
	return nil
}

// GetClientForProvider returns a generation client for the specified
// provider and API key, creating and caching it on first use.
func (f *ClientFactoryService) GetClientForProvider(provider, apiKey, model string) (debatetypes.LLMClient, error) {
	if !f.initialized {
		return nil, fmt.Errorf("client factory service not initialized")
	}

	if provider == "" {
		return nil, fmt.Errorf("provider cannot be empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key cannot be empty for provider '%s'", provider)
	}

	clientID := f.generateClientID(provider, apiKey)

	f.mu.RLock()
	client, exists := f.clients[clientID]
	f.mu.RUnlock()
	if exists {
		logger.Debug("Returning cached provider client", "provider", provider, "clientID", clientID)
		return client, nil
	}

	switch provider {
	case "gemini":
		client = NewGeminiClient(apiKey, model)
	case "anthropic":
		client = NewAnthropicClient(apiKey, model)
	case "openai":
		client = NewOpenAIClient(apiKey, model)
	default:
		return nil, fmt.Errorf("unsupported provider '%s'. Supported providers: gemini, anthropic, openai", provider)
	}

	f.mu.Lock()
	f.clients[clientID] = client
	f.mu.Unlock()

	logger.Debug("Created new provider client", "provider", provider, "clientID", clientID)
	return client, nil
}

// GetClientFromEnv returns a client for the provider using the API key from
// its conventional environment variable.
func (f *ClientFactoryService) GetClientFromEnv(provider, model string) (debatetypes.LLMClient, error) {
	envVar, ok := providerKeyEnvVars[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider '%s'. Supported providers: gemini, anthropic, openai", provider)
	}

	apiKey := os.Getenv(envVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set for provider '%s'", envVar, provider)
	}

	return f.GetClientForProvider(provider, apiKey, model)
}

// generateClientID creates a unique, secure client ID for the given provider
// and API key. Uses a SHA-256 hash truncated to 8 hex characters so logs
// never carry key material.
func (f *ClientFactoryService) generateClientID(provider, apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	hexHash := hex.EncodeToString(hash[:])
	return fmt.Sprintf("%s:%s", provider, hexHash[:8])
}
