package services

import (
	"context"
	"fmt"
	"strings"

	"debatecore/internal/logger"
	"debatecore/pkg/debatetypes"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the model used when none is configured. The engine's
// original hosted service was Gemini with thought summaries enabled.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements the LLMClient interface for the Google Gemini API.
// It provides lazy initialization of the genai client and handles all
// Gemini-specific communication logic, including thinking capture.
type GeminiClient struct {
	apiKey string
	model  string
	client *genai.Client
}

// NewGeminiClient creates a new Gemini client with lazy initialization.
// The actual genai client is created only when the first request is made.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
	}
}

// GetProviderName returns the provider name for this client.
func (c *GeminiClient) GetProviderName() string {
	return "gemini"
}

// IsConfigured returns true if the client has a valid API key.
func (c *GeminiClient) IsConfigured() bool {
	return c.apiKey != ""
}

// initializeClientIfNeeded initializes the genai client if it hasn't been initialized yet.
func (c *GeminiClient) initializeClientIfNeeded(ctx context.Context) error {
	if c.client != nil {
		return nil
	}

	if c.apiKey == "" {
		return fmt.Errorf("google API key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.apiKey})
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c.client = client
	logger.Debug("Gemini client initialized", "provider", "gemini", "model", c.model)
	return nil
}

// StreamCompletion sends a streaming generation request to Gemini.
// Thought-summary parts are emitted as thinking chunks, text parts as answer
// chunks. Cancelling the context tears down the stream.
func (c *GeminiClient) StreamCompletion(ctx context.Context, req debatetypes.CompletionRequest) (<-chan debatetypes.StreamChunk, error) {
	if err := c.initializeClientIfNeeded(ctx); err != nil {
		return nil, err
	}

	contents := c.convertMessages(req.Messages)
	config := c.buildGenerationConfig(req)

	chunks := make(chan debatetypes.StreamChunk, 8)
	go func() {
		defer close(chunks)

		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, config) {
			if err != nil {
				logger.Error("Gemini stream failed", "error", err)
				chunks <- debatetypes.StreamChunk{Error: fmt.Errorf("gemini stream failed: %w", err)}
				return
			}

			for _, candidate := range resp.Candidates {
				if candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part.Text == "" {
						continue
					}

					kind := debatetypes.ChunkAnswer
					if part.Thought {
						kind = debatetypes.ChunkThinking
					}
					logger.StreamProgress("gemini", string(kind), len(part.Text))

					select {
					case chunks <- debatetypes.StreamChunk{Kind: kind, Content: part.Text}:
					case <-ctx.Done():
						chunks <- debatetypes.StreamChunk{Error: ctx.Err()}
						return
					}
				}
			}
		}

		chunks <- debatetypes.StreamChunk{Done: true}
	}()

	return chunks, nil
}

// SendCompletion sends a non-streaming generation request to Gemini and
// returns the answer text and the thinking trace.
func (c *GeminiClient) SendCompletion(ctx context.Context, req debatetypes.CompletionRequest) (string, string, error) {
	if err := c.initializeClientIfNeeded(ctx); err != nil {
		return "", "", err
	}

	contents := c.convertMessages(req.Messages)
	config := c.buildGenerationConfig(req)

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		logger.Error("Gemini request failed", "error", err)
		return "", "", fmt.Errorf("gemini request failed: %w", err)
	}

	var answer, thinking strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" {
				continue
			}
			if part.Thought {
				thinking.WriteString(part.Text)
			} else {
				answer.WriteString(part.Text)
			}
		}
	}

	logger.Debug("Gemini response received",
		"answer_length", answer.Len(), "thinking_length", thinking.Len())
	return answer.String(), thinking.String(), nil
}

// convertMessages converts the engine's history to Gemini content.
// Gemini uses "model" instead of "assistant"; the system prompt travels
// separately via SystemInstruction.
func (c *GeminiClient) convertMessages(messages []debatetypes.PromptMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == debatetypes.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: msg.Content}},
			Role:  role,
		})
	}

	// Gemini rejects an empty contents list.
	if len(contents) == 0 {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: ""}},
			Role:  genai.RoleUser,
		})
	}

	return contents
}

// buildGenerationConfig creates a Gemini generation config from the request.
func (c *GeminiClient) buildGenerationConfig(req debatetypes.CompletionRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	temperature := float32(req.Temperature)
	config.Temperature = &temperature

	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	config.ThinkingConfig = &genai.ThinkingConfig{
		IncludeThoughts: req.IncludeThoughts,
	}

	return config
}
