package services

import (
	"context"
	"fmt"

	"debatecore/internal/logger"
	"debatecore/pkg/debatetypes"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is the model used when none is configured.
const DefaultOpenAIModel = "gpt-4o"

// OpenAIClient implements the LLMClient interface for OpenAI's Chat
// Completions API. Chat Completions expose no thinking channel, so this
// client emits answer chunks only; turns generated through it carry no
// thinking trace.
type OpenAIClient struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client with lazy initialization.
// The actual OpenAI client is created only when the first request is made.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{
		apiKey: apiKey,
		model:  model,
	}
}

// GetProviderName returns the provider name for this client.
func (c *OpenAIClient) GetProviderName() string {
	return "openai"
}

// IsConfigured returns true if the client has a valid API key.
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}

// initializeClientIfNeeded initializes the OpenAI client if it hasn't been initialized yet.
func (c *OpenAIClient) initializeClientIfNeeded() error {
	if c.client != nil {
		return nil
	}

	if c.apiKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}

	client := openai.NewClient(option.WithAPIKey(c.apiKey))
	c.client = &client

	logger.Debug("OpenAI client initialized", "provider", "openai", "model", c.model)
	return nil
}

// StreamCompletion sends a streaming chat completion request to OpenAI.
func (c *OpenAIClient) StreamCompletion(ctx context.Context, req debatetypes.CompletionRequest) (<-chan debatetypes.StreamChunk, error) {
	if err := c.initializeClientIfNeeded(); err != nil {
		return nil, err
	}

	params := c.buildCompletionParams(req)

	chunks := make(chan debatetypes.StreamChunk, 8)
	go func() {
		defer close(chunks)

		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		acc := openai.ChatCompletionAccumulator{}

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) == 0 {
				continue
			}
			content := chunk.Choices[0].Delta.Content
			if content == "" {
				continue
			}
			logger.StreamProgress("openai", string(debatetypes.ChunkAnswer), len(content))

			select {
			case chunks <- debatetypes.StreamChunk{Kind: debatetypes.ChunkAnswer, Content: content}:
			case <-ctx.Done():
				chunks <- debatetypes.StreamChunk{Error: ctx.Err()}
				return
			}
		}

		if err := stream.Err(); err != nil {
			logger.Error("OpenAI stream failed", "error", err)
			chunks <- debatetypes.StreamChunk{Error: fmt.Errorf("openai stream failed: %w", err)}
			return
		}

		chunks <- debatetypes.StreamChunk{Done: true}
	}()

	return chunks, nil
}

// SendCompletion sends a non-streaming chat completion request to OpenAI.
// The thinking trace is always empty for this provider.
func (c *OpenAIClient) SendCompletion(ctx context.Context, req debatetypes.CompletionRequest) (string, string, error) {
	if err := c.initializeClientIfNeeded(); err != nil {
		return "", "", err
	}

	params := c.buildCompletionParams(req)

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("OpenAI request failed", "error", err)
		return "", "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", "", fmt.Errorf("no response choices returned")
	}

	content := completion.Choices[0].Message.Content
	logger.Debug("OpenAI response received", "content_length", len(content))
	return content, "", nil
}

// buildCompletionParams converts a completion request to OpenAI parameters.
// The system prompt is prepended as a system message.
func (c *OpenAIClient) buildCompletionParams(req debatetypes.CompletionRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		if msg.Role == debatetypes.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	return params
}
