package services

import (
	"context"
	"fmt"
	"strings"

	"debatecore/internal/logger"
	"debatecore/pkg/debatetypes"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is the model used when none is configured.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// anthropicThinkingBudget is the token budget granted to extended thinking
// when a request asks for thoughts.
const anthropicThinkingBudget = 4096

// AnthropicClient implements the LLMClient interface for Anthropic's API.
// It provides lazy initialization of the Anthropic client and handles all
// Anthropic-specific communication logic, including extended thinking.
type AnthropicClient struct {
	apiKey string
	model  string
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client with lazy initialization.
// The actual Anthropic client is created only when the first request is made.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicClient{
		apiKey: apiKey,
		model:  model,
	}
}

// GetProviderName returns the provider name for this client.
func (c *AnthropicClient) GetProviderName() string {
	return "anthropic"
}

// IsConfigured returns true if the client has a valid API key.
func (c *AnthropicClient) IsConfigured() bool {
	return c.apiKey != ""
}

// initializeClientIfNeeded initializes the Anthropic client if it hasn't been initialized yet.
func (c *AnthropicClient) initializeClientIfNeeded() error {
	if c.client != nil {
		return nil
	}

	if c.apiKey == "" {
		return fmt.Errorf("anthropic API key not configured")
	}

	client := anthropic.NewClient(option.WithAPIKey(c.apiKey))
	c.client = &client

	logger.Debug("Anthropic client initialized", "provider", "anthropic", "model", c.model)
	return nil
}

// StreamCompletion sends a streaming message request to Anthropic.
// Thinking deltas are emitted as thinking chunks, text deltas as answer
// chunks. Cancelling the context tears down the stream.
func (c *AnthropicClient) StreamCompletion(ctx context.Context, req debatetypes.CompletionRequest) (<-chan debatetypes.StreamChunk, error) {
	if err := c.initializeClientIfNeeded(); err != nil {
		return nil, err
	}

	params := c.buildMessageParams(req)

	chunks := make(chan debatetypes.StreamChunk, 8)
	go func() {
		defer close(chunks)

		stream := c.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()

			deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}

			var chunk debatetypes.StreamChunk
			switch delta := deltaEvent.Delta.AsAny().(type) {
			case anthropic.ThinkingDelta:
				chunk = debatetypes.StreamChunk{Kind: debatetypes.ChunkThinking, Content: delta.Thinking}
			case anthropic.TextDelta:
				chunk = debatetypes.StreamChunk{Kind: debatetypes.ChunkAnswer, Content: delta.Text}
			default:
				continue
			}
			logger.StreamProgress("anthropic", string(chunk.Kind), len(chunk.Content))

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				chunks <- debatetypes.StreamChunk{Error: ctx.Err()}
				return
			}
		}

		if err := stream.Err(); err != nil {
			logger.Error("Anthropic stream failed", "error", err)
			chunks <- debatetypes.StreamChunk{Error: fmt.Errorf("anthropic stream failed: %w", err)}
			return
		}

		chunks <- debatetypes.StreamChunk{Done: true}
	}()

	return chunks, nil
}

// SendCompletion sends a non-streaming message request to Anthropic and
// returns the answer text and the thinking trace.
func (c *AnthropicClient) SendCompletion(ctx context.Context, req debatetypes.CompletionRequest) (string, string, error) {
	if err := c.initializeClientIfNeeded(); err != nil {
		return "", "", err
	}

	params := c.buildMessageParams(req)

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		logger.Error("Anthropic request failed", "error", err)
		return "", "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var answer, thinking strings.Builder
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.ThinkingBlock:
			thinking.WriteString(variant.Thinking)
		case anthropic.TextBlock:
			answer.WriteString(variant.Text)
		}
	}

	logger.Debug("Anthropic response received",
		"answer_length", answer.Len(), "thinking_length", thinking.Len())
	return answer.String(), thinking.String(), nil
}

// buildMessageParams converts a completion request to Anthropic message parameters.
func (c *AnthropicClient) buildMessageParams(req debatetypes.CompletionRequest) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == debatetypes.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}

	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}

	if req.IncludeThoughts {
		// Extended thinking requires temperature 1 and a token budget.
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(anthropicThinkingBudget)
	} else {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	return params
}
