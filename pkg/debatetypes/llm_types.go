// Package debatetypes defines LLM-related types and interfaces for the debate engine.
// This file contains the client abstraction for the hosted generation service
// and the typed streaming chunks it produces.
package debatetypes

import "context"

// ChunkKind classifies a streamed chunk as thinking or answer text.
// The provider contract guarantees that thinking chunks, if any, precede
// answer chunks and the two phases do not interleave within one turn.
type ChunkKind string

const (
	// ChunkThinking is intermediate reasoning text emitted before the answer.
	ChunkThinking ChunkKind = "thinking"
	// ChunkAnswer is final response text.
	ChunkAnswer ChunkKind = "answer"
)

// StreamChunk represents a single chunk of streaming response.
type StreamChunk struct {
	Kind    ChunkKind // Thinking or answer text
	Content string    // The text content of this chunk
	Done    bool      // Whether this is the final chunk
	Error   error     // Any error that occurred during streaming
}

// PromptMessage is one entry of the role/content history sent to a provider.
type PromptMessage struct {
	Role    string
	Content string
}

// CompletionRequest carries everything a provider client needs for one turn:
// the resolved system prompt, the full ordered history, the temperature, and
// whether thinking output should be requested at all.
type CompletionRequest struct {
	SystemPrompt    string
	Messages        []PromptMessage
	Temperature     float64
	IncludeThoughts bool
	MaxTokens       int
}

// LLMClient defines the interface for generation service implementations.
// This interface abstracts different providers (Gemini, Anthropic, OpenAI)
// and provides a common streaming contract.
type LLMClient interface {
	// GetProviderName returns the name of the provider (e.g., "gemini").
	GetProviderName() string

	// IsConfigured returns true if the client has valid configuration and can make requests.
	IsConfigured() bool

	// StreamCompletion sends a streaming completion request.
	// It returns a channel that receives typed chunks as they arrive.
	// The channel is closed after the Done chunk or an Error chunk.
	// Cancelling the context tears down the in-flight request.
	StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// SendCompletion sends a non-streaming completion request and returns the
	// answer text and the thinking trace (empty when not requested or not
	// supported by the provider).
	SendCompletion(ctx context.Context, req CompletionRequest) (string, string, error)
}
