package services

import (
	"context"
	"strings"
	"sync"

	"debatecore/pkg/debatetypes"
)

// MockScriptedTurn is one scripted provider response for the mock client.
// Thinking chunks are only delivered when the request asked for thoughts,
// matching the real providers. A non-nil Err fails the stream mid-turn after
// any chunks scripted before it.
type MockScriptedTurn struct {
	ThinkingChunks []string
	AnswerChunks   []string
	Err            error
}

// MockLLMClient provides a scriptable implementation of LLMClient for
// testing the orchestrator without network access. Each call consumes the
// next scripted turn; the last turn repeats once the script runs out.
type MockLLMClient struct {
	mu       sync.Mutex
	script   []MockScriptedTurn
	calls    int
	requests []debatetypes.CompletionRequest

	// Gate, when set, blocks each stream before its first chunk until a
	// value is received. Used to hold the session busy in tests.
	Gate chan struct{}
}

// NewMockLLMClient creates a mock client with the given scripted turns.
func NewMockLLMClient(script ...MockScriptedTurn) *MockLLMClient {
	if len(script) == 0 {
		script = []MockScriptedTurn{{AnswerChunks: []string{"This is a mock response."}}}
	}
	return &MockLLMClient{script: script}
}

// GetProviderName returns the provider name for this client.
func (m *MockLLMClient) GetProviderName() string {
	return "mock"
}

// IsConfigured always returns true for the mock client.
func (m *MockLLMClient) IsConfigured() bool {
	return true
}

// Calls returns how many completion requests the mock has served.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of every request the mock received, in order.
func (m *MockLLMClient) Requests() []debatetypes.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	requests := make([]debatetypes.CompletionRequest, len(m.requests))
	copy(requests, m.requests)
	return requests
}

func (m *MockLLMClient) nextTurn(req debatetypes.CompletionRequest) MockScriptedTurn {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	turn := m.script[min(m.calls, len(m.script)-1)]
	m.calls++
	return turn
}

// StreamCompletion replays the next scripted turn as a chunk stream.
func (m *MockLLMClient) StreamCompletion(ctx context.Context, req debatetypes.CompletionRequest) (<-chan debatetypes.StreamChunk, error) {
	turn := m.nextTurn(req)

	chunks := make(chan debatetypes.StreamChunk, 8)
	go func() {
		defer close(chunks)

		if m.Gate != nil {
			select {
			case <-m.Gate:
			case <-ctx.Done():
				chunks <- debatetypes.StreamChunk{Error: ctx.Err()}
				return
			}
		}

		emit := func(chunk debatetypes.StreamChunk) bool {
			select {
			case chunks <- chunk:
				return true
			case <-ctx.Done():
				chunks <- debatetypes.StreamChunk{Error: ctx.Err()}
				return false
			}
		}

		if req.IncludeThoughts {
			for _, content := range turn.ThinkingChunks {
				if !emit(debatetypes.StreamChunk{Kind: debatetypes.ChunkThinking, Content: content}) {
					return
				}
			}
		}
		for _, content := range turn.AnswerChunks {
			if !emit(debatetypes.StreamChunk{Kind: debatetypes.ChunkAnswer, Content: content}) {
				return
			}
		}

		if turn.Err != nil {
			chunks <- debatetypes.StreamChunk{Error: turn.Err}
			return
		}

		chunks <- debatetypes.StreamChunk{Done: true}
	}()

	return chunks, nil
}

// SendCompletion replays the next scripted turn as a single response.
func (m *MockLLMClient) SendCompletion(_ context.Context, req debatetypes.CompletionRequest) (string, string, error) {
	turn := m.nextTurn(req)
	if turn.Err != nil {
		return "", "", turn.Err
	}

	thinking := ""
	if req.IncludeThoughts {
		thinking = strings.Join(turn.ThinkingChunks, "")
	}
	return strings.Join(turn.AnswerChunks, ""), thinking, nil
}
