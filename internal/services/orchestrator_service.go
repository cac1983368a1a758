package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"debatecore/internal/logger"
	"debatecore/internal/testutils"
	"debatecore/pkg/debatetypes"
)

// Bounds for automated bot-vs-bot exchanges. Requested turn counts outside
// this range are clamped, not rejected.
const (
	MinSequenceTurns = 1
	MaxSequenceTurns = 10
)

// defaultMaxTokens is the output budget for streamed generation. Debate
// turns with thinking enabled can run long.
const defaultMaxTokens = 32768

// OrchestratorService drives generation turns against the configured
// provider client. It is the sole mutator of conversation state during
// generation: chunk events are a live preview, and a turn becomes visible in
// state only when it commits atomically at stream completion.
type OrchestratorService struct {
	initialized bool

	session       *SessionService
	personalities *PersonalityService
	client        debatetypes.LLMClient
	maxTokens     int
}

// NewOrchestratorService creates an orchestrator bound to the session it
// mutates and the personality registry it resolves speakers against.
func NewOrchestratorService(session *SessionService, personalities *PersonalityService) *OrchestratorService {
	return &OrchestratorService{
		session:       session,
		personalities: personalities,
		maxTokens:     defaultMaxTokens,
	}
}

// Name returns the service name "orchestrator" for registration.
func (o *OrchestratorService) Name() string {
	return "orchestrator"
}

// Initialize sets up the OrchestratorService for operation.
func (o *OrchestratorService) Initialize() error {
	if o.session == nil || o.personalities == nil {
		return fmt.Errorf("orchestrator service requires session and personality services")
	}
	o.initialized = true
	return nil
}

// SetClient installs the generation client the orchestrator streams from.
func (o *OrchestratorService) SetClient(client debatetypes.LLMClient) {
	o.client = client
}

// GenerateTurn drives one generation turn for the given speaking personality.
// It returns a channel of typed events: chunk previews while streaming, then
// exactly one of turn-complete or turn-failed before the channel closes.
// A call while another operation is in flight is rejected with ErrBusy.
func (o *OrchestratorService) GenerateTurn(ctx context.Context, personalityID string, captureThinking bool) (<-chan debatetypes.TurnEvent, error) {
	if !o.initialized {
		return nil, fmt.Errorf("orchestrator service not initialized")
	}
	if o.client == nil {
		return nil, fmt.Errorf("no generation client configured")
	}

	personality, err := o.personalities.Resolve(personalityID)
	if err != nil {
		return nil, fmt.Errorf("speaking personality unavailable: %w", err)
	}

	if err := o.session.TryAcquire(); err != nil {
		return nil, err
	}

	events := make(chan debatetypes.TurnEvent, 16)
	go func() {
		defer o.session.Release()
		defer close(events)

		index := o.session.NextTurnIndex()
		turn, err := o.runTurn(ctx, personality, captureThinking, index, events)
		if err != nil {
			events <- debatetypes.TurnEvent{Kind: debatetypes.EventTurnFailed, Index: index, Err: err}
			return
		}
		events <- debatetypes.TurnEvent{
			Kind:      debatetypes.EventTurnComplete,
			Index:     index,
			Turn:      turn,
			Completed: 1,
			Requested: 1,
		}
	}()

	return events, nil
}

// GenerateSequence drives a bounded bot-vs-bot exchange. Speakers alternate
// strictly A, B, A, B regardless of who spoke last historically. Each turn
// commits before the next is requested; cancellation is observed between
// chunks and between turns, and already-committed turns stay committed.
func (o *OrchestratorService) GenerateSequence(ctx context.Context, personalityA, personalityB string, requested int) (<-chan debatetypes.TurnEvent, error) {
	if !o.initialized {
		return nil, fmt.Errorf("orchestrator service not initialized")
	}
	if o.client == nil {
		return nil, fmt.Errorf("no generation client configured")
	}

	botA, err := o.personalities.Resolve(personalityA)
	if err != nil {
		return nil, fmt.Errorf("personality A unavailable: %w", err)
	}
	botB, err := o.personalities.Resolve(personalityB)
	if err != nil {
		return nil, fmt.Errorf("personality B unavailable: %w", err)
	}

	requested = clampSequenceTurns(requested)

	if err := o.session.TryAcquire(); err != nil {
		return nil, err
	}

	captureThinking := o.session.State().ShowThoughts

	events := make(chan debatetypes.TurnEvent, 16)
	go func() {
		defer o.session.Release()
		defer close(events)

		for completed := 0; completed < requested; completed++ {
			// Turn boundary: a cancellation request takes effect here.
			select {
			case <-ctx.Done():
				events <- debatetypes.TurnEvent{
					Kind:      debatetypes.EventSequenceCancelled,
					Completed: completed,
					Requested: requested,
				}
				return
			default:
			}

			speaker := botA
			if completed%2 == 1 {
				speaker = botB
			}

			index := o.session.NextTurnIndex()
			turn, err := o.runTurn(ctx, speaker, captureThinking, index, events)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					events <- debatetypes.TurnEvent{
						Kind:      debatetypes.EventSequenceCancelled,
						Completed: completed,
						Requested: requested,
					}
				} else {
					// Committed turns are retained; retry is caller-initiated.
					events <- debatetypes.TurnEvent{Kind: debatetypes.EventTurnFailed, Index: index, Err: err}
				}
				return
			}

			events <- debatetypes.TurnEvent{
				Kind:      debatetypes.EventTurnComplete,
				Index:     index,
				Turn:      turn,
				Completed: completed + 1,
				Requested: requested,
			}
		}

		events <- debatetypes.TurnEvent{
			Kind:      debatetypes.EventSequenceComplete,
			Completed: requested,
			Requested: requested,
		}
	}()

	return events, nil
}

// runTurn generates one turn against the provider stream and commits it.
// The caller holds the session busy flag. On any failure nothing is
// committed and the partial content is discarded.
func (o *OrchestratorService) runTurn(ctx context.Context, personality *debatetypes.Personality, captureThinking bool, index int, events chan<- debatetypes.TurnEvent) (*debatetypes.Turn, error) {
	events <- debatetypes.TurnEvent{Kind: debatetypes.EventTurnStarted, Index: index}

	state := o.session.State()
	req := o.buildRequest(state, personality, captureThinking)

	stream, err := o.client.StreamCompletion(ctx, req)
	if err != nil {
		return nil, &debatetypes.GenerationError{TurnIndex: index, Err: err}
	}

	var thinking, answer strings.Builder
	for chunk := range stream {
		if chunk.Error != nil {
			return nil, &debatetypes.GenerationError{TurnIndex: index, Err: chunk.Error}
		}
		if chunk.Done {
			break
		}

		switch chunk.Kind {
		case debatetypes.ChunkThinking:
			if captureThinking {
				thinking.WriteString(chunk.Content)
				events <- debatetypes.TurnEvent{Kind: debatetypes.EventThinkingChunk, Index: index, Content: chunk.Content}
			}
		case debatetypes.ChunkAnswer:
			answer.WriteString(chunk.Content)
			events <- debatetypes.TurnEvent{Kind: debatetypes.EventAnswerChunk, Index: index, Content: chunk.Content}
		}

		// Cooperative cancellation between chunks.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(answer.String()) == "" {
		return nil, &debatetypes.GenerationError{TurnIndex: index, Err: errors.New("no response generated by the model")}
	}

	turn := debatetypes.Turn{
		ID:            testutils.GenerateUUID(o.session),
		Role:          debatetypes.RoleAssistant,
		Content:       answer.String(),
		PersonalityID: personality.ID,
		Timestamp:     testutils.GetCurrentTime(o.session),
	}
	if captureThinking {
		turn.Thinking = thinking.String()
	}

	o.session.CommitTurn(turn)
	logger.Debug("Turn generated", "turn", index, "personality", personality.ID,
		"answer_length", answer.Len(), "thinking_length", thinking.Len())
	return &turn, nil
}

// buildRequest maps the full ordered turn history into the provider's
// role/content shape and attaches the speaker's resolved system prompt.
func (o *OrchestratorService) buildRequest(state *debatetypes.ConversationState, personality *debatetypes.Personality, captureThinking bool) debatetypes.CompletionRequest {
	messages := make([]debatetypes.PromptMessage, 0, len(state.Turns))
	for _, turn := range state.Turns {
		messages = append(messages, debatetypes.PromptMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	return debatetypes.CompletionRequest{
		SystemPrompt:    personality.SystemPrompt,
		Messages:        messages,
		Temperature:     state.Temperature,
		IncludeThoughts: captureThinking,
		MaxTokens:       o.maxTokens,
	}
}

// clampSequenceTurns coerces a requested turn count into the accepted range.
func clampSequenceTurns(n int) int {
	if n < MinSequenceTurns {
		return MinSequenceTurns
	}
	if n > MaxSequenceTurns {
		return MaxSequenceTurns
	}
	return n
}
