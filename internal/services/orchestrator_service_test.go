package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debatecore/internal/testutils"
	"debatecore/pkg/debatetypes"
)

func newTestOrchestrator(t *testing.T, mock *MockLLMClient) (*OrchestratorService, *SessionService) {
	t.Helper()
	testutils.ResetTestCounters()

	session := NewSessionService()
	session.SetTestMode(true)
	require.NoError(t, session.Initialize())

	personalities := NewPersonalityService()
	require.NoError(t, personalities.Initialize())

	orchestrator := NewOrchestratorService(session, personalities)
	require.NoError(t, orchestrator.Initialize())
	orchestrator.SetClient(mock)

	return orchestrator, session
}

// collectEvents drains an event channel to completion and returns every event.
func collectEvents(events <-chan debatetypes.TurnEvent) []debatetypes.TurnEvent {
	var collected []debatetypes.TurnEvent
	for event := range events {
		collected = append(collected, event)
	}
	return collected
}

func eventsOfKind(events []debatetypes.TurnEvent, kind debatetypes.TurnEventKind) []debatetypes.TurnEvent {
	var matched []debatetypes.TurnEvent
	for _, event := range events {
		if event.Kind == kind {
			matched = append(matched, event)
		}
	}
	return matched
}

func TestOrchestratorService_Name(t *testing.T) {
	assert.Equal(t, "orchestrator", NewOrchestratorService(nil, nil).Name())
}

func TestOrchestratorService_InitializeRequiresDependencies(t *testing.T) {
	err := NewOrchestratorService(nil, nil).Initialize()
	assert.ErrorContains(t, err, "requires session and personality services")
}

func TestOrchestratorService_GenerateTurn(t *testing.T) {
	mock := NewMockLLMClient(MockScriptedTurn{
		ThinkingChunks: []string{"weighing ", "the claim"},
		AnswerChunks:   []string{"Actually, ", "you're wrong."},
	})
	orchestrator, session := newTestOrchestrator(t, mock)

	_, err := session.AddUserTurn("Tabs beat spaces.")
	require.NoError(t, err)

	events, err := orchestrator.GenerateTurn(context.Background(), "debate_bro", true)
	require.NoError(t, err)

	all := collectEvents(events)

	thinking := eventsOfKind(all, debatetypes.EventThinkingChunk)
	require.Len(t, thinking, 2)
	assert.Equal(t, "weighing ", thinking[0].Content)

	answers := eventsOfKind(all, debatetypes.EventAnswerChunk)
	require.Len(t, answers, 2)

	completes := eventsOfKind(all, debatetypes.EventTurnComplete)
	require.Len(t, completes, 1)
	assert.Equal(t, 1, completes[0].Index)
	assert.Equal(t, 1, completes[0].Completed)
	require.NotNil(t, completes[0].Turn)
	assert.Equal(t, "Actually, you're wrong.", completes[0].Turn.Content)
	assert.Equal(t, "weighing the claim", completes[0].Turn.Thinking)

	state := session.State()
	require.Len(t, state.Turns, 2)
	assert.Equal(t, debatetypes.RoleAssistant, state.Turns[1].Role)
	assert.Equal(t, "debate_bro", state.Turns[1].PersonalityID)
	assert.False(t, session.IsBusy(), "busy flag released after the stream ends")
}

func TestOrchestratorService_GenerateTurnWithoutThinking(t *testing.T) {
	mock := NewMockLLMClient(MockScriptedTurn{
		ThinkingChunks: []string{"hidden reasoning"},
		AnswerChunks:   []string{"Just the answer."},
	})
	orchestrator, session := newTestOrchestrator(t, mock)

	events, err := orchestrator.GenerateTurn(context.Background(), "philosopher", false)
	require.NoError(t, err)

	all := collectEvents(events)
	assert.Empty(t, eventsOfKind(all, debatetypes.EventThinkingChunk))

	requests := mock.Requests()
	require.Len(t, requests, 1)
	assert.False(t, requests[0].IncludeThoughts)

	state := session.State()
	require.Len(t, state.Turns, 1)
	assert.Empty(t, state.Turns[0].Thinking)
}

func TestOrchestratorService_GenerateTurnRequestShape(t *testing.T) {
	mock := NewMockLLMClient()
	orchestrator, session := newTestOrchestrator(t, mock)

	session.SetTemperature(0.4)
	_, err := session.AddUserTurn("opening claim")
	require.NoError(t, err)

	events, err := orchestrator.GenerateTurn(context.Background(), "contrarian", false)
	require.NoError(t, err)
	collectEvents(events)

	requests := mock.Requests()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, 0.4, req.Temperature)
	assert.NotEmpty(t, req.SystemPrompt)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, debatetypes.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "opening claim", req.Messages[0].Content)
}

func TestOrchestratorService_UnknownPersonalityRejected(t *testing.T) {
	orchestrator, session := newTestOrchestrator(t, NewMockLLMClient())

	_, err := orchestrator.GenerateTurn(context.Background(), "ghost", false)
	assert.ErrorContains(t, err, "not found")
	assert.False(t, session.IsBusy(), "a rejected request never holds the session")
}

func TestOrchestratorService_EmptyAnswerFails(t *testing.T) {
	mock := NewMockLLMClient(MockScriptedTurn{AnswerChunks: []string{"   "}})
	orchestrator, session := newTestOrchestrator(t, mock)

	events, err := orchestrator.GenerateTurn(context.Background(), "debate_bro", false)
	require.NoError(t, err)

	all := collectEvents(events)
	failed := eventsOfKind(all, debatetypes.EventTurnFailed)
	require.Len(t, failed, 1)

	var genErr *debatetypes.GenerationError
	require.ErrorAs(t, failed[0].Err, &genErr)
	assert.Equal(t, 0, genErr.TurnIndex)

	assert.Empty(t, session.State().Turns, "failed turns commit nothing")
}

func TestOrchestratorService_ProviderErrorFails(t *testing.T) {
	providerErr := errors.New("rate limited")
	mock := NewMockLLMClient(MockScriptedTurn{
		AnswerChunks: []string{"partial "},
		Err:          providerErr,
	})
	orchestrator, session := newTestOrchestrator(t, mock)

	events, err := orchestrator.GenerateTurn(context.Background(), "debate_bro", false)
	require.NoError(t, err)

	all := collectEvents(events)
	failed := eventsOfKind(all, debatetypes.EventTurnFailed)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, providerErr)

	assert.Empty(t, session.State().Turns, "partial content is discarded")
	assert.False(t, session.IsBusy())
}

func TestOrchestratorService_BusyRejectsSecondOperation(t *testing.T) {
	mock := NewMockLLMClient()
	mock.Gate = make(chan struct{})
	orchestrator, session := newTestOrchestrator(t, mock)

	events, err := orchestrator.GenerateTurn(context.Background(), "debate_bro", false)
	require.NoError(t, err)

	// While the first stream is held open, everything stateful is rejected.
	_, err = orchestrator.GenerateTurn(context.Background(), "debate_bro", false)
	assert.ErrorIs(t, err, debatetypes.ErrBusy)

	_, err = orchestrator.GenerateSequence(context.Background(), "debate_bro", "philosopher", 2)
	assert.ErrorIs(t, err, debatetypes.ErrBusy)

	_, err = session.AddUserTurn("interleaved")
	assert.ErrorIs(t, err, debatetypes.ErrBusy)

	mock.Gate <- struct{}{}
	collectEvents(events)

	assert.False(t, session.IsBusy())
	_, err = session.AddUserTurn("after release")
	assert.NoError(t, err)
}

func TestOrchestratorService_SequenceAlternation(t *testing.T) {
	mock := NewMockLLMClient(
		MockScriptedTurn{AnswerChunks: []string{"take one"}},
		MockScriptedTurn{AnswerChunks: []string{"take two"}},
		MockScriptedTurn{AnswerChunks: []string{"take three"}},
		MockScriptedTurn{AnswerChunks: []string{"take four"}},
	)
	orchestrator, session := newTestOrchestrator(t, mock)

	_, err := session.AddUserTurn("Debate: remote work is overrated.")
	require.NoError(t, err)

	events, err := orchestrator.GenerateSequence(context.Background(), "philosopher", "contrarian", 4)
	require.NoError(t, err)

	all := collectEvents(events)

	completes := eventsOfKind(all, debatetypes.EventTurnComplete)
	require.Len(t, completes, 4)
	for i, event := range completes {
		assert.Equal(t, i+1, event.Completed)
		assert.Equal(t, 4, event.Requested)
	}

	finals := eventsOfKind(all, debatetypes.EventSequenceComplete)
	require.Len(t, finals, 1)
	assert.Equal(t, 4, finals[0].Completed)

	state := session.State()
	require.Len(t, state.Turns, 5)
	speakers := []string{}
	for _, turn := range state.Turns[1:] {
		speakers = append(speakers, turn.PersonalityID)
	}
	assert.Equal(t, []string{"philosopher", "contrarian", "philosopher", "contrarian"}, speakers)
}

func TestOrchestratorService_SequenceClampsRequestedTurns(t *testing.T) {
	assert.Equal(t, MinSequenceTurns, clampSequenceTurns(0))
	assert.Equal(t, MinSequenceTurns, clampSequenceTurns(-5))
	assert.Equal(t, MaxSequenceTurns, clampSequenceTurns(99))
	assert.Equal(t, 7, clampSequenceTurns(7))

	mock := NewMockLLMClient(MockScriptedTurn{AnswerChunks: []string{"only take"}})
	orchestrator, _ := newTestOrchestrator(t, mock)

	events, err := orchestrator.GenerateSequence(context.Background(), "debate_bro", "peacemaker", 0)
	require.NoError(t, err)

	all := collectEvents(events)
	finals := eventsOfKind(all, debatetypes.EventSequenceComplete)
	require.Len(t, finals, 1)
	assert.Equal(t, 1, finals[0].Requested)
	assert.Equal(t, 1, finals[0].Completed)
}

func TestOrchestratorService_SequenceCancellation(t *testing.T) {
	mock := NewMockLLMClient(MockScriptedTurn{AnswerChunks: []string{"a take"}})
	mock.Gate = make(chan struct{})
	orchestrator, session := newTestOrchestrator(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := orchestrator.GenerateSequence(ctx, "philosopher", "contrarian", 5)
	require.NoError(t, err)

	// Let two turns through, then cancel while the third stream is gated.
	var all []debatetypes.TurnEvent
	started := 0
	for event := range events {
		all = append(all, event)
		if event.Kind == debatetypes.EventTurnStarted {
			started++
			if started <= 2 {
				mock.Gate <- struct{}{}
			} else {
				cancel()
			}
		}
	}

	cancelled := eventsOfKind(all, debatetypes.EventSequenceCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, 2, cancelled[0].Completed)
	assert.Equal(t, 5, cancelled[0].Requested)
	assert.Empty(t, eventsOfKind(all, debatetypes.EventSequenceComplete))

	// Turns committed before cancellation stay committed.
	state := session.State()
	require.Len(t, state.Turns, 2)
	assert.Equal(t, "philosopher", state.Turns[0].PersonalityID)
	assert.Equal(t, "contrarian", state.Turns[1].PersonalityID)
	assert.False(t, session.IsBusy())
}

func TestOrchestratorService_SequenceHaltsOnProviderFailure(t *testing.T) {
	providerErr := errors.New("provider exploded")
	mock := NewMockLLMClient(
		MockScriptedTurn{AnswerChunks: []string{"fine"}},
		MockScriptedTurn{Err: providerErr},
	)
	orchestrator, session := newTestOrchestrator(t, mock)

	events, err := orchestrator.GenerateSequence(context.Background(), "debate_bro", "peacemaker", 4)
	require.NoError(t, err)

	all := collectEvents(events)

	completes := eventsOfKind(all, debatetypes.EventTurnComplete)
	require.Len(t, completes, 1)

	failed := eventsOfKind(all, debatetypes.EventTurnFailed)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, providerErr)
	assert.Equal(t, 1, failed[0].Index)

	assert.Empty(t, eventsOfKind(all, debatetypes.EventSequenceComplete))

	// The completed first turn is retained.
	state := session.State()
	require.Len(t, state.Turns, 1)
	assert.Equal(t, "debate_bro", state.Turns[0].PersonalityID)
	assert.False(t, session.IsBusy())
}

func TestOrchestratorService_SequenceThinkingFollowsSessionSetting(t *testing.T) {
	mock := NewMockLLMClient(MockScriptedTurn{
		ThinkingChunks: []string{"quiet reasoning"},
		AnswerChunks:   []string{"a take"},
	})
	orchestrator, session := newTestOrchestrator(t, mock)
	session.SetShowThoughts(false)

	events, err := orchestrator.GenerateSequence(context.Background(), "debate_bro", "peacemaker", 2)
	require.NoError(t, err)

	all := collectEvents(events)
	assert.Empty(t, eventsOfKind(all, debatetypes.EventThinkingChunk))

	for _, req := range mock.Requests() {
		assert.False(t, req.IncludeThoughts)
	}
}
