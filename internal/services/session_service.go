package services

import (
	"fmt"
	"sync"

	"debatecore/internal/logger"
	"debatecore/internal/testutils"
	"debatecore/pkg/debatetypes"
)

// SessionService owns the single ConversationState of the active session.
// It enforces the at-most-one-outstanding-operation rule: generation and
// load both acquire the session before touching state, and acquisition
// fails with ErrBusy while another operation is in flight.
type SessionService struct {
	initialized bool
	testMode    bool

	mu    sync.Mutex
	state *debatetypes.ConversationState
	busy  bool
}

// NewSessionService creates a new SessionService instance.
func NewSessionService() *SessionService {
	return &SessionService{}
}

// Name returns the service name "session" for registration.
func (s *SessionService) Name() string {
	return "session"
}

// Initialize creates the empty conversation state.
func (s *SessionService) Initialize() error {
	if s.initialized {
		return nil
	}

	s.state = s.emptyState()
	s.initialized = true
	return nil
}

// SetTestMode toggles deterministic IDs and timestamps.
func (s *SessionService) SetTestMode(enabled bool) {
	s.testMode = enabled
}

// IsTestMode reports whether the session runs in deterministic test mode.
func (s *SessionService) IsTestMode() bool {
	return s.testMode
}

func (s *SessionService) emptyState() *debatetypes.ConversationState {
	now := testutils.GetCurrentTime(s)
	return &debatetypes.ConversationState{
		Turns:              make([]debatetypes.Turn, 0),
		CurrentPersonality: DefaultPersonalityID,
		Temperature:        1.0,
		ShowThoughts:       true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// TryAcquire marks the session busy for one stateful operation.
// It returns ErrBusy when another operation is already in flight.
func (s *SessionService) TryAcquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return debatetypes.ErrBusy
	}
	s.busy = true
	return nil
}

// Release clears the busy flag after a stateful operation finishes.
func (s *SessionService) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

// IsBusy reports whether an operation is currently in flight.
func (s *SessionService) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// State returns a deep copy of the conversation state for observers.
// The live state is mutated only through this service.
func (s *SessionService) State() *debatetypes.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// AddUserTurn appends a user-authored turn to the conversation.
// Rejected with ErrBusy while a generation or load is in flight.
func (s *SessionService) AddUserTurn(content string) (*debatetypes.Turn, error) {
	if !s.initialized {
		return nil, fmt.Errorf("session service not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return nil, debatetypes.ErrBusy
	}

	turn := debatetypes.Turn{
		ID:        testutils.GenerateUUID(s),
		Role:      debatetypes.RoleUser,
		Content:   content,
		Timestamp: testutils.GetCurrentTime(s),
	}
	s.state.Turns = append(s.state.Turns, turn)
	s.state.UpdatedAt = turn.Timestamp

	return &turn, nil
}

// CommitTurn appends a completed assistant turn. Only the orchestrator calls
// this, while holding the busy flag.
func (s *SessionService) CommitTurn(turn debatetypes.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Turns = append(s.state.Turns, turn)
	s.state.UpdatedAt = turn.Timestamp
	logger.Debug("Turn committed", "turn", len(s.state.Turns)-1, "personality", turn.PersonalityID)
}

// NextTurnIndex returns the conversation index the next committed turn will occupy.
func (s *SessionService) NextTurnIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Turns)
}

// Clear resets the conversation to the empty state.
// Rejected with ErrBusy while an operation is in flight.
func (s *SessionService) Clear() error {
	if !s.initialized {
		return fmt.Errorf("session service not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return debatetypes.ErrBusy
	}

	current := s.state.CurrentPersonality
	temperature := s.state.Temperature
	showThoughts := s.state.ShowThoughts

	s.state = s.emptyState()
	s.state.CurrentPersonality = current
	s.state.Temperature = temperature
	s.state.ShowThoughts = showThoughts

	logger.Debug("Conversation cleared")
	return nil
}

// Replace swaps in a wholly new conversation state. The persistence engine
// uses this after a successful load. Rejected with ErrBusy while a
// generation is in flight.
func (s *SessionService) Replace(state *debatetypes.ConversationState) error {
	if !s.initialized {
		return fmt.Errorf("session service not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return debatetypes.ErrBusy
	}

	s.state = state.Clone()
	return nil
}

// SetCurrentPersonality switches the active personality identifier.
func (s *SessionService) SetCurrentPersonality(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CurrentPersonality = id
	s.state.UpdatedAt = testutils.GetCurrentTime(s)
}

// SetTemperature updates the session temperature, clamped to the accepted range.
func (s *SessionService) SetTemperature(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Temperature = debatetypes.ClampTemperature(t)
	s.state.UpdatedAt = testutils.GetCurrentTime(s)
}

// SetShowThoughts toggles thinking-trace visibility for subsequent turns.
func (s *SessionService) SetShowThoughts(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.ShowThoughts = show
	s.state.UpdatedAt = testutils.GetCurrentTime(s)
}
