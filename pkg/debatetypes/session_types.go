// Package debatetypes defines conversation state types for the debate engine.
// This file contains the core types for turns, conversation state, and the
// settings that travel with a session.
package debatetypes

import "time"

// Role identifies the author of a turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn represents one authored message in a conversation.
// Assistant turns carry the identifier of the personality that produced them
// and, when thinking capture was enabled, the thinking trace emitted before
// the final content.
type Turn struct {
	ID            string    `json:"id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	PersonalityID string    `json:"personality_id,omitempty"` // empty for user turns
	Thinking      string    `json:"thinking,omitempty"`       // empty when capture was off or unsupported
	Unresolved    bool      `json:"unresolved,omitempty"`     // personality did not resolve at load time
	Timestamp     time.Time `json:"timestamp"`
}

// ConversationState is the complete in-memory state of one debate session.
// There is exactly one ConversationState per active session. It is mutated
// only by the turn orchestrator during generation and by the persistence
// engine during load.
type ConversationState struct {
	Turns              []Turn    `json:"turns"`
	CurrentPersonality string    `json:"current_personality"`
	Temperature        float64   `json:"temperature"`
	ShowThoughts       bool      `json:"show_thoughts"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TurnCount returns the number of turns in the conversation.
func (s *ConversationState) TurnCount() int {
	return len(s.Turns)
}

// LastTurn returns the most recent turn, or nil for an empty conversation.
func (s *ConversationState) LastTurn() *Turn {
	if len(s.Turns) == 0 {
		return nil
	}
	return &s.Turns[len(s.Turns)-1]
}

// Clone returns a deep copy of the state. Observers get clones so that the
// orchestrator remains the sole mutator of the live state.
func (s *ConversationState) Clone() *ConversationState {
	clone := *s
	clone.Turns = make([]Turn, len(s.Turns))
	copy(clone.Turns, s.Turns)
	return &clone
}

// Temperature bounds accepted by the engine. Out-of-range values are clamped,
// never rejected.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// ClampTemperature coerces a temperature into the accepted range.
func ClampTemperature(t float64) float64 {
	if t < MinTemperature {
		return MinTemperature
	}
	if t > MaxTemperature {
		return MaxTemperature
	}
	return t
}
