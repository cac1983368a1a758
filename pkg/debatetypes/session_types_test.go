package debatetypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationState_TurnCount(t *testing.T) {
	state := &ConversationState{}
	assert.Equal(t, 0, state.TurnCount())

	state.Turns = append(state.Turns, Turn{Role: RoleUser, Content: "hi"})
	assert.Equal(t, 1, state.TurnCount())
}

func TestConversationState_LastTurn(t *testing.T) {
	state := &ConversationState{}
	assert.Nil(t, state.LastTurn())

	state.Turns = []Turn{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "second"},
	}
	last := state.LastTurn()
	assert.Equal(t, "second", last.Content)
}

func TestConversationState_Clone(t *testing.T) {
	state := &ConversationState{
		Turns:              []Turn{{Role: RoleUser, Content: "original"}},
		CurrentPersonality: "debate_bro",
		Temperature:        0.8,
	}

	clone := state.Clone()
	clone.Turns[0].Content = "mutated"
	clone.CurrentPersonality = "other"

	assert.Equal(t, "original", state.Turns[0].Content)
	assert.Equal(t, "debate_bro", state.CurrentPersonality)
}

func TestClampTemperature(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"below minimum", -1.0, 0.0},
		{"at minimum", 0.0, 0.0},
		{"in range", 1.3, 1.3},
		{"at maximum", 2.0, 2.0},
		{"above maximum", 2.7, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampTemperature(tt.input))
		})
	}
}
