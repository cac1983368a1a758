package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debatecore/pkg/debatetypes"
)

func newTestMarkdown(t *testing.T) *MarkdownService {
	t.Helper()

	personalities := NewPersonalityService()
	require.NoError(t, personalities.Initialize())

	service := NewMarkdownService(personalities)
	require.NoError(t, service.Initialize())
	return service
}

func TestMarkdownService_Name(t *testing.T) {
	assert.Equal(t, "markdown", NewMarkdownService(nil).Name())
}

func TestMarkdownService_InitializeRequiresPersonalities(t *testing.T) {
	err := NewMarkdownService(nil).Initialize()
	assert.ErrorContains(t, err, "requires personality service")
}

func TestMarkdownService_ExportTranscriptEmpty(t *testing.T) {
	service := newTestMarkdown(t)

	markdown, err := service.ExportTranscript(&debatetypes.ConversationState{})
	require.NoError(t, err)
	assert.Contains(t, markdown, "# Debate Bot Chat History")
	assert.Contains(t, markdown, "*No messages in this conversation.*")
}

func TestMarkdownService_ExportTranscript(t *testing.T) {
	service := newTestMarkdown(t)

	state := &debatetypes.ConversationState{
		CurrentPersonality: "debate_bro",
		Turns: []debatetypes.Turn{
			{Role: debatetypes.RoleUser, Content: "Soup is a beverage."},
			{Role: debatetypes.RoleAssistant, Content: "Soup requires a spoon.", PersonalityID: "philosopher"},
			{Role: debatetypes.RoleAssistant, Content: "Broth disagrees.", PersonalityID: "contrarian"},
		},
	}

	markdown, err := service.ExportTranscript(state)
	require.NoError(t, err)

	assert.Contains(t, markdown, "## 👤 You")
	assert.Contains(t, markdown, "Soup is a beverage.")
	assert.Contains(t, markdown, "## 🧐 The Philosopher")
	assert.Contains(t, markdown, "## 😏 The Contrarian")

	// Alternating speakers keep their own labels, in conversation order.
	philosopherAt := strings.Index(markdown, "The Philosopher")
	contrarianAt := strings.Index(markdown, "The Contrarian")
	assert.Less(t, philosopherAt, contrarianAt)
}

func TestMarkdownService_ExportTranscriptThinking(t *testing.T) {
	service := newTestMarkdown(t)

	state := &debatetypes.ConversationState{
		CurrentPersonality: "debate_bro",
		ShowThoughts:       true,
		Turns: []debatetypes.Turn{
			{Role: debatetypes.RoleAssistant, Content: "Final answer.", PersonalityID: "debate_bro", Thinking: "internal deliberation"},
		},
	}

	markdown, err := service.ExportTranscript(state)
	require.NoError(t, err)
	assert.Contains(t, markdown, "<details>")
	assert.Contains(t, markdown, "internal deliberation")

	// Thinking stays out of the export when display is off.
	state.ShowThoughts = false
	markdown, err = service.ExportTranscript(state)
	require.NoError(t, err)
	assert.NotContains(t, markdown, "internal deliberation")
	assert.Contains(t, markdown, "Final answer.")
}

func TestMarkdownService_ExportTranscriptUnknownSpeaker(t *testing.T) {
	service := newTestMarkdown(t)

	state := &debatetypes.ConversationState{
		CurrentPersonality: "also_gone",
		Turns: []debatetypes.Turn{
			{Role: debatetypes.RoleAssistant, Content: "Who said this?", PersonalityID: "ghost", Unresolved: true},
		},
	}

	markdown, err := service.ExportTranscript(state)
	require.NoError(t, err)
	assert.Contains(t, markdown, "## 🤖 Bot")
	assert.Contains(t, markdown, "Who said this?")
}

func TestMarkdownService_ExportTranscriptNilState(t *testing.T) {
	service := newTestMarkdown(t)
	_, err := service.ExportTranscript(nil)
	assert.ErrorContains(t, err, "cannot be nil")
}

func TestMarkdownService_Render(t *testing.T) {
	service := newTestMarkdown(t)

	_, err := service.Render("")
	assert.ErrorContains(t, err, "cannot be empty")

	_, err = service.Render("   ")
	assert.ErrorContains(t, err, "cannot be empty")

	rendered, err := service.Render("# Hello World")
	require.NoError(t, err)
	assert.Contains(t, rendered, "Hello World")
}

func TestMarkdownService_RenderNotInitialized(t *testing.T) {
	service := NewMarkdownService(NewPersonalityService())
	_, err := service.Render("# Test")
	assert.ErrorContains(t, err, "not initialized")
}

func TestMarkdownService_RenderWithStyle(t *testing.T) {
	service := newTestMarkdown(t)

	rendered, err := service.RenderWithStyle("**bold claim**", "notty")
	require.NoError(t, err)
	assert.Contains(t, rendered, "bold claim")

	// Unknown styles fall back to the default renderer.
	rendered, err = service.RenderWithStyle("plain text", "no-such-style")
	require.NoError(t, err)
	assert.Contains(t, rendered, "plain text")
}
