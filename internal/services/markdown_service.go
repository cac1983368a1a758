package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"debatecore/internal/logger"
	"debatecore/pkg/debatetypes"
)

// MarkdownService renders conversation transcripts as markdown and formats
// markdown for terminal display using Glamour.
type MarkdownService struct {
	initialized   bool
	personalities *PersonalityService
	renderer      *glamour.TermRenderer
}

// NewMarkdownService creates a markdown service that labels assistant turns
// using the given personality registry.
func NewMarkdownService(personalities *PersonalityService) *MarkdownService {
	return &MarkdownService{personalities: personalities}
}

// Name returns the service name "markdown" for registration.
func (m *MarkdownService) Name() string {
	return "markdown"
}

// Initialize sets up the MarkdownService with a terminal renderer.
func (m *MarkdownService) Initialize() error {
	if m.personalities == nil {
		return fmt.Errorf("markdown service requires personality service")
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	m.renderer = renderer
	m.initialized = true

	logger.Debug("MarkdownService initialized successfully")
	return nil
}

// ExportTranscript formats the conversation as a markdown document. User
// turns are labeled "You"; assistant turns carry the speaking personality's
// emoji and name, falling back to a generic bot label when the personality
// cannot be resolved. Thinking traces are included as collapsed sections
// only when the state has thought display enabled.
func (m *MarkdownService) ExportTranscript(state *debatetypes.ConversationState) (string, error) {
	if !m.initialized {
		return "", fmt.Errorf("markdown service not initialized")
	}
	if state == nil {
		return "", fmt.Errorf("conversation state cannot be nil")
	}

	var b strings.Builder
	b.WriteString("# Debate Bot Chat History\n")
	fmt.Fprintf(&b, "*Exported on %s*\n\n", time.Now().Format("2006-01-02 at 15:04:05"))

	if len(state.Turns) == 0 {
		b.WriteString("*No messages in this conversation.*\n")
		return b.String(), nil
	}

	for _, turn := range state.Turns {
		if turn.Role == debatetypes.RoleUser {
			b.WriteString("## 👤 You\n")
		} else {
			emoji, name := m.speakerLabel(turn.PersonalityID, state.CurrentPersonality)
			fmt.Fprintf(&b, "## %s %s\n", emoji, name)
			if state.ShowThoughts && turn.Thinking != "" {
				b.WriteString("<details>\n<summary>Thinking</summary>\n\n")
				b.WriteString(turn.Thinking)
				b.WriteString("\n\n</details>\n\n")
			}
		}
		b.WriteString(turn.Content)
		b.WriteString("\n\n")
	}

	return b.String(), nil
}

// speakerLabel resolves the display emoji and name for an assistant turn,
// preferring the turn's own personality, then the conversation's current one.
func (m *MarkdownService) speakerLabel(personalityID, currentID string) (string, string) {
	for _, id := range []string{personalityID, currentID} {
		if id == "" {
			continue
		}
		if p, err := m.personalities.Resolve(id); err == nil {
			return p.Emoji, p.Name
		}
	}
	return "🤖", "Bot"
}

// Render renders markdown content to ANSI terminal output.
func (m *MarkdownService) Render(markdown string) (string, error) {
	if !m.initialized {
		return "", fmt.Errorf("markdown service not initialized")
	}
	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("markdown content cannot be empty")
	}

	rendered, err := m.renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return rendered, nil
}

// RenderWithStyle renders markdown with a named Glamour style, falling back
// to the default renderer when the style is unavailable.
func (m *MarkdownService) RenderWithStyle(markdown string, style string) (string, error) {
	if !m.initialized {
		return "", fmt.Errorf("markdown service not initialized")
	}
	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("markdown content cannot be empty")
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		logger.Debug("Failed to create renderer with style, falling back to default", "style", style, "error", err)
		return m.Render(markdown)
	}

	rendered, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown with style '%s': %w", style, err)
	}
	return rendered, nil
}
