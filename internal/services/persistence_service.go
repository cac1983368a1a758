package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"debatecore/internal/logger"
	"debatecore/internal/testutils"
	"debatecore/pkg/debatetypes"
)

// exportedFromTag identifies this engine as the source interface in saved documents.
const exportedFromTag = "debatecore"

// PersistenceService serializes conversation state to the portable document
// format and reconstructs state from documents that may come from another
// interface or an older schema. Loading validates structural invariants,
// repairs recoverable inconsistencies, and reports each repair as a
// diagnostic. Only an unparseable document is an error.
type PersistenceService struct {
	initialized bool

	session       *SessionService
	personalities *PersonalityService
}

// NewPersistenceService creates a persistence service bound to the session
// it replaces state on and the personality registry it resolves against.
func NewPersistenceService(session *SessionService, personalities *PersonalityService) *PersistenceService {
	return &PersistenceService{
		session:       session,
		personalities: personalities,
	}
}

// Name returns the service name "persistence" for registration.
func (p *PersistenceService) Name() string {
	return "persistence"
}

// Initialize sets up the PersistenceService for operation.
func (p *PersistenceService) Initialize() error {
	if p.session == nil || p.personalities == nil {
		return fmt.Errorf("persistence service requires session and personality services")
	}
	p.initialized = true
	return nil
}

// Serialize encodes a conversation state as an indented JSON document.
// Turns are decomposed into three parallel arrays: message texts with
// explicit roles, thinking traces, and originating personality identifiers.
func (p *PersistenceService) Serialize(state *debatetypes.ConversationState) ([]byte, error) {
	if !p.initialized {
		return nil, fmt.Errorf("persistence service not initialized")
	}

	doc := debatetypes.StateDocument{
		Version:              debatetypes.DocumentVersion,
		Timestamp:            testutils.GetCurrentTime(p.session).Format(time.RFC3339),
		CurrentPersonality:   state.CurrentPersonality,
		Temperature:          state.Temperature,
		ShowThoughts:         state.ShowThoughts,
		Messages:             make([]debatetypes.DocumentMessage, 0, len(state.Turns)),
		Thoughts:             make([]string, 0, len(state.Turns)),
		MessagePersonalities: make([]string, 0, len(state.Turns)),
	}

	userCount := 0
	for _, turn := range state.Turns {
		doc.Messages = append(doc.Messages, debatetypes.DocumentMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
		doc.Thoughts = append(doc.Thoughts, turn.Thinking)
		doc.MessagePersonalities = append(doc.MessagePersonalities, turn.PersonalityID)
		if turn.Role == debatetypes.RoleUser {
			userCount++
		}
	}

	doc.Metadata = debatetypes.DocumentMetadata{
		ExportedFrom:      exportedFromTag,
		MessageCount:      len(state.Turns),
		UserMessages:      userCount,
		AssistantMessages: len(state.Turns) - userCount,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state document: %w", err)
	}
	return data, nil
}

// Deserialize reconstructs a conversation state from a document, repairing
// recoverable inconsistencies and reporting each repair. It returns an error
// only for a fatal format problem; every returned state is fully repaired.
func (p *PersistenceService) Deserialize(data []byte) (*debatetypes.ConversationState, []debatetypes.Diagnostic, error) {
	if !p.initialized {
		return nil, nil, fmt.Errorf("persistence service not initialized")
	}

	var doc debatetypes.StateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, &debatetypes.FormatError{Reason: "document is not a JSON object of the expected shape", Err: err}
	}
	if doc.Version == "" {
		return nil, nil, &debatetypes.FormatError{Reason: "missing version tag"}
	}

	var diagnostics []debatetypes.Diagnostic

	// Absent auxiliary arrays are synthesized, not rejected: a document saved
	// without thinking traces is still a valid conversation.
	if doc.Thoughts == nil && len(doc.Messages) > 0 {
		doc.Thoughts = make([]string, len(doc.Messages))
		diagnostics = append(diagnostics, debatetypes.Diagnostic{
			Code:    debatetypes.DiagMissingThoughts,
			Message: fmt.Sprintf("thoughts array missing; synthesized %d empty entries", len(doc.Messages)),
		})
	}
	if doc.MessagePersonalities == nil && len(doc.Messages) > 0 {
		doc.MessagePersonalities = make([]string, len(doc.Messages))
		diagnostics = append(diagnostics, debatetypes.Diagnostic{
			Code:    debatetypes.DiagMissingPersonalities,
			Message: fmt.Sprintf("message_personalities array missing; synthesized %d empty entries", len(doc.Messages)),
		})
	}

	// Length disagreement is repaired by truncating to the shortest array.
	// Message content is never fabricated to pad a short array.
	if diag, truncated := p.truncateParallelArrays(&doc); truncated {
		diagnostics = append(diagnostics, diag)
	}

	state, personalityDiags := p.reconstructState(&doc)
	diagnostics = append(diagnostics, personalityDiags...)

	if doc.Temperature < debatetypes.MinTemperature || doc.Temperature > debatetypes.MaxTemperature {
		clamped := debatetypes.ClampTemperature(doc.Temperature)
		diagnostics = append(diagnostics, debatetypes.Diagnostic{
			Code:    debatetypes.DiagTemperatureClamped,
			Message: fmt.Sprintf("temperature %g out of range; clamped to %g", doc.Temperature, clamped),
		})
		state.Temperature = clamped
	}

	for _, d := range diagnostics {
		logger.Warn("State document repaired", "code", string(d.Code), "detail", d.Message)
	}

	return state, diagnostics, nil
}

// truncateParallelArrays trims messages, thoughts, and message personalities
// to their common shortest length and reports how many trailing entries were
// dropped from which arrays.
func (p *PersistenceService) truncateParallelArrays(doc *debatetypes.StateDocument) (debatetypes.Diagnostic, bool) {
	minLen := len(doc.Messages)
	if len(doc.Thoughts) < minLen {
		minLen = len(doc.Thoughts)
	}
	if len(doc.MessagePersonalities) < minLen {
		minLen = len(doc.MessagePersonalities)
	}

	var dropped []string
	if n := len(doc.Messages) - minLen; n > 0 {
		dropped = append(dropped, fmt.Sprintf("%d from messages", n))
	}
	if n := len(doc.Thoughts) - minLen; n > 0 {
		dropped = append(dropped, fmt.Sprintf("%d from thoughts", n))
	}
	if n := len(doc.MessagePersonalities) - minLen; n > 0 {
		dropped = append(dropped, fmt.Sprintf("%d from message_personalities", n))
	}

	if len(dropped) == 0 {
		return debatetypes.Diagnostic{}, false
	}

	doc.Messages = doc.Messages[:minLen]
	doc.Thoughts = doc.Thoughts[:minLen]
	doc.MessagePersonalities = doc.MessagePersonalities[:minLen]

	return debatetypes.Diagnostic{
		Code: debatetypes.DiagTruncatedArrays,
		Message: fmt.Sprintf("parallel arrays disagreed in length; truncated to %d entries, dropped %s",
			minLen, strings.Join(dropped, ", ")),
	}, true
}

// reconstructState zips the repaired parallel arrays back into turns and
// resolves originating personalities. Unresolvable identifiers are retained
// on their turns, flagged, and reported once per identifier.
func (p *PersistenceService) reconstructState(doc *debatetypes.StateDocument) (*debatetypes.ConversationState, []debatetypes.Diagnostic) {
	now := testutils.GetCurrentTime(p.session)
	savedAt := now
	if doc.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, doc.Timestamp); err == nil {
			savedAt = parsed
		}
	}

	state := &debatetypes.ConversationState{
		Turns:              make([]debatetypes.Turn, 0, len(doc.Messages)),
		CurrentPersonality: doc.CurrentPersonality,
		Temperature:        doc.Temperature,
		ShowThoughts:       doc.ShowThoughts,
		CreatedAt:          savedAt,
		UpdatedAt:          now,
	}

	unresolved := make(map[string]bool)

	for i, msg := range doc.Messages {
		turn := debatetypes.Turn{
			ID:        testutils.GenerateUUID(p.session),
			Role:      normalizeRole(msg.Role),
			Content:   msg.Content,
			Thinking:  doc.Thoughts[i],
			Timestamp: savedAt,
		}

		if turn.Role == debatetypes.RoleAssistant {
			turn.PersonalityID = doc.MessagePersonalities[i]
			if turn.PersonalityID != "" {
				if _, err := p.personalities.Resolve(turn.PersonalityID); err != nil {
					turn.Unresolved = true
					unresolved[turn.PersonalityID] = true
				}
			}
		}

		state.Turns = append(state.Turns, turn)
	}

	if state.CurrentPersonality != "" {
		if _, err := p.personalities.Resolve(state.CurrentPersonality); err != nil {
			unresolved[state.CurrentPersonality] = true
			state.CurrentPersonality = p.personalities.FallbackID()
		}
	}

	// One aggregated diagnostic per missing identifier, not one per turn.
	ids := make([]string, 0, len(unresolved))
	for id := range unresolved {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	diagnostics := make([]debatetypes.Diagnostic, 0, len(ids))
	for _, id := range ids {
		diagnostics = append(diagnostics, debatetypes.Diagnostic{
			Code: debatetypes.DiagUnresolvedPersonality,
			Message: fmt.Sprintf("personality '%s' is not in the registry; affected turns are flagged, fallback '%s' is available",
				id, p.personalities.FallbackID()),
		})
	}

	return state, diagnostics
}

// normalizeRole maps document roles onto the engine's two roles. Documents
// written by Gemini-facing tools use "model" for assistant turns.
func normalizeRole(role string) string {
	switch role {
	case debatetypes.RoleAssistant, "model":
		return debatetypes.RoleAssistant
	default:
		return debatetypes.RoleUser
	}
}

// SaveFile serializes the current session state to a file.
func (p *PersistenceService) SaveFile(path string) error {
	if !p.initialized {
		return fmt.Errorf("persistence service not initialized")
	}

	data, err := p.Serialize(p.session.State())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	logger.Debug("State saved", "path", path, "turns", p.session.State().TurnCount())
	return nil
}

// LoadFile loads, repairs, and installs a conversation state from a file.
// The session state is replaced wholesale; a load requested while a
// generation is in flight is rejected with ErrBusy and mutates nothing.
func (p *PersistenceService) LoadFile(path string) ([]debatetypes.Diagnostic, error) {
	if !p.initialized {
		return nil, fmt.Errorf("persistence service not initialized")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	state, diagnostics, err := p.Deserialize(data)
	if err != nil {
		return nil, err
	}

	if err := p.session.Replace(state); err != nil {
		return nil, err
	}

	logger.Debug("State loaded", "path", path, "turns", state.TurnCount(), "repairs", len(diagnostics))
	return diagnostics, nil
}
