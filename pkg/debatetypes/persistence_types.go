// Package debatetypes defines the storage document shape and repair
// diagnostics for the debate engine's persistence format.
package debatetypes

// DocumentVersion is the schema version tag written by the serializer.
const DocumentVersion = "1.0"

// DocumentMessage is one persisted message. The role is stored explicitly
// rather than inferred from list position, so hand-edited documents cannot
// desynchronize role from content.
type DocumentMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DocumentMetadata carries descriptive metadata about a saved conversation.
type DocumentMetadata struct {
	ExportedFrom      string `json:"exported_from"`
	MessageCount      int    `json:"message_count"`
	UserMessages      int    `json:"user_messages"`
	AssistantMessages int    `json:"assistant_messages"`
}

// StateDocument is the portable on-disk representation of a conversation.
// Messages, thoughts, and message personalities are three parallel arrays;
// consumers reconstruct turns by zipping them by index. Empty strings stand
// for absent thoughts and absent personality identifiers.
type StateDocument struct {
	Version              string            `json:"version"`
	Timestamp            string            `json:"timestamp"`
	CurrentPersonality   string            `json:"current_personality"`
	Temperature          float64           `json:"temperature"`
	ShowThoughts         bool              `json:"show_thoughts"`
	Messages             []DocumentMessage `json:"messages"`
	Thoughts             []string          `json:"thoughts"`
	MessagePersonalities []string          `json:"message_personalities"`
	Metadata             DocumentMetadata  `json:"metadata"`
}

// DiagnosticCode identifies a class of repairable inconsistency.
type DiagnosticCode string

const (
	// DiagTruncatedArrays reports parallel arrays truncated to the shortest length.
	DiagTruncatedArrays DiagnosticCode = "truncated_parallel_arrays"
	// DiagTemperatureClamped reports an out-of-range temperature coerced to a bound.
	DiagTemperatureClamped DiagnosticCode = "temperature_clamped"
	// DiagUnresolvedPersonality reports a personality identifier that did not resolve.
	DiagUnresolvedPersonality DiagnosticCode = "unresolved_personality"
	// DiagMissingThoughts reports an absent thoughts array, synthesized empty.
	DiagMissingThoughts DiagnosticCode = "missing_thoughts"
	// DiagMissingPersonalities reports an absent message_personalities array, synthesized empty.
	DiagMissingPersonalities DiagnosticCode = "missing_personalities"
)

// Diagnostic describes one repair the persistence engine performed while
// loading a document. Diagnostics are warnings, never errors: the returned
// state is already repaired.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Message string         `json:"message"`
}
