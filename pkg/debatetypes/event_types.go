// Package debatetypes defines the typed event stream emitted by the turn
// orchestrator. Callers consume a channel of TurnEvent values instead of
// registering nested callbacks; the channel is closed after the outcome of
// the whole operation has been emitted.
package debatetypes

// TurnEventKind identifies the kind of orchestrator event.
type TurnEventKind string

const (
	// EventTurnStarted announces that generation of turn Index has begun.
	EventTurnStarted TurnEventKind = "turn-started"
	// EventThinkingChunk carries a live preview of thinking text.
	EventThinkingChunk TurnEventKind = "thinking-chunk"
	// EventAnswerChunk carries a live preview of answer text.
	EventAnswerChunk TurnEventKind = "answer-chunk"
	// EventTurnComplete reports a committed turn along with sequence progress.
	EventTurnComplete TurnEventKind = "turn-complete"
	// EventTurnFailed reports a generation failure; nothing was committed for that turn.
	EventTurnFailed TurnEventKind = "turn-failed"
	// EventSequenceComplete terminates a multi-turn exchange that ran to the end.
	EventSequenceComplete TurnEventKind = "sequence-complete"
	// EventSequenceCancelled terminates a multi-turn exchange stopped at a turn boundary.
	EventSequenceCancelled TurnEventKind = "sequence-cancelled"
)

// TurnEvent is one event on the orchestrator's stream.
// Chunk events carry Content; turn-complete carries the committed Turn;
// sequence events carry the Completed/Requested progress pair; turn-failed
// carries the error.
type TurnEvent struct {
	Kind      TurnEventKind
	Content   string
	Index     int   // index of the turn this event belongs to, within the conversation
	Turn      *Turn // set on turn-complete
	Completed int   // committed turns so far in a sequence
	Requested int   // turns requested for the sequence (after clamping)
	Err       error // set on turn-failed
}

// Terminal reports whether this event ends a sequence stream. Single-turn
// streams end with turn-complete or turn-failed instead.
func (e TurnEvent) Terminal() bool {
	switch e.Kind {
	case EventTurnFailed, EventSequenceComplete, EventSequenceCancelled:
		return true
	default:
		return false
	}
}
