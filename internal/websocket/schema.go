package websocket

import "github.com/google/uuid"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionReset  Action = "reset"
	ActionFlag   Action = "flag"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionSubmit Action = "submit"
	ActionState  Action = "state"
	ActionPing   Action = "ping"
)

// RequestPayload carries every client action; unused fields stay zero.
type RequestPayload struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	// ChoiceIDs is the full selection for single/multi/true-false answers.
	ChoiceIDs []uuid.UUID `json:"choice_ids,omitempty"`
	// OrderedChoiceIDs is the full permutation for drag-and-drop answers.
	OrderedChoiceIDs []uuid.UUID `json:"ordered_choice_ids,omitempty"`
	Flagged          bool        `json:"flagged,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventTick      Event = "tick"
	EventState     Event = "state"
	EventPaused    Event = "paused"
	EventResumed   Event = "resumed"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

// Envelope is the server → client message frame.
type Envelope struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// TickData is pushed every clock tick: remaining seconds for timed
// sessions, elapsed seconds otherwise.
type TickData struct {
	Seconds   int  `json:"seconds"`
	CountDown bool `json:"count_down"`
}

// SavedData acknowledges a recorded answer or flag change.
type SavedData struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answered   bool      `json:"answered"`
}

// SubmittedData reports the outcome of a submission. Result is omitted
// while the session awaits manual review or the exam hides scores.
type SubmittedData struct {
	State  string      `json:"state"`
	Result interface{} `json:"result,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
