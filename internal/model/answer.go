package model

import "github.com/google/uuid"

// AnswerChoice is one selected choice within an Answer.
// Order is present only for DRAG_AND_DROP answers, where it holds the
// 0-based position the learner placed the choice at.
type AnswerChoice struct {
	ChoiceID uuid.UUID `json:"choice_id"`
	Order    *int      `json:"order,omitempty"`
}

// Answer is the learner's recorded response to one SessionQuestion.
//
// Shape invariants by question type:
//   - MULTIPLE_CHOICE_SINGLE / TRUE_FALSE: 0 or 1 choices
//   - MULTIPLE_CHOICE_MULTIPLE: 0..N choices
//   - DRAG_AND_DROP: exactly N choices, each with a unique Order in [0, N)
//
// Every recorded Answer is a complete replacement of the previous one for
// that question (full-replace semantics, required for idempotent retries).
type Answer struct {
	SessionQuestionID uuid.UUID      `json:"session_question_id"`
	TimeSpentSeconds  int            `json:"time_spent_seconds"`
	Choices           []AnswerChoice `json:"choices"`
	ToBeReviewed      bool           `json:"to_be_reviewed"`
}

// Answered reports whether the answer carries any selection.
func (a *Answer) Answered() bool {
	return len(a.Choices) > 0
}

// HasChoice reports whether the given choice id is part of the answer.
func (a *Answer) HasChoice(id uuid.UUID) bool {
	for i := range a.Choices {
		if a.Choices[i].ChoiceID == id {
			return true
		}
	}
	return false
}
