package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionState enumerates the lifecycle states of an exam session.
type SessionState string

const (
	SessionStateNotStarted    SessionState = "NOT_STARTED"
	SessionStateInProgress    SessionState = "IN_PROGRESS"
	SessionStatePaused        SessionState = "PAUSED"
	SessionStateSubmitted     SessionState = "SUBMITTED"
	SessionStateCompleted     SessionState = "COMPLETED"
	SessionStatePendingReview SessionState = "PENDING_REVIEW"
	SessionStateReviewed      SessionState = "REVIEWED"
)

// IsFinal reports whether no further learner or grader mutation is allowed.
func (s SessionState) IsFinal() bool {
	return s == SessionStateCompleted || s == SessionStateReviewed
}

// ExamSession represents one learner's attempt at an exam.
//
// Questions is the frozen, ordered snapshot bound at session creation.
// The order may be randomized at creation time but never changes afterwards.
type ExamSession struct {
	ID               uuid.UUID         `json:"id"`
	ExamID           uuid.UUID         `json:"exam_id"`
	LearnerID        int               `json:"learner_id"`
	State            SessionState      `json:"state"`
	StartedAt        time.Time         `json:"started_at"`
	FinishedAt       *time.Time        `json:"finished_at,omitempty"`
	MaxTimeSeconds   *int              `json:"max_time_seconds,omitempty"`
	TimeSpentSeconds int               `json:"time_spent_seconds"`
	Questions        []SessionQuestion `json:"questions,omitempty"`
}

// Timed reports whether the session has a time limit.
func (s *ExamSession) Timed() bool {
	return s.MaxTimeSeconds != nil
}

// LearnerSessionView is the session as exposed to its learner: the frozen
// question snapshot with correctness stripped.
type LearnerSessionView struct {
	ID               uuid.UUID            `json:"id"`
	ExamID           uuid.UUID            `json:"exam_id"`
	State            SessionState         `json:"state"`
	StartedAt        time.Time            `json:"started_at"`
	FinishedAt       *time.Time           `json:"finished_at,omitempty"`
	MaxTimeSeconds   *int                 `json:"max_time_seconds,omitempty"`
	TimeSpentSeconds int                  `json:"time_spent_seconds"`
	Questions        []QuestionForLearner `json:"questions"`
}

// ForLearner strips grading data from the frozen snapshot.
func (s *ExamSession) ForLearner() LearnerSessionView {
	view := LearnerSessionView{
		ID:               s.ID,
		ExamID:           s.ExamID,
		State:            s.State,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.FinishedAt,
		MaxTimeSeconds:   s.MaxTimeSeconds,
		TimeSpentSeconds: s.TimeSpentSeconds,
		Questions:        make([]QuestionForLearner, len(s.Questions)),
	}
	for i, q := range s.Questions {
		choices := make([]ChoiceForLearner, len(q.Choices))
		for j, c := range q.Choices {
			choices[j] = ChoiceForLearner{ID: c.ID, Text: c.Text}
		}
		view.Questions[i] = QuestionForLearner{
			ID:        q.ID,
			Type:      q.Type,
			Text:      q.Text,
			MaxPoints: q.MaxPoints,
			Choices:   choices,
		}
	}
	return view
}

// SessionQuestion is a frozen copy of a question bound into a session.
// Choice set and correctness flags are fixed once the session starts;
// later edits to the question bank must not alter an in-progress session.
type SessionQuestion struct {
	ID         uuid.UUID       `json:"id"`
	QuestionID uuid.UUID       `json:"question_id"`
	Type       QuestionType    `json:"type"`
	Text       string          `json:"text"`
	MaxPoints  int             `json:"max_points"`
	Choices    []SessionChoice `json:"choices"`
}

// SessionChoice is one choice of a SessionQuestion.
// CorrectOrder is set only for DRAG_AND_DROP questions and holds the
// choice's position in the canonical correct ordering.
type SessionChoice struct {
	ID           uuid.UUID `json:"id"`
	Text         string    `json:"text"`
	Correct      bool      `json:"correct"`
	CorrectOrder *int      `json:"correct_order,omitempty"`
}

// ChoiceByID returns the choice with the given id, or nil.
func (q *SessionQuestion) ChoiceByID(id uuid.UUID) *SessionChoice {
	for i := range q.Choices {
		if q.Choices[i].ID == id {
			return &q.Choices[i]
		}
	}
	return nil
}

// RequiresManualGrading reports whether the question cannot be auto-graded.
// Every shipped type is auto-gradable today; the hook exists so a future
// free-text type routes its session into PENDING_REVIEW.
func (q *SessionQuestion) RequiresManualGrading() bool {
	switch q.Type {
	case QuestionTypeMultipleChoiceSingle,
		QuestionTypeMultipleChoiceMultiple,
		QuestionTypeTrueFalse,
		QuestionTypeDragAndDrop:
		return false
	default:
		return true
	}
}

// StartSessionRequest is the payload for starting an exam attempt.
type StartSessionRequest struct {
	ExamID uuid.UUID `json:"exam_id" binding:"required"`
}
