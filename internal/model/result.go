package model

import "github.com/google/uuid"

// Correctness classifies one graded question.
type Correctness string

const (
	CorrectnessCorrect          Correctness = "CORRECT"
	CorrectnessPartiallyCorrect Correctness = "PARTIALLY_CORRECT"
	CorrectnessIncorrect        Correctness = "INCORRECT"
)

// CorrectnessFor derives the correctness class from earned vs maximum points.
func CorrectnessFor(pointsEarned, maxPoints int) Correctness {
	switch {
	case pointsEarned >= maxPoints:
		return CorrectnessCorrect
	case pointsEarned > 0:
		return CorrectnessPartiallyCorrect
	default:
		return CorrectnessIncorrect
	}
}

// ScoreResult is the grading outcome for one SessionQuestion.
type ScoreResult struct {
	SessionQuestionID uuid.UUID   `json:"session_question_id"`
	PointsEarned      int         `json:"points_earned"`
	MaxPoints         int         `json:"max_points"`
	Correctness       Correctness `json:"correctness"`
}

// PassingFlag is the aggregate pass/fail outcome of a session.
type PassingFlag string

const (
	PassingFlagPassed PassingFlag = "PASSED"
	PassingFlagFailed PassingFlag = "FAILED"
)

// ExamSessionResult is the aggregate grading outcome of a session.
// Created once on submit; score fields stay mutable while the session is
// PENDING_REVIEW and freeze when it becomes COMPLETED or REVIEWED.
type ExamSessionResult struct {
	SessionID     uuid.UUID     `json:"session_id"`
	TotalScore    int           `json:"total_score"`
	TotalPossible int           `json:"total_possible"`
	Percentage    float64       `json:"percentage"`
	Passing       PassingFlag   `json:"passing"`
	Questions     []ScoreResult `json:"questions"`
}
