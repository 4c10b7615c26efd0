package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam definition.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam is an exam definition as consumed from the authoring layer.
type Exam struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	AuthorID     int        `json:"author_id"`
	PassingScore float64    `json:"passing_score"`
	// MaxTimeSeconds is nil for untimed exams.
	MaxTimeSeconds         *int       `json:"max_time_seconds,omitempty"`
	RandomizeQuestions     bool       `json:"randomize_questions"`
	ShowResultsImmediately bool       `json:"show_results_immediately"`
	// AllowEmptySubmission permits an explicit submit with zero answered
	// questions. Auto-submit on timeout ignores this gate.
	AllowEmptySubmission bool       `json:"allow_empty_submission"`
	Status               ExamStatus `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// CreateExamRequest is the authoring payload for a new exam.
type CreateExamRequest struct {
	Title                  string  `json:"title" binding:"required,min=3,max=255"`
	PassingScore           float64 `json:"passing_score" binding:"min=0,max=100"`
	MaxTimeSeconds         *int    `json:"max_time_seconds" binding:"omitempty,min=30"`
	RandomizeQuestions     bool    `json:"randomize_questions"`
	ShowResultsImmediately bool    `json:"show_results_immediately"`
	AllowEmptySubmission   bool    `json:"allow_empty_submission"`
}

// ExamPayload is the Redis-cached exam sent to learners (correctness stripped).
type ExamPayload struct {
	ExamID         uuid.UUID            `json:"exam_id"`
	Title          string               `json:"title"`
	MaxTimeSeconds *int                 `json:"max_time_seconds,omitempty"`
	Questions      []QuestionForLearner `json:"questions"`
}

// QuestionForLearner is a question without correctness flags.
type QuestionForLearner struct {
	ID        uuid.UUID          `json:"id"`
	Type      QuestionType       `json:"type"`
	Text      string             `json:"text"`
	MaxPoints int                `json:"max_points"`
	Choices   []ChoiceForLearner `json:"choices"`
}

// ChoiceForLearner is a choice without its correctness flag.
type ChoiceForLearner struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}
