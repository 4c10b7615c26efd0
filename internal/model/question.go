package model

import "github.com/google/uuid"

// QuestionType enumerates the supported answer shapes.
type QuestionType string

const (
	QuestionTypeMultipleChoiceSingle   QuestionType = "MULTIPLE_CHOICE_SINGLE"
	QuestionTypeMultipleChoiceMultiple QuestionType = "MULTIPLE_CHOICE_MULTIPLE"
	QuestionTypeTrueFalse              QuestionType = "TRUE_FALSE"
	QuestionTypeDragAndDrop            QuestionType = "DRAG_AND_DROP"
)

// Question is a question-bank entry as consumed from the authoring layer.
// The session runtime only reads these; editing lives in the CRUD layer.
type Question struct {
	ID        uuid.UUID        `json:"id"`
	ExamID    uuid.UUID        `json:"exam_id"`
	Type      QuestionType     `json:"type"`
	Text      string           `json:"text"`
	MaxPoints int              `json:"max_points"`
	OrderNum  int              `json:"order_num"`
	Choices   []QuestionChoice `json:"choices"`
}

// AddQuestionRequest is the authoring payload for a new question.
type AddQuestionRequest struct {
	Type      string             `json:"type" binding:"required,oneof=MULTIPLE_CHOICE_SINGLE MULTIPLE_CHOICE_MULTIPLE TRUE_FALSE DRAG_AND_DROP"`
	Text      string             `json:"text" binding:"required,min=1"`
	MaxPoints int                `json:"max_points" binding:"required,min=1"`
	OrderNum  int                `json:"order_num" binding:"min=0"`
	Choices   []AddChoiceRequest `json:"choices" binding:"required,min=2,dive"`
}

// AddChoiceRequest is one choice of an AddQuestionRequest.
type AddChoiceRequest struct {
	Text         string `json:"text" binding:"required,min=1"`
	Correct      bool   `json:"correct"`
	CorrectOrder *int   `json:"correct_order" binding:"omitempty,min=0"`
}

// QuestionChoice is one choice of a bank question.
// CorrectOrder is the canonical position for DRAG_AND_DROP questions.
type QuestionChoice struct {
	ID           uuid.UUID `json:"id"`
	QuestionID   uuid.UUID `json:"question_id"`
	Text         string    `json:"text"`
	Correct      bool      `json:"correct"`
	CorrectOrder *int      `json:"correct_order,omitempty"`
	OrderNum     int       `json:"order_num"`
}
