// Package scoring turns raw answers into points, aggregate scores, and
// pass/fail status. Grading is deterministic: scoring the same question
// and answer twice always yields the same result.
package scoring

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
)

// Data-integrity errors. Scoring rejects corrupted input instead of
// silently assigning zero, so broken sessions are detectable.
var (
	ErrNoChoices       = errors.New("question has no choices")
	ErrUnknownChoice   = errors.New("answer references a choice not in the question")
	ErrMalformedAnswer = errors.New("answer shape is invalid for the question type")
)

// IsDataIntegrity reports whether err belongs to the data-integrity class.
func IsDataIntegrity(err error) bool {
	return errors.Is(err, ErrNoChoices) ||
		errors.Is(err, ErrUnknownChoice) ||
		errors.Is(err, ErrMalformedAnswer)
}

// GradeQuestion computes the points earned for one question.
// A nil or empty answer earns 0 points; that is a legitimate unanswered
// question, not an error. Questions that require manual grading earn a
// zero baseline and are scored during review. Malformed answers and
// unknown choice ids are rejected.
func GradeQuestion(q model.SessionQuestion, ans *model.Answer) (model.ScoreResult, error) {
	res := model.ScoreResult{
		SessionQuestionID: q.ID,
		MaxPoints:         q.MaxPoints,
		Correctness:       model.CorrectnessIncorrect,
	}

	if q.RequiresManualGrading() {
		// Manual types carry no auto-gradable choice set. They earn a
		// zero baseline here and get their points during review.
		return res, nil
	}

	if len(q.Choices) == 0 {
		return res, fmt.Errorf("question %s: %w", q.ID, ErrNoChoices)
	}

	if ans != nil {
		for _, ac := range ans.Choices {
			if q.ChoiceByID(ac.ChoiceID) == nil {
				return res, fmt.Errorf("question %s, choice %s: %w", q.ID, ac.ChoiceID, ErrUnknownChoice)
			}
		}
	}

	if ans == nil || !ans.Answered() {
		if q.Type == model.QuestionTypeDragAndDrop && ans != nil {
			// A ranked answer always carries a full permutation; an empty
			// one slipped past the recorder.
			return res, fmt.Errorf("question %s: %w", q.ID, ErrMalformedAnswer)
		}
		return res, nil
	}

	correct, err := answerCorrect(q, ans)
	if err != nil {
		return res, err
	}
	if correct {
		res.PointsEarned = q.MaxPoints
	}
	res.Correctness = model.CorrectnessFor(res.PointsEarned, q.MaxPoints)
	return res, nil
}

func answerCorrect(q model.SessionQuestion, ans *model.Answer) (bool, error) {
	switch q.Type {
	case model.QuestionTypeMultipleChoiceSingle, model.QuestionTypeTrueFalse:
		if len(ans.Choices) != 1 {
			return false, fmt.Errorf("question %s: single-select with %d choices: %w",
				q.ID, len(ans.Choices), ErrMalformedAnswer)
		}
		return q.ChoiceByID(ans.Choices[0].ChoiceID).Correct, nil

	case model.QuestionTypeMultipleChoiceMultiple:
		return multiChoiceExact(q, ans), nil

	case model.QuestionTypeDragAndDrop:
		return dragAndDropExact(q, ans)

	default:
		return false, fmt.Errorf("question %s: unsupported type %q: %w", q.ID, q.Type, ErrMalformedAnswer)
	}
}

// multiChoiceExact applies the all-or-nothing rule: the selected set must
// equal the correct set exactly. There is no per-choice partial credit, so
// PARTIALLY_CORRECT is unreachable for this type under current rules.
func multiChoiceExact(q model.SessionQuestion, ans *model.Answer) bool {
	selected := make(map[uuid.UUID]bool, len(ans.Choices))
	for _, ac := range ans.Choices {
		selected[ac.ChoiceID] = true
	}

	for _, ch := range q.Choices {
		if ch.Correct != selected[ch.ID] {
			return false
		}
	}
	return true
}

// dragAndDropExact requires the submitted order to match the canonical
// order position for position.
func dragAndDropExact(q model.SessionQuestion, ans *model.Answer) (bool, error) {
	if len(ans.Choices) != len(q.Choices) {
		return false, fmt.Errorf("question %s: ranked answer with %d of %d choices: %w",
			q.ID, len(ans.Choices), len(q.Choices), ErrMalformedAnswer)
	}

	seen := make(map[int]bool, len(ans.Choices))
	match := true
	for _, ac := range ans.Choices {
		if ac.Order == nil || *ac.Order < 0 || *ac.Order >= len(q.Choices) || seen[*ac.Order] {
			return false, fmt.Errorf("question %s: ranked answer order not a permutation: %w",
				q.ID, ErrMalformedAnswer)
		}
		seen[*ac.Order] = true

		ch := q.ChoiceByID(ac.ChoiceID)
		if ch.CorrectOrder == nil {
			return false, fmt.Errorf("question %s, choice %s: missing canonical order: %w",
				q.ID, ac.ChoiceID, ErrMalformedAnswer)
		}
		if *ch.CorrectOrder != *ac.Order {
			match = false
		}
	}
	return match, nil
}

// GradeSession grades every question of a session and aggregates the
// result. answers is keyed by SessionQuestion id; missing entries count
// as unanswered.
func GradeSession(sess *model.ExamSession, answers map[uuid.UUID]model.Answer, passingScore float64) (*model.ExamSessionResult, error) {
	results := make([]model.ScoreResult, 0, len(sess.Questions))
	for _, q := range sess.Questions {
		var ans *model.Answer
		if a, ok := answers[q.ID]; ok {
			ans = &a
		}
		r, err := GradeQuestion(q, ans)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return Aggregate(sess.ID, results, passingScore), nil
}

// Aggregate folds per-question results into session totals. Percentage is
// 0 when nothing is scorable.
func Aggregate(sessionID uuid.UUID, results []model.ScoreResult, passingScore float64) *model.ExamSessionResult {
	agg := &model.ExamSessionResult{
		SessionID: sessionID,
		Questions: results,
		Passing:   model.PassingFlagFailed,
	}
	for _, r := range results {
		agg.TotalScore += r.PointsEarned
		agg.TotalPossible += r.MaxPoints
	}
	if agg.TotalPossible > 0 {
		agg.Percentage = float64(agg.TotalScore) / float64(agg.TotalPossible) * 100
	}
	if agg.Percentage >= passingScore {
		agg.Passing = model.PassingFlagPassed
	}
	return agg
}
