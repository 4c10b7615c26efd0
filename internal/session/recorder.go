package session

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/scoring"
)

// Selection carries the complete current selection state for one question.
// The recorder takes full state rather than deltas, so every recorded
// Answer fully replaces the previous one (idempotent retries).
//
// ChoiceIDs is used by the choice-based types; OrderedChoiceIDs is used by
// DRAG_AND_DROP and must list every choice id in the learner's order.
type Selection struct {
	ChoiceIDs        []uuid.UUID
	OrderedChoiceIDs []uuid.UUID
}

// Record converts a selection into the canonical Answer for q.
//   - single-select types: 0 or 1 choice replaces the whole set
//   - multi-select: the set as given, no ordering semantics
//   - ranked: the full permutation with contiguous 0-based order values
func Record(q model.SessionQuestion, sel Selection) (model.Answer, error) {
	ans := model.Answer{SessionQuestionID: q.ID}

	switch q.Type {
	case model.QuestionTypeMultipleChoiceSingle, model.QuestionTypeTrueFalse:
		if len(sel.ChoiceIDs) > 1 {
			return ans, fmt.Errorf("record %s: %d selections on single-select: %w",
				q.ID, len(sel.ChoiceIDs), scoring.ErrMalformedAnswer)
		}
		fallthrough

	case model.QuestionTypeMultipleChoiceMultiple:
		seen := make(map[uuid.UUID]bool, len(sel.ChoiceIDs))
		for _, id := range sel.ChoiceIDs {
			if q.ChoiceByID(id) == nil {
				return ans, fmt.Errorf("record %s: %w", q.ID, scoring.ErrUnknownChoice)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			ans.Choices = append(ans.Choices, model.AnswerChoice{ChoiceID: id})
		}
		return ans, nil

	case model.QuestionTypeDragAndDrop:
		return recordRanked(q, sel.OrderedChoiceIDs)

	default:
		return ans, fmt.Errorf("record %s: unsupported type %q: %w", q.ID, q.Type, scoring.ErrMalformedAnswer)
	}
}

// recordRanked recomputes the order field for every choice from the given
// permutation.
func recordRanked(q model.SessionQuestion, ordered []uuid.UUID) (model.Answer, error) {
	ans := model.Answer{SessionQuestionID: q.ID}

	if len(ordered) != len(q.Choices) {
		return ans, fmt.Errorf("record %s: ranked selection has %d of %d choices: %w",
			q.ID, len(ordered), len(q.Choices), scoring.ErrMalformedAnswer)
	}

	seen := make(map[uuid.UUID]bool, len(ordered))
	for pos, id := range ordered {
		if q.ChoiceByID(id) == nil {
			return ans, fmt.Errorf("record %s: %w", q.ID, scoring.ErrUnknownChoice)
		}
		if seen[id] {
			return ans, fmt.Errorf("record %s: duplicate choice in ranked selection: %w",
				q.ID, scoring.ErrMalformedAnswer)
		}
		seen[id] = true
		p := pos
		ans.Choices = append(ans.Choices, model.AnswerChoice{ChoiceID: id, Order: &p})
	}
	return ans, nil
}

// DefaultAnswer returns the implicit initial answer for q. For ranked
// questions that is the natural display order persisted as a full
// permutation; for every other type it is empty. Whether the ranked
// default counts as "answered" is a policy decision owned by the state
// machine, not the recorder.
func DefaultAnswer(q model.SessionQuestion) model.Answer {
	ans := model.Answer{SessionQuestionID: q.ID}
	if q.Type != model.QuestionTypeDragAndDrop {
		return ans
	}
	for i := range q.Choices {
		pos := i
		ans.Choices = append(ans.Choices, model.AnswerChoice{ChoiceID: q.Choices[i].ID, Order: &pos})
	}
	return ans
}

// Reset clears the answer for q. Non-ranked types become empty; ranked
// types return to the default natural order, because a ranked question
// always holds a full permutation.
func Reset(q model.SessionQuestion) model.Answer {
	return DefaultAnswer(q)
}

// ToggleChoice flips one choice in a multi-select answer and records the
// resulting full state.
func ToggleChoice(q model.SessionQuestion, prev model.Answer, choiceID uuid.UUID) (model.Answer, error) {
	if q.Type != model.QuestionTypeMultipleChoiceMultiple {
		return prev, fmt.Errorf("toggle %s: not a multi-select question: %w", q.ID, scoring.ErrMalformedAnswer)
	}

	var ids []uuid.UUID
	removed := false
	for _, c := range prev.Choices {
		if c.ChoiceID == choiceID {
			removed = true
			continue
		}
		ids = append(ids, c.ChoiceID)
	}
	if !removed {
		ids = append(ids, choiceID)
	}
	return Record(q, Selection{ChoiceIDs: ids})
}
