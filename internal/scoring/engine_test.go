package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func choiceIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func answerOf(qID uuid.UUID, ids ...uuid.UUID) *model.Answer {
	a := &model.Answer{SessionQuestionID: qID}
	for _, id := range ids {
		a.Choices = append(a.Choices, model.AnswerChoice{ChoiceID: id})
	}
	return a
}

func rankedAnswer(qID uuid.UUID, ordered ...uuid.UUID) *model.Answer {
	a := &model.Answer{SessionQuestionID: qID}
	for i, id := range ordered {
		pos := i
		a.Choices = append(a.Choices, model.AnswerChoice{ChoiceID: id, Order: &pos})
	}
	return a
}

func TestGradeSingleChoice(t *testing.T) {
	ids := choiceIDs(3)
	q := model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionTypeMultipleChoiceSingle,
		MaxPoints: 5,
		Choices: []model.SessionChoice{
			{ID: ids[0], Correct: true},
			{ID: ids[1]},
			{ID: ids[2]},
		},
	}

	tests := []struct {
		name   string
		answer *model.Answer
		points int
		class  model.Correctness
	}{
		{"correct choice", answerOf(q.ID, ids[0]), 5, model.CorrectnessCorrect},
		{"wrong choice", answerOf(q.ID, ids[1]), 0, model.CorrectnessIncorrect},
		{"unanswered", nil, 0, model.CorrectnessIncorrect},
		{"empty answer", answerOf(q.ID), 0, model.CorrectnessIncorrect},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := GradeQuestion(q, tc.answer)
			require.NoError(t, err)
			assert.Equal(t, tc.points, res.PointsEarned)
			assert.Equal(t, tc.class, res.Correctness)
		})
	}
}

func TestGradeMultiChoiceAllOrNothing(t *testing.T) {
	// Choices: A (correct), B (correct), C (incorrect).
	ids := choiceIDs(3)
	q := model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionTypeMultipleChoiceMultiple,
		MaxPoints: 4,
		Choices: []model.SessionChoice{
			{ID: ids[0], Correct: true},
			{ID: ids[1], Correct: true},
			{ID: ids[2]},
		},
	}

	tests := []struct {
		name   string
		picked []uuid.UUID
		points int
	}{
		{"exact set", []uuid.UUID{ids[0], ids[1]}, 4},
		{"exact set reordered", []uuid.UUID{ids[1], ids[0]}, 4},
		{"missing one correct", []uuid.UUID{ids[0]}, 0},
		{"all selected", []uuid.UUID{ids[0], ids[1], ids[2]}, 0},
		{"correct plus incorrect", []uuid.UUID{ids[0], ids[2]}, 0},
		{"only incorrect", []uuid.UUID{ids[2]}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := GradeQuestion(q, answerOf(q.ID, tc.picked...))
			require.NoError(t, err)
			assert.Equal(t, tc.points, res.PointsEarned)
		})
	}
}

func TestGradeDragAndDropExactOrder(t *testing.T) {
	// Correct order is [X, Y, Z].
	ids := choiceIDs(3)
	q := model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionTypeDragAndDrop,
		MaxPoints: 6,
		Choices: []model.SessionChoice{
			{ID: ids[0], CorrectOrder: intPtr(0)},
			{ID: ids[1], CorrectOrder: intPtr(1)},
			{ID: ids[2], CorrectOrder: intPtr(2)},
		},
	}

	res, err := GradeQuestion(q, rankedAnswer(q.ID, ids[0], ids[1], ids[2]))
	require.NoError(t, err)
	assert.Equal(t, 6, res.PointsEarned)

	res, err = GradeQuestion(q, rankedAnswer(q.ID, ids[1], ids[0], ids[2]))
	require.NoError(t, err)
	assert.Equal(t, 0, res.PointsEarned)
}

func TestGradeDataIntegrityErrors(t *testing.T) {
	ids := choiceIDs(2)
	single := model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionTypeMultipleChoiceSingle,
		MaxPoints: 5,
		Choices:   []model.SessionChoice{{ID: ids[0], Correct: true}, {ID: ids[1]}},
	}

	t.Run("unknown choice id", func(t *testing.T) {
		_, err := GradeQuestion(single, answerOf(single.ID, uuid.New()))
		require.ErrorIs(t, err, ErrUnknownChoice)
		assert.True(t, IsDataIntegrity(err))
	})

	t.Run("zero choices", func(t *testing.T) {
		empty := model.SessionQuestion{ID: uuid.New(), Type: model.QuestionTypeTrueFalse, MaxPoints: 1}
		_, err := GradeQuestion(empty, nil)
		require.ErrorIs(t, err, ErrNoChoices)
		assert.True(t, IsDataIntegrity(err))
	})

	t.Run("two picks on single-select", func(t *testing.T) {
		_, err := GradeQuestion(single, answerOf(single.ID, ids[0], ids[1]))
		assert.ErrorIs(t, err, ErrMalformedAnswer)
	})

	t.Run("ranked partial answer", func(t *testing.T) {
		ranked := model.SessionQuestion{
			ID:        uuid.New(),
			Type:      model.QuestionTypeDragAndDrop,
			MaxPoints: 2,
			Choices: []model.SessionChoice{
				{ID: ids[0], CorrectOrder: intPtr(0)},
				{ID: ids[1], CorrectOrder: intPtr(1)},
			},
		}
		_, err := GradeQuestion(ranked, rankedAnswer(ranked.ID, ids[0]))
		assert.ErrorIs(t, err, ErrMalformedAnswer)
	})
}

func TestGradeManualTypeZeroBaseline(t *testing.T) {
	// Manual types have no choice set; grading yields a zero baseline
	// instead of a data-integrity error, leaving the points to review.
	q := model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionType("FREE_TEXT"),
		MaxPoints: 10,
	}

	res, err := GradeQuestion(q, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.PointsEarned)
	assert.Equal(t, 10, res.MaxPoints)
	assert.Equal(t, model.CorrectnessIncorrect, res.Correctness)
}

func TestGradeIdempotent(t *testing.T) {
	ids := choiceIDs(2)
	q := model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionTypeTrueFalse,
		MaxPoints: 5,
		Choices:   []model.SessionChoice{{ID: ids[0], Correct: true}, {ID: ids[1]}},
	}
	ans := answerOf(q.ID, ids[0])

	first, err := GradeQuestion(q, ans)
	require.NoError(t, err)
	second, err := GradeQuestion(q, ans)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGradeSessionAggregateBoundary(t *testing.T) {
	// Two questions worth 5 each; learner gets exactly one right.
	// 50% against a passing score of 50 passes (boundary is inclusive).
	mcIDs := choiceIDs(2)
	tfIDs := choiceIDs(2)
	sess := &model.ExamSession{
		ID: uuid.New(),
		Questions: []model.SessionQuestion{
			{
				ID:        uuid.New(),
				Type:      model.QuestionTypeMultipleChoiceSingle,
				MaxPoints: 5,
				Choices:   []model.SessionChoice{{ID: mcIDs[0], Correct: true}, {ID: mcIDs[1]}},
			},
			{
				ID:        uuid.New(),
				Type:      model.QuestionTypeTrueFalse,
				MaxPoints: 5,
				Choices:   []model.SessionChoice{{ID: tfIDs[0], Text: "True"}, {ID: tfIDs[1], Text: "False", Correct: true}},
			},
		},
	}

	answers := map[uuid.UUID]model.Answer{
		sess.Questions[0].ID: *answerOf(sess.Questions[0].ID, mcIDs[0]), // correct: A
		sess.Questions[1].ID: *answerOf(sess.Questions[1].ID, tfIDs[0]), // wrong: True
	}

	res, err := GradeSession(sess, answers, 50)
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalScore)
	assert.Equal(t, 10, res.TotalPossible)
	assert.Equal(t, 50.0, res.Percentage)
	assert.Equal(t, model.PassingFlagPassed, res.Passing)
}

func TestAggregateEmptyIsZeroPercent(t *testing.T) {
	res := Aggregate(uuid.New(), nil, 50)
	assert.Equal(t, 0.0, res.Percentage)
	assert.Equal(t, model.PassingFlagFailed, res.Passing)
}
