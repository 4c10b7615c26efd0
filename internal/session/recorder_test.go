package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func singleQuestion() model.SessionQuestion {
	return model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionTypeMultipleChoiceSingle,
		MaxPoints: 5,
		Choices: []model.SessionChoice{
			{ID: uuid.New(), Text: "A", Correct: true},
			{ID: uuid.New(), Text: "B"},
			{ID: uuid.New(), Text: "C"},
		},
	}
}

func multiQuestion() model.SessionQuestion {
	q := singleQuestion()
	q.Type = model.QuestionTypeMultipleChoiceMultiple
	q.Choices[1].Correct = true
	return q
}

func rankedQuestion() model.SessionQuestion {
	return model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionTypeDragAndDrop,
		MaxPoints: 5,
		Choices: []model.SessionChoice{
			{ID: uuid.New(), Text: "X", CorrectOrder: intPtr(0)},
			{ID: uuid.New(), Text: "Y", CorrectOrder: intPtr(1)},
			{ID: uuid.New(), Text: "Z", CorrectOrder: intPtr(2)},
		},
	}
}

func TestRecordSingleSelectReplacesSet(t *testing.T) {
	q := singleQuestion()

	ans, err := Record(q, Selection{ChoiceIDs: []uuid.UUID{q.Choices[1].ID}})
	require.NoError(t, err)
	require.Len(t, ans.Choices, 1)
	assert.Equal(t, q.Choices[1].ID, ans.Choices[0].ChoiceID)

	// Recording again fully replaces the previous selection.
	ans, err = Record(q, Selection{ChoiceIDs: []uuid.UUID{q.Choices[2].ID}})
	require.NoError(t, err)
	require.Len(t, ans.Choices, 1)
	assert.Equal(t, q.Choices[2].ID, ans.Choices[0].ChoiceID)

	// Empty selection is a valid unanswered state.
	ans, err = Record(q, Selection{})
	require.NoError(t, err)
	assert.False(t, ans.Answered())
}

func TestRecordSingleSelectRejectsMultiple(t *testing.T) {
	q := singleQuestion()
	_, err := Record(q, Selection{ChoiceIDs: []uuid.UUID{q.Choices[0].ID, q.Choices[1].ID}})
	assert.ErrorIs(t, err, scoring.ErrMalformedAnswer)
}

func TestRecordRejectsUnknownChoice(t *testing.T) {
	q := singleQuestion()
	_, err := Record(q, Selection{ChoiceIDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, scoring.ErrUnknownChoice)
}

func TestRecordMultiSelectSet(t *testing.T) {
	q := multiQuestion()
	ans, err := Record(q, Selection{ChoiceIDs: []uuid.UUID{q.Choices[0].ID, q.Choices[2].ID}})
	require.NoError(t, err)
	assert.Len(t, ans.Choices, 2)
	assert.True(t, ans.HasChoice(q.Choices[0].ID))
	assert.True(t, ans.HasChoice(q.Choices[2].ID))
}

func TestToggleChoice(t *testing.T) {
	q := multiQuestion()

	ans, err := Record(q, Selection{ChoiceIDs: []uuid.UUID{q.Choices[0].ID}})
	require.NoError(t, err)

	ans, err = ToggleChoice(q, ans, q.Choices[1].ID)
	require.NoError(t, err)
	assert.Len(t, ans.Choices, 2)

	ans, err = ToggleChoice(q, ans, q.Choices[0].ID)
	require.NoError(t, err)
	require.Len(t, ans.Choices, 1)
	assert.Equal(t, q.Choices[1].ID, ans.Choices[0].ChoiceID)
}

func TestRecordRankedPermutation(t *testing.T) {
	q := rankedQuestion()

	ans, err := Record(q, Selection{OrderedChoiceIDs: []uuid.UUID{
		q.Choices[2].ID, q.Choices[0].ID, q.Choices[1].ID,
	}})
	require.NoError(t, err)
	require.Len(t, ans.Choices, 3)
	for i, ac := range ans.Choices {
		require.NotNil(t, ac.Order)
		assert.Equal(t, i, *ac.Order, "orders are contiguous and 0-based")
	}
	assert.Equal(t, q.Choices[2].ID, ans.Choices[0].ChoiceID)
}

func TestRecordRankedRejectsPartialOrDuplicate(t *testing.T) {
	q := rankedQuestion()

	_, err := Record(q, Selection{OrderedChoiceIDs: []uuid.UUID{q.Choices[0].ID}})
	assert.ErrorIs(t, err, scoring.ErrMalformedAnswer)

	_, err = Record(q, Selection{OrderedChoiceIDs: []uuid.UUID{
		q.Choices[0].ID, q.Choices[0].ID, q.Choices[1].ID,
	}})
	assert.ErrorIs(t, err, scoring.ErrMalformedAnswer)
}

func TestDefaultAnswerRankedIsNaturalOrder(t *testing.T) {
	q := rankedQuestion()
	ans := DefaultAnswer(q)
	require.Len(t, ans.Choices, 3)
	for i, ac := range ans.Choices {
		assert.Equal(t, q.Choices[i].ID, ac.ChoiceID)
		require.NotNil(t, ac.Order)
		assert.Equal(t, i, *ac.Order)
	}
	assert.True(t, ans.Answered())
}

func TestResetSemanticsPerType(t *testing.T) {
	// Non-ranked reset clears entirely.
	single := Reset(singleQuestion())
	assert.False(t, single.Answered())
	multi := Reset(multiQuestion())
	assert.False(t, multi.Answered())

	// Ranked reset restores the full default permutation.
	q := rankedQuestion()
	ans := Reset(q)
	assert.Len(t, ans.Choices, len(q.Choices))
}

func TestRecordRoundTrip(t *testing.T) {
	// Recording, then re-recording from the canonical form, reproduces
	// the same choice set and order.
	q := rankedQuestion()
	order := []uuid.UUID{q.Choices[1].ID, q.Choices[2].ID, q.Choices[0].ID}

	first, err := Record(q, Selection{OrderedChoiceIDs: order})
	require.NoError(t, err)

	readBack := make([]uuid.UUID, len(first.Choices))
	for _, ac := range first.Choices {
		readBack[*ac.Order] = ac.ChoiceID
	}
	second, err := Record(q, Selection{OrderedChoiceIDs: readBack})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
