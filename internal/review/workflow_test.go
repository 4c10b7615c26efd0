package review

import (
	"testing"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingSession builds a PENDING_REVIEW session with one MCQ-single
// (correct = A, 5 points) and one true/false (correct = False, 5 points),
// plus the learner's answers: A (correct) and True (wrong).
func pendingSession() (*model.ExamSession, map[uuid.UUID]model.Answer) {
	mc := model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionTypeMultipleChoiceSingle,
		MaxPoints: 5,
		Choices: []model.SessionChoice{
			{ID: uuid.New(), Text: "A", Correct: true},
			{ID: uuid.New(), Text: "B"},
		},
	}
	tf := model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionTypeTrueFalse,
		MaxPoints: 5,
		Choices: []model.SessionChoice{
			{ID: uuid.New(), Text: "True"},
			{ID: uuid.New(), Text: "False", Correct: true},
		},
	}
	sess := &model.ExamSession{
		ID:        uuid.New(),
		State:     model.SessionStatePendingReview,
		Questions: []model.SessionQuestion{mc, tf},
	}
	answers := map[uuid.UUID]model.Answer{
		mc.ID: {SessionQuestionID: mc.ID, Choices: []model.AnswerChoice{{ChoiceID: mc.Choices[0].ID}}},
		tf.ID: {SessionQuestionID: tf.ID, Choices: []model.AnswerChoice{{ChoiceID: tf.Choices[0].ID}}},
	}
	return sess, answers
}

func TestNewRequiresPendingReview(t *testing.T) {
	sess, answers := pendingSession()
	sess.State = model.SessionStateCompleted

	_, err := New(sess, answers, 50)
	assert.ErrorIs(t, err, ErrNotPendingReview)
}

func TestBaselineComesFromEngine(t *testing.T) {
	sess, answers := pendingSession()
	w, err := New(sess, answers, 50)
	require.NoError(t, err)

	res := w.Result()
	assert.Equal(t, 5, res.TotalScore)
	assert.Equal(t, 10, res.TotalPossible)
	assert.Equal(t, model.PassingFlagPassed, res.Passing, "50% meets the inclusive boundary")
}

func TestOverrideRecomputesAggregate(t *testing.T) {
	sess, answers := pendingSession()
	w, err := New(sess, answers, 50)
	require.NoError(t, err)

	// Grader awards partial credit on the wrong true/false answer.
	tfID := sess.Questions[1].ID
	require.NoError(t, w.SetQuestionPoints(tfID, 3))

	res := w.Result()
	assert.Equal(t, 8, res.TotalScore)
	assert.Equal(t, 80.0, res.Percentage)
	assert.Equal(t, model.PassingFlagPassed, res.Passing)

	for _, qr := range res.Questions {
		if qr.SessionQuestionID == tfID {
			assert.Equal(t, model.CorrectnessPartiallyCorrect, qr.Correctness)
		}
	}
}

func TestOverrideBoundsRejectedPriorValueKept(t *testing.T) {
	sess, answers := pendingSession()
	w, err := New(sess, answers, 50)
	require.NoError(t, err)

	mcID := sess.Questions[0].ID
	require.NoError(t, w.SetQuestionPoints(mcID, 2))

	assert.ErrorIs(t, w.SetQuestionPoints(mcID, 6), ErrPointsOutOfRange)
	assert.ErrorIs(t, w.SetQuestionPoints(mcID, -1), ErrPointsOutOfRange)

	// The last accepted override survives the rejections: MC overridden
	// to 2, TF still at its engine baseline of 0.
	assert.Equal(t, 2, w.Result().TotalScore)
}

func TestOverrideUnknownQuestion(t *testing.T) {
	sess, answers := pendingSession()
	w, err := New(sess, answers, 50)
	require.NoError(t, err)

	assert.ErrorIs(t, w.SetQuestionPoints(uuid.New(), 1), ErrUnknownQuestion)
}

func TestResetRestoresBaseline(t *testing.T) {
	sess, answers := pendingSession()
	w, err := New(sess, answers, 50)
	require.NoError(t, err)

	require.NoError(t, w.SetQuestionPoints(sess.Questions[0].ID, 0))
	require.NoError(t, w.SetQuestionPoints(sess.Questions[1].ID, 5))
	require.NoError(t, w.ResetReview())

	res := w.Result()
	assert.Equal(t, 5, res.TotalScore, "back to the engine baseline")
}

func TestFinalizeIncompleteKeepsPendingReview(t *testing.T) {
	sess, answers := pendingSession()
	w, err := New(sess, answers, 50)
	require.NoError(t, err)

	require.NoError(t, w.SetQuestionPoints(sess.Questions[1].ID, 5))
	res, err := w.Finalize(false)
	require.NoError(t, err)
	assert.Equal(t, 10, res.TotalScore)
	assert.Equal(t, model.SessionStatePendingReview, sess.State, "incomplete pass leaves the session reviewable")

	// Overrides remain editable.
	assert.NoError(t, w.SetQuestionPoints(sess.Questions[1].ID, 4))
}

func TestFinalizeCompleteTransitionsToReviewed(t *testing.T) {
	sess, answers := pendingSession()
	w, err := New(sess, answers, 50)
	require.NoError(t, err)

	res, err := w.Finalize(true)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, model.SessionStateReviewed, sess.State)

	// Frozen: no further overrides, resets, or finalizations.
	assert.ErrorIs(t, w.SetQuestionPoints(sess.Questions[0].ID, 1), ErrReviewFinalized)
	assert.ErrorIs(t, w.ResetReview(), ErrReviewFinalized)
	_, err = w.Finalize(true)
	assert.ErrorIs(t, err, ErrReviewFinalized)
}

func TestResumeAppliesPersistedOverrides(t *testing.T) {
	sess, answers := pendingSession()
	first, err := New(sess, answers, 50)
	require.NoError(t, err)
	require.NoError(t, first.SetQuestionPoints(sess.Questions[1].ID, 2))

	saved, err := first.Finalize(false)
	require.NoError(t, err)

	// A later grader visit resumes from the persisted rows.
	base, err := New(sess, answers, 50)
	require.NoError(t, err)
	resumed, err := Resume(sess, base.Result().Questions, saved.Questions, 50)
	require.NoError(t, err)

	assert.Equal(t, 7, resumed.Result().TotalScore)
}
