package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/progress"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory progress.Store for machine tests.
type memStore struct {
	mu      sync.Mutex
	answers map[uuid.UUID]model.Answer
	seconds int
}

func newMemStore() *memStore {
	return &memStore{answers: make(map[uuid.UUID]model.Answer)}
}

func (m *memStore) SaveAnswer(_ context.Context, _ uuid.UUID, ans model.Answer, _ uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[ans.SessionQuestionID] = ans
	return nil
}

func (m *memStore) SaveTime(_ context.Context, _ uuid.UUID, seconds int, _ uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seconds = seconds
	return nil
}

type machineHarness struct {
	machine *Machine
	clock   *Clock
	sched   *ManualScheduler
	now     *fakeNow
	store   *memStore
	sess    *model.ExamSession
}

func newHarness(t *testing.T, maxTime *int, policy Policy, questions ...model.SessionQuestion) *machineHarness {
	t.Helper()
	now := newFakeNow()
	sched := &ManualScheduler{}
	clock := NewClock(ClockConfig{Scheduler: sched, Now: now.Now})
	store := newMemStore()
	sess := &model.ExamSession{
		ID:             uuid.New(),
		ExamID:         uuid.New(),
		LearnerID:      7,
		State:          model.SessionStateNotStarted,
		StartedAt:      now.Now(),
		MaxTimeSeconds: maxTime,
		Questions:      questions,
	}
	ps := progress.NewSynchronizer(sess.ID, store, 5*time.Millisecond, zerolog.Nop())
	return &machineHarness{
		machine: NewMachine(sess, policy, clock, ps, zerolog.Nop()),
		clock:   clock,
		sched:   sched,
		now:     now,
		store:   store,
		sess:    sess,
	}
}

func (h *machineHarness) pass(d time.Duration) {
	h.now.Advance(d)
	h.sched.Tick()
}

func defaultPolicy() Policy {
	return Policy{DefaultOrderCountsAnswered: true, PassingScore: 50}
}

func TestStartRequiresQuestions(t *testing.T) {
	h := newHarness(t, nil, defaultPolicy())
	err := h.machine.Start()
	assert.ErrorIs(t, err, ErrNoQuestions)
	assert.Equal(t, model.SessionStateNotStarted, h.machine.State())
}

func TestStartTransitionsToInProgress(t *testing.T) {
	h := newHarness(t, nil, defaultPolicy(), singleQuestion())
	require.NoError(t, h.machine.Start())
	assert.Equal(t, model.SessionStateInProgress, h.machine.State())
	assert.ErrorIs(t, h.machine.Start(), ErrAlreadyStarted)
}

func TestTicksAdvanceTimeSpent(t *testing.T) {
	h := newHarness(t, nil, defaultPolicy(), singleQuestion())
	require.NoError(t, h.machine.Start())

	h.pass(5 * time.Second)
	h.pass(3 * time.Second)
	assert.Equal(t, 8, h.machine.TimeSpent())
}

func TestPauseBlocksRecordingAndTime(t *testing.T) {
	q := singleQuestion()
	h := newHarness(t, nil, defaultPolicy(), q)
	require.NoError(t, h.machine.Start())
	h.pass(4 * time.Second)

	require.NoError(t, h.machine.Pause())
	assert.Equal(t, model.SessionStatePaused, h.machine.State())

	// Ticks against a paused session are ignored silently.
	h.pass(time.Hour)
	assert.Equal(t, 4, h.machine.TimeSpent())

	// Explicit learner actions are rejected.
	_, err := h.machine.RecordAnswer(q.ID, Selection{ChoiceIDs: []uuid.UUID{q.Choices[0].ID}})
	assert.ErrorIs(t, err, ErrNotInProgress)

	require.NoError(t, h.machine.ResumeSession())
	h.pass(6 * time.Second)
	assert.Equal(t, 10, h.machine.TimeSpent(), "ticking resumes from the pause value")
}

func TestAutoSubmitAtTimeLimit(t *testing.T) {
	q := singleQuestion()
	limit := 30
	h := newHarness(t, &limit, defaultPolicy(), q)
	require.NoError(t, h.machine.Start())

	h.pass(29 * time.Second)
	assert.Equal(t, model.SessionStateInProgress, h.machine.State())

	h.pass(time.Second)
	assert.Equal(t, model.SessionStateCompleted, h.machine.State(),
		"reaching the limit submits immediately, even with nothing answered")
	assert.Equal(t, 30, h.machine.TimeSpent())
	require.NotNil(t, h.machine.Result())

	// Further ticks change nothing.
	h.pass(time.Minute)
	assert.Equal(t, 30, h.machine.TimeSpent())
}

func TestSubmitIdempotentAcrossTriggers(t *testing.T) {
	q := singleQuestion()
	limit := 60
	h := newHarness(t, &limit, defaultPolicy(), q)

	var triggers []SubmitTrigger
	h.machine.OnSubmitted = func(tr SubmitTrigger, _ *model.ExamSessionResult) {
		triggers = append(triggers, tr)
	}
	require.NoError(t, h.machine.Start())

	_, err := h.machine.RecordAnswer(q.ID, Selection{ChoiceIDs: []uuid.UUID{q.Choices[0].ID}})
	require.NoError(t, err)

	first, err := h.machine.Submit()
	require.NoError(t, err)
	require.NotNil(t, first)

	// Second submit (e.g. a network retry) is a no-op with the same result.
	second, err := h.machine.Submit()
	require.NoError(t, err)
	assert.Same(t, first, second)

	// The timeout path after submission is a no-op too.
	h.pass(2 * time.Minute)
	assert.Equal(t, []SubmitTrigger{SubmitByLearner}, triggers, "exactly one submitted transition")
}

func TestExplicitSubmitGatedOnAnswers(t *testing.T) {
	h := newHarness(t, nil, Policy{PassingScore: 50}, singleQuestion())
	require.NoError(t, h.machine.Start())

	_, err := h.machine.Submit()
	assert.ErrorIs(t, err, ErrNothingAnswered)
	assert.Equal(t, model.SessionStateInProgress, h.machine.State())
}

func TestEmptySubmissionAllowedByPolicy(t *testing.T) {
	h := newHarness(t, nil, Policy{AllowEmptySubmission: true, PassingScore: 50}, singleQuestion())
	require.NoError(t, h.machine.Start())

	res, err := h.machine.Submit()
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalScore)
	assert.Equal(t, model.PassingFlagFailed, res.Passing)
}

func TestRecordAnswerPersistsThroughSynchronizer(t *testing.T) {
	q := singleQuestion()
	h := newHarness(t, nil, defaultPolicy(), q)
	require.NoError(t, h.machine.Start())

	_, err := h.machine.RecordAnswer(q.ID, Selection{ChoiceIDs: []uuid.UUID{q.Choices[1].ID}})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	h.store.mu.Lock()
	saved, ok := h.store.answers[q.ID]
	h.store.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, q.Choices[1].ID, saved.Choices[0].ChoiceID)
}

func TestRankedDefaultOrderCountsAsAnswered(t *testing.T) {
	rq := rankedQuestion()
	h := newHarness(t, nil, defaultPolicy(), rq)
	require.NoError(t, h.machine.Start())

	statuses := h.machine.QuestionStatuses()
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Answered, "natural order is an implicit answer under current policy")

	// And the implicit answer is persisted.
	time.Sleep(50 * time.Millisecond)
	h.store.mu.Lock()
	_, ok := h.store.answers[rq.ID]
	h.store.mu.Unlock()
	assert.True(t, ok)
}

func TestRankedDefaultPolicyDisabled(t *testing.T) {
	rq := rankedQuestion()
	h := newHarness(t, nil, Policy{PassingScore: 50}, rq)
	require.NoError(t, h.machine.Start())

	statuses := h.machine.QuestionStatuses()
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Answered)
}

func TestQuestionStatusesAndFlags(t *testing.T) {
	q1, q2 := singleQuestion(), multiQuestion()
	h := newHarness(t, nil, defaultPolicy(), q1, q2)
	require.NoError(t, h.machine.Start())

	_, err := h.machine.RecordAnswer(q1.ID, Selection{ChoiceIDs: []uuid.UUID{q1.Choices[0].ID}})
	require.NoError(t, err)
	require.NoError(t, h.machine.FlagQuestion(q2.ID, true))

	statuses := h.machine.QuestionStatuses()
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Answered)
	assert.False(t, statuses[0].Flagged)
	assert.False(t, statuses[1].Answered)
	assert.True(t, statuses[1].Flagged)
}

func TestRestoreAfterReload(t *testing.T) {
	q := singleQuestion()
	h := newHarness(t, nil, defaultPolicy(), q)
	require.NoError(t, h.machine.Start())

	prior := model.Answer{
		SessionQuestionID: q.ID,
		Choices:           []model.AnswerChoice{{ChoiceID: q.Choices[2].ID}},
	}
	require.NoError(t, h.machine.Restore(120, []model.Answer{prior}))

	assert.Equal(t, 120, h.machine.TimeSpent())
	got, ok := h.machine.Answer(q.ID)
	require.True(t, ok)
	assert.Equal(t, prior, got)

	h.pass(10 * time.Second)
	assert.Equal(t, 130, h.machine.TimeSpent(), "clock continues from the restored value")
}

func TestSubmitRoutesToPendingReview(t *testing.T) {
	// A manually graded question has no choice set; its presence routes
	// the whole session into PENDING_REVIEW with a zero baseline for it.
	mc := singleQuestion()
	essay := model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionType("FREE_TEXT"),
		MaxPoints: 10,
	}
	h := newHarness(t, nil, defaultPolicy(), mc, essay)
	require.NoError(t, h.machine.Start())

	_, err := h.machine.RecordAnswer(mc.ID, Selection{ChoiceIDs: []uuid.UUID{mc.Choices[0].ID}})
	require.NoError(t, err)

	res, err := h.machine.Submit()
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatePendingReview, h.machine.State())
	assert.Equal(t, 5, res.TotalScore)
	assert.Equal(t, 15, res.TotalPossible, "the manual question still counts toward the possible total")
}

func TestEndToEndPassBoundary(t *testing.T) {
	// MCQ-single worth 5 (correct = A) and TrueFalse worth 5
	// (correct = False), passing score 50. Answering A and True scores
	// 5/10 = 50% which passes on the boundary.
	mc := singleQuestion()
	tf := model.SessionQuestion{
		ID:        uuid.New(),
		Type:      model.QuestionTypeTrueFalse,
		MaxPoints: 5,
		Choices: []model.SessionChoice{
			{ID: uuid.New(), Text: "True"},
			{ID: uuid.New(), Text: "False", Correct: true},
		},
	}
	h := newHarness(t, nil, defaultPolicy(), mc, tf)
	require.NoError(t, h.machine.Start())

	_, err := h.machine.RecordAnswer(mc.ID, Selection{ChoiceIDs: []uuid.UUID{mc.Choices[0].ID}})
	require.NoError(t, err)
	_, err = h.machine.RecordAnswer(tf.ID, Selection{ChoiceIDs: []uuid.UUID{tf.Choices[0].ID}})
	require.NoError(t, err)

	res, err := h.machine.Submit()
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalScore)
	assert.Equal(t, 10, res.TotalPossible)
	assert.Equal(t, 50.0, res.Percentage)
	assert.Equal(t, model.PassingFlagPassed, res.Passing)
	assert.Equal(t, model.SessionStateCompleted, h.machine.State())
	require.NotNil(t, h.sess.FinishedAt)
}
