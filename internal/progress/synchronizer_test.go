package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWindow = 20 * time.Millisecond

// settle waits long enough for a debounce window plus dispatch to land.
func settle() { time.Sleep(6 * testWindow) }

type savedAnswer struct {
	answer model.Answer
	seq    uint64
}

type fakeStore struct {
	mu      sync.Mutex
	answers map[uuid.UUID][]savedAnswer
	times   []int
	fail    int           // fail this many writes, then succeed
	delay   time.Duration // applied to every write
}

func newFakeStore() *fakeStore {
	return &fakeStore{answers: make(map[uuid.UUID][]savedAnswer)}
}

func (f *fakeStore) SaveAnswer(_ context.Context, _ uuid.UUID, ans model.Answer, seq uint64) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail > 0 {
		f.fail--
		return errors.New("connection reset")
	}
	f.answers[ans.SessionQuestionID] = append(f.answers[ans.SessionQuestionID], savedAnswer{ans, seq})
	return nil
}

func (f *fakeStore) SaveTime(_ context.Context, _ uuid.UUID, seconds int, _ uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail > 0 {
		f.fail--
		return errors.New("connection reset")
	}
	f.times = append(f.times, seconds)
	return nil
}

func (f *fakeStore) answersFor(qID uuid.UUID) []savedAnswer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]savedAnswer(nil), f.answers[qID]...)
}

func (f *fakeStore) savedTimes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.times...)
}

func newTestSync(store Store) *Synchronizer {
	return NewSynchronizer(uuid.New(), store, testWindow, zerolog.Nop())
}

func answerWith(qID uuid.UUID, choice uuid.UUID) model.Answer {
	return model.Answer{
		SessionQuestionID: qID,
		Choices:           []model.AnswerChoice{{ChoiceID: choice}},
	}
}

func TestDebounceCoalescesRapidEdits(t *testing.T) {
	store := newFakeStore()
	s := newTestSync(store)
	qID := uuid.New()

	var last uuid.UUID
	for i := 0; i < 10; i++ {
		last = uuid.New()
		s.EnqueueAnswer(answerWith(qID, last))
	}
	settle()

	saved := store.answersFor(qID)
	require.Len(t, saved, 1, "rapid edits inside the window collapse into one write")
	assert.Equal(t, last, saved[0].answer.Choices[0].ChoiceID, "the write reflects only the final edit")
}

func TestDifferentQuestionsAreIndependent(t *testing.T) {
	store := newFakeStore()
	s := newTestSync(store)
	q1, q2 := uuid.New(), uuid.New()

	s.EnqueueAnswer(answerWith(q1, uuid.New()))
	s.EnqueueAnswer(answerWith(q2, uuid.New()))
	settle()

	assert.Len(t, store.answersFor(q1), 1)
	assert.Len(t, store.answersFor(q2), 1)
}

func TestTimeUpdatesNeverRegress(t *testing.T) {
	store := newFakeStore()
	s := newTestSync(store)

	s.EnqueueTime(30)
	settle()
	s.EnqueueTime(25) // stale, dropped
	settle()

	assert.Equal(t, []int{30}, store.savedTimes())
}

func TestWritesForOneKeyStayOrdered(t *testing.T) {
	store := newFakeStore()
	store.delay = 3 * testWindow // writes outlive the debounce window
	s := newTestSync(store)
	qID := uuid.New()

	first := uuid.New()
	s.EnqueueAnswer(answerWith(qID, first))
	time.Sleep(2 * testWindow) // first write is now in flight

	second := uuid.New()
	s.EnqueueAnswer(answerWith(qID, second))
	time.Sleep(12 * testWindow)

	saved := store.answersFor(qID)
	require.Len(t, saved, 2)
	assert.Equal(t, first, saved[0].answer.Choices[0].ChoiceID)
	assert.Equal(t, second, saved[1].answer.Choices[0].ChoiceID, "later edit lands after the earlier in-flight write")
	assert.Less(t, saved[0].seq, saved[1].seq)
}

func TestFailedWriteRetriesOnNextUpdate(t *testing.T) {
	store := newFakeStore()
	store.fail = 1
	s := newTestSync(store)
	qID := uuid.New()

	s.EnqueueAnswer(answerWith(qID, uuid.New()))
	settle()
	require.Empty(t, store.answersFor(qID), "first write fails")
	assert.True(t, s.LastSavedAt().IsZero(), "nothing confirmed yet")

	final := uuid.New()
	s.EnqueueAnswer(answerWith(qID, final))
	settle()

	saved := store.answersFor(qID)
	require.Len(t, saved, 1)
	assert.Equal(t, final, saved[0].answer.Choices[0].ChoiceID)
	assert.False(t, s.LastSavedAt().IsZero())
}

func TestFlushSendsPendingImmediately(t *testing.T) {
	store := newFakeStore()
	s := newTestSync(store)
	qID := uuid.New()

	s.EnqueueAnswer(answerWith(qID, uuid.New()))
	s.EnqueueTime(42)
	require.NoError(t, s.Flush(context.Background()))

	assert.Len(t, store.answersFor(qID), 1)
	assert.Equal(t, []int{42}, store.savedTimes())
}

func TestCloseRejectsFurtherUpdates(t *testing.T) {
	store := newFakeStore()
	s := newTestSync(store)
	require.NoError(t, s.Close(context.Background()))

	s.EnqueueAnswer(answerWith(uuid.New(), uuid.New()))
	s.EnqueueTime(10)
	settle()

	assert.Empty(t, store.savedTimes())
}
