// Package session contains the exam session runtime: the clock, the
// answer recorder, and the state machine that governs one live attempt
// from start to submission.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/progress"
	"github.com/quizora/quizora-backend/internal/scoring"
	"github.com/rs/zerolog"
)

// Validation errors: illegal actions are rejected and leave state
// unchanged.
var (
	ErrNoQuestions     = errors.New("exam has no questions")
	ErrNotInProgress   = errors.New("session is not in progress")
	ErrNotPaused       = errors.New("session is not paused")
	ErrAlreadyStarted  = errors.New("session already started")
	ErrNothingAnswered = errors.New("no question has been answered")
	ErrUnknownQuestion = errors.New("question is not part of the session")
	ErrSessionFinished = errors.New("session is already finished")
)

// SubmitTrigger identifies what caused a submission.
type SubmitTrigger string

const (
	SubmitByLearner SubmitTrigger = "LEARNER"
	SubmitByTimeout SubmitTrigger = "TIMEOUT"
)

// Policy holds the configurable behaviors of the runtime.
type Policy struct {
	// AllowEmptySubmission lets an explicit submit through with zero
	// answered questions. Timeout submission always goes through.
	AllowEmptySubmission bool
	// DefaultOrderCountsAnswered treats the initial natural order of a
	// ranked question as an answer and persists it on start. This matches
	// current behavior; disabling it leaves ranked questions unanswered
	// until the learner reorders.
	DefaultOrderCountsAnswered bool
	// PassingScore is the exam's passing percentage threshold.
	PassingScore float64
}

// Machine owns the lifecycle of one attempt. It is the explicit
// session-context object: answers, flagged questions, and save state all
// live here, never in package globals, so concurrent sessions stay
// isolated.
//
// All methods are safe for concurrent use; clock callbacks arrive on the
// scheduler goroutine.
type Machine struct {
	mu     sync.Mutex
	sess   *model.ExamSession
	policy Policy
	clock  *Clock
	syncer *progress.Synchronizer
	log    zerolog.Logger

	questions map[uuid.UUID]model.SessionQuestion
	answers   map[uuid.UUID]model.Answer
	flagged   map[uuid.UUID]bool
	result    *model.ExamSessionResult

	// OnSubmitted is invoked exactly once, after the submit transition,
	// with the computed result. Callers persist from here.
	OnSubmitted func(trigger SubmitTrigger, result *model.ExamSessionResult)

	// OnTick is invoked after each accepted tick with the new elapsed
	// seconds. Set before Start.
	OnTick func(elapsed int)
}

// NewMachine builds the runtime for one session. The clock is wired but
// not started until Start.
func NewMachine(sess *model.ExamSession, policy Policy, clock *Clock, syncer *progress.Synchronizer, log zerolog.Logger) *Machine {
	m := &Machine{
		sess:      sess,
		policy:    policy,
		clock:     clock,
		syncer:    syncer,
		log:       log.With().Str("component", "session_machine").Str("session_id", sess.ID.String()).Logger(),
		questions: make(map[uuid.UUID]model.SessionQuestion, len(sess.Questions)),
		answers:   make(map[uuid.UUID]model.Answer),
		flagged:   make(map[uuid.UUID]bool),
	}
	for _, q := range sess.Questions {
		m.questions[q.ID] = q
	}
	clock.OnTick(m.handleTick)
	clock.OnComplete(m.handleTimeout)
	return m
}

// Start transitions NotStarted -> InProgress and starts the clock.
// Requires at least one question.
func (m *Machine) Start() error {
	m.mu.Lock()
	if m.sess.State != model.SessionStateNotStarted {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(m.sess.Questions) == 0 {
		m.mu.Unlock()
		return ErrNoQuestions
	}
	m.sess.State = model.SessionStateInProgress

	// Ranked questions start with their natural order as an implicit
	// answer when policy says the default counts.
	var defaults []model.Answer
	if m.policy.DefaultOrderCountsAnswered {
		for _, q := range m.sess.Questions {
			if q.Type == model.QuestionTypeDragAndDrop {
				ans := DefaultAnswer(q)
				m.answers[q.ID] = ans
				defaults = append(defaults, ans)
			}
		}
	}
	m.mu.Unlock()

	for _, ans := range defaults {
		m.syncer.EnqueueAnswer(ans)
	}

	if m.sess.Timed() {
		m.clock.Start(*m.sess.MaxTimeSeconds, CountDown)
	} else {
		m.clock.Start(0, CountUp)
	}
	m.clock.SetElapsed(m.sess.TimeSpentSeconds)
	return nil
}

// Restore rebuilds a reloaded session: elapsed time and recorded answers
// come back from the server, then the clock continues from that exact
// value.
func (m *Machine) Restore(timeSpent int, answers []model.Answer) error {
	m.mu.Lock()
	if m.sess.State != model.SessionStateInProgress && m.sess.State != model.SessionStatePaused {
		m.mu.Unlock()
		return ErrNotInProgress
	}
	if timeSpent > m.sess.TimeSpentSeconds {
		m.sess.TimeSpentSeconds = timeSpent
	}
	for _, ans := range answers {
		if _, ok := m.questions[ans.SessionQuestionID]; ok {
			m.answers[ans.SessionQuestionID] = ans
		}
	}
	elapsed := m.sess.TimeSpentSeconds
	m.mu.Unlock()

	m.clock.SetElapsed(elapsed)
	return nil
}

// Pause suspends the learner-visible timer. It never cancels in-flight
// writes and never blocks submission by other means.
func (m *Machine) Pause() error {
	m.mu.Lock()
	if m.sess.State != model.SessionStateInProgress {
		m.mu.Unlock()
		return ErrNotInProgress
	}
	m.sess.State = model.SessionStatePaused
	m.mu.Unlock()

	m.clock.Pause()
	return nil
}

// ResumeSession restores ticking from the exact elapsed value Pause
// captured.
func (m *Machine) ResumeSession() error {
	m.mu.Lock()
	if m.sess.State != model.SessionStatePaused {
		m.mu.Unlock()
		return ErrNotPaused
	}
	m.sess.State = model.SessionStateInProgress
	m.mu.Unlock()

	m.clock.Resume()
	return nil
}

// RecordAnswer records the full current selection for one question and
// queues it for persistence. Rejected outside InProgress.
func (m *Machine) RecordAnswer(questionID uuid.UUID, sel Selection) (model.Answer, error) {
	m.mu.Lock()
	if m.sess.State != model.SessionStateInProgress {
		m.mu.Unlock()
		return model.Answer{}, ErrNotInProgress
	}
	q, ok := m.questions[questionID]
	if !ok {
		m.mu.Unlock()
		return model.Answer{}, ErrUnknownQuestion
	}
	m.mu.Unlock()

	ans, err := Record(q, sel)
	if err != nil {
		return model.Answer{}, err
	}

	m.mu.Lock()
	if m.sess.State != model.SessionStateInProgress {
		// Submission raced us; drop the edit.
		m.mu.Unlock()
		return model.Answer{}, ErrNotInProgress
	}
	m.answers[questionID] = ans
	m.mu.Unlock()

	m.syncer.EnqueueAnswer(ans)
	return ans, nil
}

// ResetAnswer clears a question's answer: empty for non-ranked types,
// the default natural order for ranked ones.
func (m *Machine) ResetAnswer(questionID uuid.UUID) (model.Answer, error) {
	m.mu.Lock()
	if m.sess.State != model.SessionStateInProgress {
		m.mu.Unlock()
		return model.Answer{}, ErrNotInProgress
	}
	q, ok := m.questions[questionID]
	if !ok {
		m.mu.Unlock()
		return model.Answer{}, ErrUnknownQuestion
	}
	ans := Reset(q)
	if ans.Answered() || m.policy.DefaultOrderCountsAnswered {
		m.answers[questionID] = ans
	} else {
		delete(m.answers, questionID)
	}
	m.mu.Unlock()

	m.syncer.EnqueueAnswer(ans)
	return ans, nil
}

// FlagQuestion toggles the navigation flag on a question.
func (m *Machine) FlagQuestion(questionID uuid.UUID, flagged bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[questionID]; !ok {
		return ErrUnknownQuestion
	}
	m.flagged[questionID] = flagged
	return nil
}

// Submit is the explicit learner-initiated submission. It is idempotent
// with the timeout path: whichever fires first wins and the second
// attempt is a no-op returning the existing result.
func (m *Machine) Submit() (*model.ExamSessionResult, error) {
	return m.submit(SubmitByLearner)
}

func (m *Machine) submit(trigger SubmitTrigger) (*model.ExamSessionResult, error) {
	m.mu.Lock()
	// Idempotence is decided by the current state, not a boolean flag:
	// whichever of the learner and timeout paths transitions first wins,
	// and the second attempt is a no-op.
	switch m.sess.State {
	case model.SessionStateInProgress, model.SessionStatePaused:
	case model.SessionStateNotStarted:
		m.mu.Unlock()
		return nil, ErrNotInProgress
	default:
		res := m.result
		m.mu.Unlock()
		return res, nil
	}
	if trigger == SubmitByLearner && !m.policy.AllowEmptySubmission && m.answeredCountLocked() == 0 {
		m.mu.Unlock()
		return nil, ErrNothingAnswered
	}
	now := time.Now()
	m.sess.State = model.SessionStateSubmitted
	m.sess.FinishedAt = &now

	answers := make(map[uuid.UUID]model.Answer, len(m.answers))
	for id, a := range m.answers {
		answers[id] = a
	}
	sess := m.sess
	m.mu.Unlock()

	m.clock.Stop()

	m.mu.Lock()
	m.sess.TimeSpentSeconds = m.clampElapsedLocked(m.clock.Elapsed())
	m.mu.Unlock()

	result, err := scoring.GradeSession(sess, answers, m.policy.PassingScore)
	if err != nil {
		// Data integrity failure: the session stays Submitted so the
		// corruption is visible, but no result is produced.
		m.log.Error().Err(err).Msg("Grading failed")
		return nil, err
	}

	m.mu.Lock()
	m.result = result
	if m.requiresManualGradingLocked() {
		m.sess.State = model.SessionStatePendingReview
	} else {
		m.sess.State = model.SessionStateCompleted
	}
	onSubmitted := m.OnSubmitted
	m.mu.Unlock()

	// Flush debounced-but-unsent progress before handing off, best effort.
	if err := m.syncer.Flush(context.Background()); err != nil {
		m.log.Warn().Err(err).Msg("Final progress flush failed")
	}

	m.log.Info().
		Str("trigger", string(trigger)).
		Int("score", result.TotalScore).
		Int("possible", result.TotalPossible).
		Msg("Session submitted")

	if onSubmitted != nil {
		onSubmitted(trigger, result)
	}
	return result, nil
}

// handleTick advances elapsed time while InProgress. Ticks against any
// other state are ignored silently.
func (m *Machine) handleTick(int) {
	m.mu.Lock()
	if m.sess.State != model.SessionStateInProgress {
		m.mu.Unlock()
		return
	}
	elapsed := m.clampElapsedLocked(m.clock.Elapsed())
	if elapsed <= m.sess.TimeSpentSeconds {
		m.mu.Unlock()
		return
	}
	m.sess.TimeSpentSeconds = elapsed
	onTick := m.OnTick
	m.mu.Unlock()

	m.syncer.EnqueueTime(elapsed)
	if onTick != nil {
		onTick(elapsed)
	}
}

// handleTimeout fires the automatic submission the instant a countdown
// completes. No grace period, and the ready-to-submit gate is bypassed.
func (m *Machine) handleTimeout() {
	if _, err := m.submit(SubmitByTimeout); err != nil && !errors.Is(err, ErrNotInProgress) {
		m.log.Error().Err(err).Msg("Auto-submit failed")
	}
}

func (m *Machine) clampElapsedLocked(elapsed int) int {
	if m.sess.MaxTimeSeconds != nil && elapsed > *m.sess.MaxTimeSeconds {
		return *m.sess.MaxTimeSeconds
	}
	if elapsed < m.sess.TimeSpentSeconds {
		return m.sess.TimeSpentSeconds
	}
	return elapsed
}

func (m *Machine) answeredCountLocked() int {
	n := 0
	for _, a := range m.answers {
		if a.Answered() {
			n++
		}
	}
	return n
}

func (m *Machine) requiresManualGradingLocked() bool {
	for _, q := range m.sess.Questions {
		if q.RequiresManualGrading() {
			return true
		}
	}
	return false
}

// State returns the current session state.
func (m *Machine) State() model.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.State
}

// Result returns the grading result, nil before submission.
func (m *Machine) Result() *model.ExamSessionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// Answer returns the recorded answer for a question, if any.
func (m *Machine) Answer(questionID uuid.UUID) (model.Answer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[questionID]
	return a, ok
}

// QuestionStatus is the per-question indicator for navigation.
type QuestionStatus struct {
	SessionQuestionID uuid.UUID `json:"session_question_id"`
	Answered          bool      `json:"answered"`
	Flagged           bool      `json:"flagged"`
}

// QuestionStatuses lists the answered/flagged indicator for every
// question in session order.
func (m *Machine) QuestionStatuses() []QuestionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]QuestionStatus, 0, len(m.sess.Questions))
	for _, q := range m.sess.Questions {
		a, ok := m.answers[q.ID]
		out = append(out, QuestionStatus{
			SessionQuestionID: q.ID,
			Answered:          ok && a.Answered(),
			Flagged:           m.flagged[q.ID],
		})
	}
	return out
}

// TimeSpent returns elapsed seconds, clamped to the session limit.
func (m *Machine) TimeSpent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.TimeSpentSeconds
}

// LastSavedAt surfaces the synchronizer's last confirmed save.
func (m *Machine) LastSavedAt() time.Time {
	return m.syncer.LastSavedAt()
}
