package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizora/quizora-backend/internal/config"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/progress"
	"github.com/quizora/quizora-backend/internal/repository"
	"github.com/quizora/quizora-backend/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	ErrSessionNotFound  = errors.New("exam session not found")
	ErrNotSessionOwner  = errors.New("session belongs to another learner")
	ErrResultNotReady   = errors.New("result is not available yet")
	ErrExamNotAvailable = errors.New("exam is not available")
)

// SessionStateView is the reload/rejoin snapshot sent to the client.
type SessionStateView struct {
	SessionID        uuid.UUID                `json:"session_id"`
	State            model.SessionState       `json:"state"`
	TimeSpentSeconds int                      `json:"time_spent_seconds"`
	RemainingSeconds *int                     `json:"remaining_seconds,omitempty"`
	LastSavedAt      *time.Time               `json:"last_saved_at,omitempty"`
	Answers          []model.Answer           `json:"answers"`
	Questions        []session.QuestionStatus `json:"questions"`
}

// resultPayload is the message pushed to the results queue on submit.
type resultPayload struct {
	Result     model.ExamSessionResult `json:"result"`
	FinalState model.SessionState      `json:"final_state"`
}

// progressPayload is the message pushed to the progress queue by the
// per-session synchronizer store.
type progressPayload struct {
	SessionID uuid.UUID     `json:"session_id"`
	Answer    *model.Answer `json:"answer,omitempty"`
	Seconds   int           `json:"seconds,omitempty"`
	Seq       uint64        `json:"seq"`
}

// redisProgressStore implements progress.Store on top of Redis: every
// confirmed save lands in the session's live hash (for rejoin failover)
// and on the persistence queue the progress worker drains to PostgreSQL.
type redisProgressStore struct {
	rdb *redis.Client
}

func (s *redisProgressStore) SaveAnswer(ctx context.Context, sessionID uuid.UUID, ans model.Answer, seq uint64) error {
	raw, err := json.Marshal(ans)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(progressPayload{SessionID: sessionID, Answer: &ans, Seq: seq})
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, config.CacheKey.SessionAnswersKey(sessionID.String()), ans.SessionQuestionID.String(), raw)
	pipe.RPush(ctx, config.WorkerKey.PersistProgressQueue, payload)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisProgressStore) SaveTime(ctx context.Context, sessionID uuid.UUID, seconds int, seq uint64) error {
	payload, err := json.Marshal(progressPayload{SessionID: sessionID, Seconds: seconds, Seq: seq})
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.SessionElapsedKey(sessionID.String()), seconds, 0)
	pipe.RPush(ctx, config.WorkerKey.PersistProgressQueue, payload)
	_, err = pipe.Exec(ctx)
	return err
}

// liveSession pairs a running state machine with its synchronizer and the
// listeners (WebSocket connections) watching it.
type liveSession struct {
	machine *session.Machine
	syncer  *progress.Synchronizer
	// showResults mirrors the exam's show_results_immediately flag: when
	// false, submit acknowledgments omit the scores and the learner picks
	// them up from the result endpoint later.
	showResults bool

	mu     sync.Mutex
	nextID int
	subs   map[int]SessionListeners
}

// SessionListeners receives live events for one session. Either callback
// may be nil.
type SessionListeners struct {
	// OnTick fires every accepted clock tick with the new elapsed seconds.
	OnTick func(elapsed int)
	// OnSubmitted fires exactly once when the session is submitted, after
	// the final state is decided.
	OnSubmitted func(state model.SessionState, result *model.ExamSessionResult)
}

func (l *liveSession) addListener(sub SessionListeners) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = sub
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *liveSession) listeners() []SessionListeners {
	l.mu.Lock()
	out := make([]SessionListeners, 0, len(l.subs))
	for _, sub := range l.subs {
		out = append(out, sub)
	}
	l.mu.Unlock()
	return out
}

// ExamSessionService owns the live session runtimes and their persistence.
// Each active attempt gets its own Machine; nothing about one session is
// shared with another.
type ExamSessionService struct {
	sessionRepo  *repository.ExamSessionRepository
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	answerRepo   *repository.AnswerRepository
	resultRepo   *repository.ResultRepository
	rdb          *redis.Client
	cfg          *config.Config
	log          zerolog.Logger

	mu   sync.Mutex
	live map[uuid.UUID]*liveSession
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	sessionRepo *repository.ExamSessionRepository,
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	answerRepo *repository.AnswerRepository,
	resultRepo *repository.ResultRepository,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		sessionRepo:  sessionRepo,
		examRepo:     examRepo,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		resultRepo:   resultRepo,
		rdb:          rdb,
		cfg:          cfg,
		log:          log.With().Str("component", "exam_session_service").Logger(),
		live:         make(map[uuid.UUID]*liveSession),
	}
}

// StartSession creates (or idempotently rejoins) a learner's attempt at an
// exam. A new session freezes the question snapshot, shuffling it when the
// exam asks for randomized order; a rejoin restores the active session
// with its saved answers and elapsed time.
func (s *ExamSessionService) StartSession(ctx context.Context, examID uuid.UUID, learnerID int) (*model.ExamSession, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotAvailable
	}

	// Idempotent rejoin: an active session wins over creating a new one.
	existing, err := s.sessionRepo.GetActiveByExamAndLearner(ctx, examID, learnerID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing session: %w", err)
	}
	if existing != nil {
		if _, err := s.attach(ctx, existing, exam); err != nil {
			return nil, err
		}
		return existing, nil
	}

	questions, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	sess := &model.ExamSession{
		ExamID:         examID,
		LearnerID:      learnerID,
		State:          model.SessionStateNotStarted,
		MaxTimeSeconds: exam.MaxTimeSeconds,
		Questions:      snapshotQuestions(questions, exam.RandomizeQuestions),
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	live, err := s.attach(ctx, sess, exam)
	if err != nil {
		return nil, err
	}
	if err := live.machine.Start(); err != nil && !errors.Is(err, session.ErrAlreadyStarted) {
		return nil, err
	}
	if err := s.sessionRepo.UpdateState(ctx, sess.ID, model.SessionStateInProgress, model.SessionStateNotStarted); err != nil {
		return nil, fmt.Errorf("persist start: %w", err)
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("exam_id", examID.String()).
		Int("learner_id", learnerID).
		Msg("Session started")
	return sess, nil
}

// snapshotQuestions freezes bank questions into session snapshot rows,
// optionally shuffling the question order. Choice order is kept as
// authored; the canonical drag-and-drop ordering lives in correct_order,
// not in row order, so shuffling questions never affects grading.
func snapshotQuestions(questions []model.Question, shuffle bool) []model.SessionQuestion {
	out := make([]model.SessionQuestion, len(questions))
	for i, q := range questions {
		choices := make([]model.SessionChoice, len(q.Choices))
		for j, c := range q.Choices {
			choices[j] = model.SessionChoice{
				Text:         c.Text,
				Correct:      c.Correct,
				CorrectOrder: c.CorrectOrder,
			}
		}
		out[i] = model.SessionQuestion{
			QuestionID: q.ID,
			Type:       q.Type,
			Text:       q.Text,
			MaxPoints:  q.MaxPoints,
			Choices:    choices,
		}
	}
	if shuffle {
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}

// attach returns the live runtime for a session, building one if needed.
// Rebuilding restores elapsed time and answers from Redis, falling back to
// PostgreSQL when the cache is cold.
func (s *ExamSessionService) attach(ctx context.Context, sess *model.ExamSession, exam *model.Exam) (*liveSession, error) {
	s.mu.Lock()
	if live, ok := s.live[sess.ID]; ok {
		s.mu.Unlock()
		return live, nil
	}
	s.mu.Unlock()

	syncer := progress.NewSynchronizer(sess.ID, &redisProgressStore{rdb: s.rdb}, s.cfg.DebounceWindow, s.log)
	clock := session.NewClock(session.ClockConfig{})
	policy := session.Policy{
		AllowEmptySubmission:       exam.AllowEmptySubmission,
		DefaultOrderCountsAnswered: s.cfg.DefaultOrderCountsAnswered,
		PassingScore:               exam.PassingScore,
	}

	restoreState := sess.State
	restoreTime, answers := s.restorePoint(ctx, sess)

	// The machine always starts from NOT_STARTED; a rejoined session is
	// started and then restored to its persisted position.
	sess.State = model.SessionStateNotStarted
	machine := session.NewMachine(sess, policy, clock, syncer, s.log)

	live := &liveSession{
		machine:     machine,
		syncer:      syncer,
		showResults: exam.ShowResultsImmediately,
		subs:        make(map[int]SessionListeners),
	}
	machine.OnTick = func(elapsed int) {
		for _, sub := range live.listeners() {
			if sub.OnTick != nil {
				sub.OnTick(elapsed)
			}
		}
	}
	machine.OnSubmitted = func(trigger session.SubmitTrigger, result *model.ExamSessionResult) {
		s.persistSubmission(sess, trigger, result)
		visible := result
		if !live.showResults {
			visible = nil
		}
		for _, sub := range live.listeners() {
			if sub.OnSubmitted != nil {
				sub.OnSubmitted(sess.State, visible)
			}
		}
	}
	s.mu.Lock()
	if existing, ok := s.live[sess.ID]; ok {
		// Another request attached concurrently.
		s.mu.Unlock()
		_ = syncer.Close(ctx)
		return existing, nil
	}
	s.live[sess.ID] = live
	s.mu.Unlock()

	if restoreState != model.SessionStateNotStarted {
		if err := machine.Start(); err != nil {
			return nil, err
		}
		if err := machine.Restore(restoreTime, answers); err != nil {
			return nil, err
		}
		s.restoreFlags(ctx, sess.ID, machine)
		if restoreState == model.SessionStatePaused {
			if err := machine.Pause(); err != nil {
				return nil, err
			}
		}
	}
	return live, nil
}

// restoreFlags re-applies cached navigation flags after a rejoin. Flags
// are a navigation aid only, so a cold cache simply clears them.
func (s *ExamSessionService) restoreFlags(ctx context.Context, sessionID uuid.UUID, machine *session.Machine) {
	flags, err := s.rdb.HGetAll(ctx, config.CacheKey.SessionFlagsKey(sessionID.String())).Result()
	if err != nil || len(flags) == 0 {
		return
	}
	for raw := range flags {
		questionID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			continue
		}
		if err := machine.FlagQuestion(questionID, true); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Flag restore skipped")
		}
	}
}

// restorePoint recovers elapsed time and answers for a rejoin: Redis first,
// PostgreSQL as the failover source of truth.
func (s *ExamSessionService) restorePoint(ctx context.Context, sess *model.ExamSession) (int, []model.Answer) {
	elapsed := sess.TimeSpentSeconds
	if val, err := s.rdb.Get(ctx, config.CacheKey.SessionElapsedKey(sess.ID.String())).Result(); err == nil {
		if n, convErr := strconv.Atoi(val); convErr == nil && n > elapsed {
			elapsed = n
		}
	}

	var answers []model.Answer
	saved, err := s.rdb.HGetAll(ctx, config.CacheKey.SessionAnswersKey(sess.ID.String())).Result()
	if err == nil && len(saved) > 0 {
		for _, raw := range saved {
			var a model.Answer
			if err := json.Unmarshal([]byte(raw), &a); err != nil {
				s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Skipping corrupt cached answer")
				continue
			}
			answers = append(answers, a)
		}
		return elapsed, answers
	}

	// Cache miss (eviction or restart): the persisted rows are the truth.
	answers, dbErr := s.answerRepo.ListBySession(ctx, sess.ID)
	if dbErr != nil {
		s.log.Warn().Err(dbErr).Str("session_id", sess.ID.String()).Msg("Answer restore from database failed")
	}
	return elapsed, answers
}

// getLive fetches the live runtime for a session, rebuilding it from
// storage when the server restarted mid-attempt.
func (s *ExamSessionService) getLive(ctx context.Context, sessionID uuid.UUID, learnerID int) (*liveSession, *model.ExamSession, error) {
	s.mu.Lock()
	live, ok := s.live[sessionID]
	s.mu.Unlock()

	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}
	if sess.LearnerID != learnerID {
		return nil, nil, ErrNotSessionOwner
	}
	if ok {
		return live, sess, nil
	}

	// A session past submission never becomes live again.
	switch sess.State {
	case model.SessionStateNotStarted, model.SessionStateInProgress, model.SessionStatePaused:
	default:
		return nil, sess, session.ErrSessionFinished
	}

	exam, err := s.examRepo.GetByID(ctx, sess.ExamID)
	if err != nil {
		return nil, nil, fmt.Errorf("get exam: %w", err)
	}
	live, err = s.attach(ctx, sess, exam)
	if err != nil {
		return nil, nil, err
	}
	return live, sess, nil
}

// GetSessionState returns the rejoin snapshot: current state, elapsed and
// remaining time, recorded answers, and per-question indicators.
func (s *ExamSessionService) GetSessionState(ctx context.Context, sessionID uuid.UUID, learnerID int) (*SessionStateView, error) {
	live, sess, err := s.getLive(ctx, sessionID, learnerID)
	if errors.Is(err, session.ErrSessionFinished) {
		return s.persistedView(ctx, sess)
	}
	if err != nil {
		return nil, err
	}

	m := live.machine
	view := &SessionStateView{
		SessionID:        sessionID,
		State:            m.State(),
		TimeSpentSeconds: m.TimeSpent(),
		Questions:        m.QuestionStatuses(),
	}
	if sess.MaxTimeSeconds != nil {
		remaining := *sess.MaxTimeSeconds - view.TimeSpentSeconds
		if remaining < 0 {
			remaining = 0
		}
		view.RemainingSeconds = &remaining
	}
	if saved := m.LastSavedAt(); !saved.IsZero() {
		view.LastSavedAt = &saved
	}
	for _, q := range sess.Questions {
		if a, ok := m.Answer(q.ID); ok {
			view.Answers = append(view.Answers, a)
		}
	}
	return view, nil
}

// persistedView builds the state snapshot for a session past submission,
// straight from storage.
func (s *ExamSessionService) persistedView(ctx context.Context, sess *model.ExamSession) (*SessionStateView, error) {
	answers, err := s.answerRepo.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[uuid.UUID]model.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.SessionQuestionID] = a
	}

	view := &SessionStateView{
		SessionID:        sess.ID,
		State:            sess.State,
		TimeSpentSeconds: sess.TimeSpentSeconds,
		Answers:          answers,
	}
	for _, q := range sess.Questions {
		a, ok := byQuestion[q.ID]
		view.Questions = append(view.Questions, session.QuestionStatus{
			SessionQuestionID: q.ID,
			Answered:          ok && a.Answered(),
		})
	}
	return view, nil
}

// VerifyActiveSession confirms the learner holds an active session for the
// exam. Guards the paper endpoint against downloads without an attempt.
func (s *ExamSessionService) VerifyActiveSession(ctx context.Context, examID uuid.UUID, learnerID int) error {
	_, err := s.sessionRepo.GetActiveByExamAndLearner(ctx, examID, learnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSessionNotFound
	}
	return err
}

// RecordAnswer records a full-replacement answer on the live machine.
func (s *ExamSessionService) RecordAnswer(ctx context.Context, sessionID uuid.UUID, learnerID int, questionID uuid.UUID, sel session.Selection) (model.Answer, error) {
	live, _, err := s.getLive(ctx, sessionID, learnerID)
	if err != nil {
		return model.Answer{}, err
	}
	return live.machine.RecordAnswer(questionID, sel)
}

// ResetAnswer clears one question's answer on the live machine.
func (s *ExamSessionService) ResetAnswer(ctx context.Context, sessionID uuid.UUID, learnerID int, questionID uuid.UUID) (model.Answer, error) {
	live, _, err := s.getLive(ctx, sessionID, learnerID)
	if err != nil {
		return model.Answer{}, err
	}
	return live.machine.ResetAnswer(questionID)
}

// FlagQuestion toggles the navigation flag on a question. Flags are
// mirrored to Redis so they survive a rejoin, but they never block the
// response: a failed mirror only logs.
func (s *ExamSessionService) FlagQuestion(ctx context.Context, sessionID uuid.UUID, learnerID int, questionID uuid.UUID, flagged bool) error {
	live, _, err := s.getLive(ctx, sessionID, learnerID)
	if err != nil {
		return err
	}
	if err := live.machine.FlagQuestion(questionID, flagged); err != nil {
		return err
	}

	key := config.CacheKey.SessionFlagsKey(sessionID.String())
	var cacheErr error
	if flagged {
		cacheErr = s.rdb.HSet(ctx, key, questionID.String(), 1).Err()
	} else {
		cacheErr = s.rdb.HDel(ctx, key, questionID.String()).Err()
	}
	if cacheErr != nil {
		s.log.Warn().Err(cacheErr).Str("session_id", sessionID.String()).Msg("Flag cache update failed")
	}
	return nil
}

// Pause suspends the learner-visible timer.
func (s *ExamSessionService) Pause(ctx context.Context, sessionID uuid.UUID, learnerID int) error {
	live, _, err := s.getLive(ctx, sessionID, learnerID)
	if err != nil {
		return err
	}
	if err := live.machine.Pause(); err != nil {
		return err
	}
	return s.sessionRepo.UpdateState(ctx, sessionID, model.SessionStatePaused, model.SessionStateInProgress)
}

// Resume restores ticking after a pause.
func (s *ExamSessionService) Resume(ctx context.Context, sessionID uuid.UUID, learnerID int) error {
	live, _, err := s.getLive(ctx, sessionID, learnerID)
	if err != nil {
		return err
	}
	if err := live.machine.ResumeSession(); err != nil {
		return err
	}
	return s.sessionRepo.UpdateState(ctx, sessionID, model.SessionStateInProgress, model.SessionStatePaused)
}

// Subscribe registers live-event listeners for a session. The returned
// function unsubscribes; callers must invoke it when the connection ends.
func (s *ExamSessionService) Subscribe(ctx context.Context, sessionID uuid.UUID, learnerID int, sub SessionListeners) (func(), error) {
	live, _, err := s.getLive(ctx, sessionID, learnerID)
	if errors.Is(err, session.ErrSessionFinished) {
		// Nothing will ever fire again; give the caller a no-op handle.
		return func() {}, nil
	}
	if err != nil {
		return nil, err
	}
	return live.addListener(sub), nil
}

// Submit performs the explicit learner submission. The returned result is
// nil when the exam defers score visibility; repeat calls fail with
// session.ErrSessionFinished.
func (s *ExamSessionService) Submit(ctx context.Context, sessionID uuid.UUID, learnerID int) (*model.ExamSessionResult, error) {
	live, _, err := s.getLive(ctx, sessionID, learnerID)
	if err != nil {
		return nil, err
	}
	result, err := live.machine.Submit()
	if err != nil {
		return nil, err
	}
	if !live.showResults {
		return nil, nil
	}
	return result, nil
}

// persistSubmission runs once per session, from the machine's OnSubmitted
// callback. The SQL state guard makes the transition race-free; the result
// goes through the results queue so grading write load is batched.
func (s *ExamSessionService) persistSubmission(sess *model.ExamSession, trigger session.SubmitTrigger, result *model.ExamSessionResult) {
	ctx := context.Background()

	s.mu.Lock()
	live := s.live[sess.ID]
	s.mu.Unlock()

	if err := s.sessionRepo.MarkSubmitted(ctx, sess.ID, sess.TimeSpentSeconds); err != nil {
		if !errors.Is(err, repository.ErrStateConflict) {
			s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Mark submitted failed")
			return
		}
		// Already transitioned by a concurrent path; the result below is
		// identical, so continue.
	}

	payload, err := json.Marshal(resultPayload{
		Result:     *result,
		FinalState: sess.State,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Marshal result payload failed")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err(); err != nil {
		// Fall back to a direct write so the result is never lost.
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Results queue push failed, writing directly")
		if err := s.resultRepo.Save(ctx, result); err != nil {
			s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Direct result save failed")
			return
		}
		if err := s.sessionRepo.UpdateState(ctx, sess.ID, sess.State, model.SessionStateSubmitted); err != nil {
			s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Final state update failed")
		}
	}

	if live != nil {
		if err := live.syncer.Close(ctx); err != nil {
			s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Synchronizer close failed")
		}
	}
	s.mu.Lock()
	delete(s.live, sess.ID)
	s.mu.Unlock()

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Str("trigger", string(trigger)).
		Str("final_state", string(sess.State)).
		Float64("percentage", result.Percentage).
		Msg("Submission persisted")
}

// GetResult returns the grading result for a finished session. While the
// session is PENDING_REVIEW only the submission is acknowledged, never the
// scores.
func (s *ExamSessionService) GetResult(ctx context.Context, sessionID uuid.UUID, learnerID int) (*model.ExamSessionResult, error) {
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.LearnerID != learnerID {
		return nil, ErrNotSessionOwner
	}
	if !sess.State.IsFinal() {
		return nil, ErrResultNotReady
	}

	res, err := s.resultRepo.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotReady
		}
		return nil, err
	}
	return res, nil
}

// ListSessions lists a learner's sessions, newest first.
func (s *ExamSessionService) ListSessions(ctx context.Context, learnerID int) ([]repository.SessionSummary, error) {
	return s.sessionRepo.ListByLearner(ctx, learnerID)
}

// Shutdown flushes every live synchronizer. Called on graceful shutdown.
func (s *ExamSessionService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	lives := make([]*liveSession, 0, len(s.live))
	for _, l := range s.live {
		lives = append(lives, l)
	}
	s.mu.Unlock()

	for _, l := range lives {
		if err := l.syncer.Flush(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Shutdown flush failed")
		}
	}
}
