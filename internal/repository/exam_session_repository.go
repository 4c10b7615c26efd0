package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizora/quizora-backend/internal/model"
)

// ErrStateConflict is returned when a guarded transition finds the session
// in a state that does not permit it.
var ErrStateConflict = errors.New("session state does not permit this transition")

// SessionSummary is one row of a grader- or learner-facing session listing.
type SessionSummary struct {
	SessionID   uuid.UUID          `json:"session_id"`
	ExamID      uuid.UUID          `json:"exam_id"`
	ExamTitle   string             `json:"exam_title"`
	LearnerID   int                `json:"learner_id"`
	LearnerName string             `json:"learner_name"`
	State       model.SessionState `json:"state"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`
}

// ExamSessionRepository handles exam session data access, including the
// frozen question snapshot bound at session creation.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// Create inserts a session together with its question snapshot. The
// snapshot rows freeze text, choices, and correctness as they are at this
// moment; later question-bank edits never reach this session.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, learner_id, state, max_time_seconds)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, started_at`,
		s.ExamID, s.LearnerID, s.State, s.MaxTimeSeconds,
	).Scan(&s.ID, &s.StartedAt)
	if err != nil {
		return err
	}

	for i := range s.Questions {
		q := &s.Questions[i]
		err = tx.QueryRow(ctx,
			`INSERT INTO session_questions (session_id, question_id, question_type, question_text, max_points, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			s.ID, q.QuestionID, q.Type, q.Text, q.MaxPoints, i,
		).Scan(&q.ID)
		if err != nil {
			return err
		}
		for j := range q.Choices {
			c := &q.Choices[j]
			err = tx.QueryRow(ctx,
				`INSERT INTO session_choices (session_question_id, choice_text, correct, correct_order, order_num)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id`,
				q.ID, c.Text, c.Correct, c.CorrectOrder, j,
			).Scan(&c.ID)
			if err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

// GetByID retrieves a session with its full question snapshot.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, learner_id, state, started_at, finished_at, max_time_seconds, time_spent_seconds
		 FROM exam_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamID, &s.LearnerID, &s.State, &s.StartedAt, &s.FinishedAt, &s.MaxTimeSeconds, &s.TimeSpentSeconds)
	if err != nil {
		return nil, err
	}
	if err := r.loadQuestions(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetActiveByExamAndLearner returns the learner's non-final session for an
// exam, or pgx.ErrNoRows when none exists. Used for idempotent rejoin.
func (r *ExamSessionRepository) GetActiveByExamAndLearner(ctx context.Context, examID uuid.UUID, learnerID int) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, learner_id, state, started_at, finished_at, max_time_seconds, time_spent_seconds
		 FROM exam_sessions
		 WHERE exam_id = $1 AND learner_id = $2 AND state IN ($3, $4, $5)
		 ORDER BY started_at DESC
		 LIMIT 1`,
		examID, learnerID,
		model.SessionStateNotStarted, model.SessionStateInProgress, model.SessionStatePaused,
	).Scan(&s.ID, &s.ExamID, &s.LearnerID, &s.State, &s.StartedAt, &s.FinishedAt, &s.MaxTimeSeconds, &s.TimeSpentSeconds)
	if err != nil {
		return nil, err
	}
	if err := r.loadQuestions(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *ExamSessionRepository) loadQuestions(ctx context.Context, s *model.ExamSession) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, question_type, question_text, max_points
		 FROM session_questions WHERE session_id = $1
		 ORDER BY order_num`, s.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var q model.SessionQuestion
		if err := rows.Scan(&q.ID, &q.QuestionID, &q.Type, &q.Text, &q.MaxPoints); err != nil {
			return err
		}
		index[q.ID] = len(s.Questions)
		s.Questions = append(s.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(s.Questions) == 0 {
		return nil
	}

	choiceRows, err := r.pool.Query(ctx,
		`SELECT c.id, c.session_question_id, c.choice_text, c.correct, c.correct_order
		 FROM session_choices c
		 JOIN session_questions q ON c.session_question_id = q.id
		 WHERE q.session_id = $1
		 ORDER BY c.session_question_id, c.order_num`, s.ID,
	)
	if err != nil {
		return err
	}
	defer choiceRows.Close()

	for choiceRows.Next() {
		var c model.SessionChoice
		var qID uuid.UUID
		if err := choiceRows.Scan(&c.ID, &qID, &c.Text, &c.Correct, &c.CorrectOrder); err != nil {
			return err
		}
		if i, ok := index[qID]; ok {
			s.Questions[i].Choices = append(s.Questions[i].Choices, c)
		}
	}
	return choiceRows.Err()
}

// UpdateState performs a guarded transition: the row moves to the target
// state only if it currently sits in one of the allowed states. Returns
// ErrStateConflict otherwise.
func (r *ExamSessionRepository) UpdateState(ctx context.Context, id uuid.UUID, to model.SessionState, from ...model.SessionState) error {
	args := []any{to, id}
	placeholders := ""
	for i, st := range from {
		if i > 0 {
			placeholders += ", "
		}
		args = append(args, st)
		placeholders += "$" + strconv.Itoa(len(args))
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions SET state = $1 WHERE id = $2 AND state IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

// MarkSubmitted atomically transitions an active session to SUBMITTED. The
// state guard runs inside SQL, so concurrent learner and timeout submits
// resolve to exactly one transition. Returns ErrStateConflict for the loser.
func (r *ExamSessionRepository) MarkSubmitted(ctx context.Context, id uuid.UUID, timeSpent int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET state = $1, finished_at = NOW(),
		     time_spent_seconds = GREATEST(time_spent_seconds, $2)
		 WHERE id = $3 AND state IN ($4, $5)`,
		model.SessionStateSubmitted, timeSpent, id,
		model.SessionStateInProgress, model.SessionStatePaused)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStateConflict
	}
	return nil
}

// UpdateTimeSpent persists elapsed seconds. GREATEST keeps the column
// monotonic even if a stale write slips through the queue.
func (r *ExamSessionRepository) UpdateTimeSpent(ctx context.Context, id uuid.UUID, seconds int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET time_spent_seconds = GREATEST(time_spent_seconds, $1)
		 WHERE id = $2`, seconds, id)
	return err
}

// ListByLearner retrieves all of a learner's sessions, newest first.
func (r *ExamSessionRepository) ListByLearner(ctx context.Context, learnerID int) ([]SessionSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT es.id, es.exam_id, e.title, es.learner_id, l.name, es.state, es.started_at, es.finished_at
		 FROM exam_sessions es
		 JOIN exams e ON es.exam_id = e.id
		 JOIN learners l ON es.learner_id = l.id
		 WHERE es.learner_id = $1
		 ORDER BY es.started_at DESC`, learnerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// ListPendingReview retrieves every PENDING_REVIEW session for exams
// authored by the given grader.
func (r *ExamSessionRepository) ListPendingReview(ctx context.Context, graderID int) ([]SessionSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT es.id, es.exam_id, e.title, es.learner_id, l.name, es.state, es.started_at, es.finished_at
		 FROM exam_sessions es
		 JOIN exams e ON es.exam_id = e.id
		 JOIN learners l ON es.learner_id = l.id
		 WHERE e.author_id = $1 AND es.state = $2
		 ORDER BY es.finished_at ASC`, graderID, model.SessionStatePendingReview,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func scanSummaries(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]SessionSummary, error) {
	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.SessionID, &s.ExamID, &s.ExamTitle, &s.LearnerID, &s.LearnerName, &s.State, &s.StartedAt, &s.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
