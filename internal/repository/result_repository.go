package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizora/quizora-backend/internal/model"
)

// ResultRepository handles grading results: the per-session aggregate and
// its per-question breakdown.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Save upserts the aggregate row and the full per-question breakdown in
// one transaction. Question rows go through a single UNNEST insert rather
// than a round trip per question. Used on submit and again after review
// overrides; the upsert makes both idempotent.
func (r *ResultRepository) Save(ctx context.Context, res *model.ExamSessionResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO session_results (session_id, total_score, total_possible, percentage, passing)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id) DO UPDATE
		 SET total_score = EXCLUDED.total_score,
		     total_possible = EXCLUDED.total_possible,
		     percentage = EXCLUDED.percentage,
		     passing = EXCLUDED.passing,
		     updated_at = NOW()`,
		res.SessionID, res.TotalScore, res.TotalPossible, res.Percentage, res.Passing)
	if err != nil {
		return err
	}

	n := len(res.Questions)
	questionIDs := make([]uuid.UUID, 0, n)
	earned := make([]int, 0, n)
	possible := make([]int, 0, n)
	correctness := make([]string, 0, n)
	for _, q := range res.Questions {
		questionIDs = append(questionIDs, q.SessionQuestionID)
		earned = append(earned, q.PointsEarned)
		possible = append(possible, q.MaxPoints)
		correctness = append(correctness, string(q.Correctness))
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO question_results (session_id, session_question_id, points_earned, max_points, correctness)
		 SELECT $1, u.session_question_id, u.points_earned, u.max_points, u.correctness
		 FROM UNNEST(
			$2::uuid[],
			$3::int[],
			$4::int[],
			$5::text[]
		 ) AS u (session_question_id, points_earned, max_points, correctness)
		 ON CONFLICT (session_id, session_question_id) DO UPDATE
		 SET points_earned = EXCLUDED.points_earned,
		     max_points = EXCLUDED.max_points,
		     correctness = EXCLUDED.correctness`,
		res.SessionID, questionIDs, earned, possible, correctness)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetBySession retrieves the aggregate and its question breakdown.
func (r *ResultRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.ExamSessionResult, error) {
	res := &model.ExamSessionResult{}
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, total_score, total_possible, percentage, passing
		 FROM session_results WHERE session_id = $1`, sessionID,
	).Scan(&res.SessionID, &res.TotalScore, &res.TotalPossible, &res.Percentage, &res.Passing)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT qr.session_question_id, qr.points_earned, qr.max_points, qr.correctness
		 FROM question_results qr
		 JOIN session_questions sq ON qr.session_question_id = sq.id
		 WHERE qr.session_id = $1
		 ORDER BY sq.order_num`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var q model.ScoreResult
		if err := rows.Scan(&q.SessionQuestionID, &q.PointsEarned, &q.MaxPoints, &q.Correctness); err != nil {
			return nil, err
		}
		res.Questions = append(res.Questions, q)
	}
	return res, rows.Err()
}
