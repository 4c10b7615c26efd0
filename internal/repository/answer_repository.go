package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizora/quizora-backend/internal/model"
)

// AnswerRepository handles persisted session answers. Choices are stored
// as JSONB so every question type shares one row shape.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert writes the full-replacement answer for one question. The seq
// guard enforces last-writer-wins by issuance order: a write whose seq is
// not greater than the stored one is silently dropped, so a stale
// in-flight save can never clobber a newer edit.
func (r *AnswerRepository) Upsert(ctx context.Context, sessionID uuid.UUID, ans model.Answer, seq uint64) error {
	choices, err := json.Marshal(ans.Choices)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO session_answers (session_id, session_question_id, choices, time_spent_seconds, seq)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, session_question_id) DO UPDATE
		 SET choices = EXCLUDED.choices,
		     time_spent_seconds = EXCLUDED.time_spent_seconds,
		     seq = EXCLUDED.seq,
		     updated_at = NOW()
		 WHERE session_answers.seq < EXCLUDED.seq`,
		sessionID, ans.SessionQuestionID, choices, ans.TimeSpentSeconds, seq,
	)
	return err
}

// ListBySession retrieves every persisted answer of a session.
func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_question_id, choices, time_spent_seconds
		 FROM session_answers WHERE session_id = $1`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		var choices []byte
		if err := rows.Scan(&a.SessionQuestionID, &choices, &a.TimeSpentSeconds); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(choices, &a.Choices); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
