package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizora/quizora-backend/internal/model"
)

// QuestionRepository handles question-bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for a given exam with their choices,
// ordered by order_num.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_type, question_text, max_points, order_num
		 FROM questions WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Type, &q.Text, &q.MaxPoints, &q.OrderNum); err != nil {
			return nil, err
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, nil
	}

	choiceRows, err := r.pool.Query(ctx,
		`SELECT c.id, c.question_id, c.choice_text, c.correct, c.correct_order, c.order_num
		 FROM question_choices c
		 JOIN questions q ON c.question_id = q.id
		 WHERE q.exam_id = $1
		 ORDER BY c.question_id, c.order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer choiceRows.Close()

	for choiceRows.Next() {
		var c model.QuestionChoice
		if err := choiceRows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.Correct, &c.CorrectOrder, &c.OrderNum); err != nil {
			return nil, err
		}
		if i, ok := index[c.QuestionID]; ok {
			questions[i].Choices = append(questions[i].Choices, c)
		}
	}
	return questions, choiceRows.Err()
}

// Create inserts a new question with its choices in one transaction.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO questions (exam_id, question_type, question_text, max_points, order_num)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		q.ExamID, q.Type, q.Text, q.MaxPoints, q.OrderNum,
	).Scan(&q.ID)
	if err != nil {
		return err
	}

	for i := range q.Choices {
		c := &q.Choices[i]
		c.QuestionID = q.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO question_choices (question_id, choice_text, correct, correct_order, order_num)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			c.QuestionID, c.Text, c.Correct, c.CorrectOrder, c.OrderNum,
		).Scan(&c.ID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
