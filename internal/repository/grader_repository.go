package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizora/quizora-backend/internal/model"
)

// GraderRepository handles grader data access.
type GraderRepository struct {
	pool *pgxpool.Pool
}

// NewGraderRepository creates a new GraderRepository.
func NewGraderRepository(pool *pgxpool.Pool) *GraderRepository {
	return &GraderRepository{pool: pool}
}

// GetByID retrieves a grader by ID.
func (r *GraderRepository) GetByID(ctx context.Context, id int) (*model.Grader, error) {
	g := &model.Grader{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM graders WHERE id = $1`, id,
	).Scan(&g.ID, &g.Email, &g.Name, &g.PasswordHash, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetByEmail retrieves a grader by their unique email.
func (r *GraderRepository) GetByEmail(ctx context.Context, email string) (*model.Grader, error) {
	g := &model.Grader{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at
		 FROM graders WHERE email = $1`, email,
	).Scan(&g.ID, &g.Email, &g.Name, &g.PasswordHash, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Create inserts a new grader.
func (r *GraderRepository) Create(ctx context.Context, g *model.Grader) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO graders (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		g.Email, g.Name, g.PasswordHash,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
}
