package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/repository"
	"github.com/quizora/quizora-backend/internal/review"
	"github.com/rs/zerolog"
)

var ErrNotExamGrader = errors.New("session belongs to an exam by another author")

// ReviewService drives grader reviews of PENDING_REVIEW sessions. A
// workflow stays in memory across a grader's incremental passes and is
// rebuilt from persisted rows after a restart.
type ReviewService struct {
	sessionRepo *repository.ExamSessionRepository
	examRepo    *repository.ExamRepository
	answerRepo  *repository.AnswerRepository
	resultRepo  *repository.ResultRepository
	log         zerolog.Logger

	mu        sync.Mutex
	workflows map[uuid.UUID]*review.Workflow
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	sessionRepo *repository.ExamSessionRepository,
	examRepo *repository.ExamRepository,
	answerRepo *repository.AnswerRepository,
	resultRepo *repository.ResultRepository,
	log zerolog.Logger,
) *ReviewService {
	return &ReviewService{
		sessionRepo: sessionRepo,
		examRepo:    examRepo,
		answerRepo:  answerRepo,
		resultRepo:  resultRepo,
		log:         log.With().Str("component", "review_service").Logger(),
		workflows:   make(map[uuid.UUID]*review.Workflow),
	}
}

// ListPending lists every session awaiting review for the grader's exams.
func (s *ReviewService) ListPending(ctx context.Context, graderID int) ([]repository.SessionSummary, error) {
	return s.sessionRepo.ListPendingReview(ctx, graderID)
}

// Open loads (or resumes) the review workflow for a session and returns
// the aggregate under the current override state.
func (s *ReviewService) Open(ctx context.Context, sessionID uuid.UUID, graderID int) (*model.ExamSessionResult, error) {
	w, err := s.workflow(ctx, sessionID, graderID)
	if err != nil {
		return nil, err
	}
	return w.Result(), nil
}

// SetQuestionPoints overrides one question's earned points.
func (s *ReviewService) SetQuestionPoints(ctx context.Context, sessionID uuid.UUID, graderID int, questionID uuid.UUID, points int) (*model.ExamSessionResult, error) {
	w, err := s.workflow(ctx, sessionID, graderID)
	if err != nil {
		return nil, err
	}
	if err := w.SetQuestionPoints(questionID, points); err != nil {
		return nil, err
	}
	return w.Result(), nil
}

// ResetReview restores every question to the engine-computed baseline.
func (s *ReviewService) ResetReview(ctx context.Context, sessionID uuid.UUID, graderID int) (*model.ExamSessionResult, error) {
	w, err := s.workflow(ctx, sessionID, graderID)
	if err != nil {
		return nil, err
	}
	if err := w.ResetReview(); err != nil {
		return nil, err
	}
	return w.Result(), nil
}

// Finalize closes a grading pass. complete=false persists the overrides
// but keeps the session PENDING_REVIEW for later visits; complete=true
// transitions it to REVIEWED and freezes the result.
func (s *ReviewService) Finalize(ctx context.Context, sessionID uuid.UUID, graderID int, complete bool) (*model.ExamSessionResult, error) {
	w, err := s.workflow(ctx, sessionID, graderID)
	if err != nil {
		return nil, err
	}
	result, err := w.Finalize(complete)
	if err != nil {
		return nil, err
	}

	if err := s.resultRepo.Save(ctx, result); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}
	if complete {
		if err := s.sessionRepo.UpdateState(ctx, sessionID, model.SessionStateReviewed, model.SessionStatePendingReview); err != nil {
			return nil, fmt.Errorf("finalize state: %w", err)
		}
		s.mu.Lock()
		delete(s.workflows, sessionID)
		s.mu.Unlock()

		s.log.Info().
			Str("session_id", sessionID.String()).
			Int("grader_id", graderID).
			Float64("percentage", result.Percentage).
			Msg("Review finalized")
	}
	return result, nil
}

func (s *ReviewService) workflow(ctx context.Context, sessionID uuid.UUID, graderID int) (*review.Workflow, error) {
	s.mu.Lock()
	if w, ok := s.workflows[sessionID]; ok {
		s.mu.Unlock()
		return w, nil
	}
	s.mu.Unlock()

	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	exam, err := s.examRepo.GetByID(ctx, sess.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.AuthorID != graderID {
		return nil, ErrNotExamGrader
	}

	answers, err := s.answerRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	answerMap := make(map[uuid.UUID]model.Answer, len(answers))
	for _, a := range answers {
		answerMap[a.SessionQuestionID] = a
	}

	w, err := review.New(sess, answerMap, exam.PassingScore)
	if err != nil {
		return nil, err
	}

	// A previous grading pass may have persisted overrides: resume from
	// them rather than the raw engine baseline.
	if persisted, perr := s.resultRepo.GetBySession(ctx, sessionID); perr == nil {
		w, err = review.Resume(sess, w.Result().Questions, persisted.Questions, exam.PassingScore)
		if err != nil {
			return nil, err
		}
	} else if !errors.Is(perr, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load persisted results: %w", perr)
	}

	s.mu.Lock()
	if existing, ok := s.workflows[sessionID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.workflows[sessionID] = w
	s.mu.Unlock()
	return w, nil
}
