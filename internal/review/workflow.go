// Package review implements the manual-grading workflow: bounded
// per-question point overrides on a PENDING_REVIEW session, aggregate
// recomputation after every change, and the transition to REVIEWED.
package review

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/model"
	"github.com/quizora/quizora-backend/internal/scoring"
)

var (
	ErrNotPendingReview = errors.New("session is not pending review")
	ErrReviewFinalized  = errors.New("review has already been finalized")
	ErrPointsOutOfRange = errors.New("points outside the 0..maxPoints range")
	ErrUnknownQuestion  = errors.New("question is not part of the session")
)

// Workflow drives one grader review of a PENDING_REVIEW session.
//
// The baseline is the Scoring-Engine-computed result; overrides replace
// per-question points within [0, maxPoints], and the aggregate is
// recomputed after every change so percentage and pass/fail always match
// the current override state.
type Workflow struct {
	mu           sync.Mutex
	sess         *model.ExamSession
	passingScore float64
	baseline     []model.ScoreResult
	current      []model.ScoreResult
	index        map[uuid.UUID]int
	finalized    bool
}

// New builds a Workflow for a PENDING_REVIEW session, computing the
// engine baseline from the stored answers.
func New(sess *model.ExamSession, answers map[uuid.UUID]model.Answer, passingScore float64) (*Workflow, error) {
	if sess.State != model.SessionStatePendingReview {
		return nil, ErrNotPendingReview
	}

	base, err := scoring.GradeSession(sess, answers, passingScore)
	if err != nil {
		return nil, fmt.Errorf("compute baseline: %w", err)
	}
	return fromBaseline(sess, base.Questions, passingScore), nil
}

// Resume rebuilds a Workflow from previously persisted per-question
// results (incremental grading across grader visits).
func Resume(sess *model.ExamSession, baseline, current []model.ScoreResult, passingScore float64) (*Workflow, error) {
	if sess.State != model.SessionStatePendingReview {
		return nil, ErrNotPendingReview
	}
	w := fromBaseline(sess, baseline, passingScore)
	for _, r := range current {
		if i, ok := w.index[r.SessionQuestionID]; ok {
			w.current[i] = r
		}
	}
	return w, nil
}

func fromBaseline(sess *model.ExamSession, baseline []model.ScoreResult, passingScore float64) *Workflow {
	w := &Workflow{
		sess:         sess,
		passingScore: passingScore,
		baseline:     append([]model.ScoreResult(nil), baseline...),
		current:      append([]model.ScoreResult(nil), baseline...),
		index:        make(map[uuid.UUID]int, len(baseline)),
	}
	for i, r := range baseline {
		w.index[r.SessionQuestionID] = i
	}
	return w
}

// SetQuestionPoints overrides one question's earned points. Out-of-range
// values are rejected and the prior value stays unchanged.
func (w *Workflow) SetQuestionPoints(questionID uuid.UUID, points int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return ErrReviewFinalized
	}
	i, ok := w.index[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if points < 0 || points > w.current[i].MaxPoints {
		return fmt.Errorf("question %s: %d points: %w", questionID, points, ErrPointsOutOfRange)
	}
	w.current[i].PointsEarned = points
	w.current[i].Correctness = model.CorrectnessFor(points, w.current[i].MaxPoints)
	return nil
}

// ResetReview restores every question to the engine-computed baseline.
func (w *Workflow) ResetReview() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return ErrReviewFinalized
	}
	copy(w.current, w.baseline)
	return nil
}

// Result returns the aggregate under the current override state.
func (w *Workflow) Result() *model.ExamSessionResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resultLocked()
}

func (w *Workflow) resultLocked() *model.ExamSessionResult {
	results := append([]model.ScoreResult(nil), w.current...)
	return scoring.Aggregate(w.sess.ID, results, w.passingScore)
}

// Finalize closes one grading pass. With complete=false the overrides are
// returned for persistence but the session stays PENDING_REVIEW, allowing
// incremental grading. With complete=true the session transitions to
// REVIEWED and the result freezes.
func (w *Workflow) Finalize(complete bool) (*model.ExamSessionResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return nil, ErrReviewFinalized
	}
	res := w.resultLocked()
	if complete {
		w.sess.State = model.SessionStateReviewed
		w.finalized = true
	}
	return res, nil
}
