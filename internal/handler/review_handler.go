package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizora/quizora-backend/internal/middleware"
	"github.com/quizora/quizora-backend/internal/response"
	"github.com/quizora/quizora-backend/internal/review"
	"github.com/quizora/quizora-backend/internal/service"
	"github.com/quizora/quizora-backend/internal/validator"
)

// ReviewHandler handles grader review of PENDING_REVIEW sessions.
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// SetPointsRequest overrides the earned points for one question.
type SetPointsRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Points     *int      `json:"points" binding:"required"`
}

// FinalizeRequest closes a grading pass. Complete transitions the session
// to REVIEWED; otherwise overrides are persisted and the session stays
// PENDING_REVIEW.
type FinalizeRequest struct {
	Complete bool `json:"complete"`
}

// ListPending godoc
// GET /api/v1/grader/reviews
// Lists sessions awaiting review for the grader's exams.
func (h *ReviewHandler) ListPending(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessions, err := h.reviewService.ListPending(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

// Open godoc
// GET /api/v1/grader/reviews/:session_id
// Opens (or resumes) a review and returns the current aggregate.
func (h *ReviewHandler) Open(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.reviewService.Open(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failReview(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// SetPoints godoc
// PUT /api/v1/grader/reviews/:session_id/points
// Overrides one question's earned points and returns the recomputed
// aggregate.
func (h *ReviewHandler) SetPoints(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req SetPointsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.reviewService.SetQuestionPoints(c.Request.Context(), sessionID, claims.UserID, req.QuestionID, *req.Points)
	if err != nil {
		failReview(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Reset godoc
// POST /api/v1/grader/reviews/:session_id/reset
// Discards every override, restoring the auto-graded baseline.
func (h *ReviewHandler) Reset(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.reviewService.ResetReview(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failReview(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Finalize godoc
// POST /api/v1/grader/reviews/:session_id/finalize
// Persists the grading pass; with complete=true the session becomes
// REVIEWED and the result freezes.
func (h *ReviewHandler) Finalize(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req FinalizeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.reviewService.Finalize(c.Request.Context(), sessionID, claims.UserID, req.Complete)
	if err != nil {
		failReview(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// failReview maps review-service errors to API error codes.
func failReview(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrNotExamGrader):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, review.ErrNotPendingReview):
		response.Fail(c, http.StatusConflict, response.ErrReviewNotPending)
	case errors.Is(err, review.ErrReviewFinalized):
		response.Fail(c, http.StatusConflict, response.ErrReviewFinalized)
	case errors.Is(err, review.ErrPointsOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrPointsOutOfRange)
	case errors.Is(err, review.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
