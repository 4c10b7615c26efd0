package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrLearnerAccessOnly ErrCode = "LEARNER_ACCESS_ONLY"
	ErrGraderAccessOnly  ErrCode = "GRADER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam ──────────────────────────────────────────────────────────
	ErrExamNotAvailable ErrCode = "EXAM_NOT_AVAILABLE"
	ErrExamNotPublished ErrCode = "EXAM_NOT_PUBLISHED"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"

	// ─── Session ───────────────────────────────────────────────────────
	ErrSessionNotFound         ErrCode = "SESSION_NOT_FOUND"
	ErrSessionNotInProgress    ErrCode = "SESSION_NOT_IN_PROGRESS"
	ErrSessionNotPaused        ErrCode = "SESSION_NOT_PAUSED"
	ErrSessionAlreadySubmitted ErrCode = "SESSION_ALREADY_SUBMITTED"
	ErrNothingAnswered         ErrCode = "NOTHING_ANSWERED"
	ErrUnknownQuestion         ErrCode = "UNKNOWN_QUESTION"
	ErrMalformedAnswer         ErrCode = "MALFORMED_ANSWER"
	ErrDataIntegrity           ErrCode = "DATA_INTEGRITY"
	ErrResultNotReady          ErrCode = "RESULT_NOT_READY"

	// ─── Review ────────────────────────────────────────────────────────
	ErrReviewNotPending ErrCode = "REVIEW_NOT_PENDING"
	ErrReviewFinalized  ErrCode = "REVIEW_FINALIZED"
	ErrPointsOutOfRange ErrCode = "POINTS_OUT_OF_RANGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect email or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrLearnerAccessOnly:
		return "This resource is restricted to learners."
	case ErrGraderAccessOnly:
		return "This resource is restricted to graders."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam ──────────────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrExamNotPublished:
		return "This exam has not been published."
	case ErrNoQuestions:
		return "This exam has no questions."

	// ─── Session ───────────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "Exam session not found."
	case ErrSessionNotInProgress:
		return "The exam session is not in progress."
	case ErrSessionNotPaused:
		return "The exam session is not paused."
	case ErrSessionAlreadySubmitted:
		return "The exam session has already been submitted."
	case ErrNothingAnswered:
		return "At least one question must be answered before submitting."
	case ErrUnknownQuestion:
		return "The question is not part of this exam session."
	case ErrMalformedAnswer:
		return "The submitted answer is malformed."
	case ErrDataIntegrity:
		return "The exam data is inconsistent. Please contact support."
	case ErrResultNotReady:
		return "The result is not available yet."

	// ─── Review ────────────────────────────────────────────────────────
	case ErrReviewNotPending:
		return "The exam session is not pending review."
	case ErrReviewFinalized:
		return "The review has already been finalized."
	case ErrPointsOutOfRange:
		return "Awarded points must be between zero and the question maximum."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
