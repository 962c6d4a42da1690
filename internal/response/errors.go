package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidTime    ErrCode = "INVALID_TIME_INPUT"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Scheduling ────────────────────────────────────────────────────
	ErrSubjectNotFound     ErrCode = "SUBJECT_NOT_FOUND"
	ErrSubjectInactive     ErrCode = "SUBJECT_INACTIVE"
	ErrInsufficientBalance ErrCode = "INSUFFICIENT_SESSION_BALANCE"
	ErrGroupEmpty          ErrCode = "GROUP_EMPTY"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrSessionNotFound   ErrCode = "SESSION_NOT_FOUND"
	ErrInvalidTransition ErrCode = "INVALID_STATE_TRANSITION"
	ErrCancelWindow      ErrCode = "CANCELLATION_WINDOW_CLOSED"
	ErrWrongSessionType  ErrCode = "WRONG_SESSION_TYPE"

	// ─── Makeup credits ────────────────────────────────────────────────
	ErrCreditNotFound    ErrCode = "CREDIT_NOT_FOUND"
	ErrCreditAlreadyUsed ErrCode = "CREDIT_ALREADY_USED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrInvalidTime:
		return "Invalid date, time or timezone input."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Scheduling ────────────────────────────────────────────────────
	case ErrSubjectNotFound:
		return "Student or group not found."
	case ErrSubjectInactive:
		return "Student or group is inactive."
	case ErrInsufficientBalance:
		return "Not enough remaining sessions in the balance."
	case ErrGroupEmpty:
		return "Group has no active members to schedule for."

	// ─── Session lifecycle ─────────────────────────────────────────────
	case ErrSessionNotFound:
		return "Session not found."
	case ErrInvalidTransition:
		return "Session state does not allow this operation."
	case ErrCancelWindow:
		return "The cancellation window for this session has closed."
	case ErrWrongSessionType:
		return "Operation does not apply to this session type."

	// ─── Makeup credits ────────────────────────────────────────────────
	case ErrCreditNotFound:
		return "Makeup credit not found."
	case ErrCreditAlreadyUsed:
		return "Makeup credit has already been used."

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
