package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidStudentID   ErrCode = "INVALID_STUDENT_ID"
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Slot access ───────────────────────────────────────────────────
	ErrSlotNotOpen  ErrCode = "SLOT_NOT_OPEN"
	ErrSlotExpired  ErrCode = "SLOT_EXPIRED"
	ErrSlotFull     ErrCode = "SLOT_FULL"
	ErrSlotMismatch ErrCode = "SLOT_MISMATCH"

	// ─── Exam lifecycle ────────────────────────────────────────────────
	ErrExamAlreadyCompleted ErrCode = "EXAM_ALREADY_COMPLETED"
	ErrExamNotActive        ErrCode = "EXAM_NOT_ACTIVE"
	ErrNoQuestions          ErrCode = "NO_QUESTIONS"
	ErrInvalidAction        ErrCode = "INVALID_ACTION"

	// ─── Submission ────────────────────────────────────────────────────
	ErrStoreOffline ErrCode = "STORE_OFFLINE"
	ErrSaveFailed   ErrCode = "SAVE_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidStudentID:
		return "Student ID not recognized. Please check your ID and try again."
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to candidates."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Slot access ───────────────────────────────────────────────────
	case ErrSlotNotOpen:
		return "Your exam slot has not opened yet."
	case ErrSlotExpired:
		return "Your exam slot has closed."
	case ErrSlotFull:
		return "Your exam slot has reached its capacity."
	case ErrSlotMismatch:
		return "You are not assigned to this exam slot."

	// ─── Exam lifecycle ────────────────────────────────────────────────
	case ErrExamAlreadyCompleted:
		return "You have already completed this exam. Retakes are not allowed."
	case ErrExamNotActive:
		return "No active exam session was found."
	case ErrNoQuestions:
		return "No questions are available for this exam set."
	case ErrInvalidAction:
		return "This action is not allowed in the current exam state."

	// ─── Submission ────────────────────────────────────────────────────
	case ErrStoreOffline:
		return "The result store is unreachable. Your answers are preserved; please retry submission."
	case ErrSaveFailed:
		return "Your result could not be saved. Please retry submission."

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
