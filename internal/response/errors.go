package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrSessionInvalid     ErrCode = "SESSION_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation      ErrCode = "VALIDATION_ERROR"
	ErrWeakPassword    ErrCode = "WEAK_PASSWORD"
	ErrPasswordTooLong ErrCode = "PASSWORD_TOO_LONG"
	ErrInvalidRole     ErrCode = "INVALID_ROLE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound      ErrCode = "NOT_FOUND"
	ErrEmailTaken    ErrCode = "EMAIL_TAKEN"
	ErrSetupClosed   ErrCode = "SETUP_CLOSED"
	ErrSelfAdminEdit ErrCode = "SELF_ADMIN_CHANGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrBackendUnavailable ErrCode = "BACKEND_UNAVAILABLE"
	ErrInternal           ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrTokenRequired:
		return "Authentication required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or has expired."
	case ErrSessionInvalid:
		return "Your session has ended. Please sign in again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrWeakPassword:
		return "Password must be at least 8 characters."
	case ErrPasswordTooLong:
		return "Password must be at most 72 bytes."
	case ErrInvalidRole:
		return "Unknown role."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrEmailTaken:
		return "An admin with this email already exists."
	case ErrSetupClosed:
		return "Initial setup has already been completed."
	case ErrSelfAdminEdit:
		return "You cannot change your own role or active state."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrBackendUnavailable:
		return "Authentication service is unavailable."
	case ErrInternal:
		return "Internal server error."
	default:
		return "Unexpected error."
	}
}
