package exitcode

import (
	stderrors "errors"
	"os"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ValidationError indicates input rejected before any request was sent
	ValidationError = 3

	// ConflictError indicates a batch reorder failed and the list was reloaded
	ConflictError = 4

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// RemoteError indicates the API answered with a non-auth error
	RemoteError = 7

	// Interrupted indicates the user cancelled with Ctrl+C
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps the first coded error in err's chain to an exit status.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var adminErr *errors.AdminError
	if !stderrors.As(err, &adminErr) {
		return GeneralError
	}

	switch adminErr.Code {
	case errors.ErrCodeAuthExpired, errors.ErrCodeAuthInvalid,
		errors.ErrCodeAuthRequired, errors.ErrCodeAuthForbidden:
		return AuthError
	case errors.ErrCodeValidation:
		return ValidationError
	case errors.ErrCodeReorderConflict, errors.ErrCodeReorderBusy:
		return ConflictError
	case errors.ErrCodeReorderIndex, errors.ErrCodeConfigMissing, errors.ErrCodeConfigInvalid:
		return UsageError
	case errors.ErrCodeNetwork:
		return NetworkError
	case errors.ErrCodeRemote, errors.ErrCodeNotFound, errors.ErrCodeDecode:
		// A remote failure that was really an expired session still exits as auth.
		if errors.HasCode(adminErr.Cause, errors.ErrCodeAuthExpired) {
			return AuthError
		}
		return RemoteError
	default:
		return GeneralError
	}
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, arguments or configuration)"
	case ValidationError:
		return "Validation error"
	case ConflictError:
		return "Reorder conflict"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case RemoteError:
		return "Remote API error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
