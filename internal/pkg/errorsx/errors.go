package errorsx

import "errors"

var (
	// Retryable indicates the operation may succeed if retried
	Retryable = errors.New("retryable")
	// Permanent indicates the operation will not succeed upon retry
	Permanent = errors.New("permanent")

	// ErrValidation marks an envelope or payload that failed schema checks.
	ErrValidation = errors.New("validation error")
	// ErrBackendUnavailable marks a stream backend that is unreachable after internal retries.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrUnknownType marks an envelope type with no registry entry.
	ErrUnknownType = errors.New("unknown type")
	// ErrUnsupportedVersion marks an envelope whose (type, version) has no schema.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrDuplicateTask marks a dedup_key collision; carries the existing task id to the caller.
	ErrDuplicateTask = errors.New("duplicate task")
	// ErrCancelled marks an in-flight operation interrupted by shutdown.
	ErrCancelled = errors.New("cancelled")
)

// WrapRetryable wraps an error as retryable
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(Retryable, err)
}

// WrapPermanent wraps an error as permanent
func WrapPermanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(Permanent, err)
}

func IsRetryable(err error) bool {
	return errors.Is(err, Retryable)
}

func IsPermanent(err error) bool {
	return errors.Is(err, Permanent)
}

// IsValidation reports whether err (possibly wrapped) is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnknownType reports whether err (possibly wrapped) names an unregistered event type.
func IsUnknownType(err error) bool {
	return errors.Is(err, ErrUnknownType)
}

// IsUnsupportedVersion reports whether err (possibly wrapped) names a (type, version) with no schema.
func IsUnsupportedVersion(err error) bool {
	return errors.Is(err, ErrUnsupportedVersion)
}

// IsCancelled reports whether err (possibly wrapped) stems from shutdown cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// Stable string codes for the sentinel errors above, used wherever an error
// crosses a wire boundary (HTTP responses, admin surface) and a caller needs
// something to switch on besides a free-text message.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeUnknownType        = "UNKNOWN_TYPE"
	CodeUnsupportedVersion = "UNSUPPORTED_VERSION"
	CodeDuplicateTask      = "DUPLICATE_TASK"
	CodeCancelled          = "CANCELLED"
	CodeInternal           = "INTERNAL_ERROR"
)

// Code maps err (possibly wrapped) to a stable taxonomy code for responses
// that need one, falling back to CodeInternal for anything unrecognized.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return CodeValidation
	case errors.Is(err, ErrBackendUnavailable):
		return CodeBackendUnavailable
	case IsUnknownType(err):
		return CodeUnknownType
	case IsUnsupportedVersion(err):
		return CodeUnsupportedVersion
	case errors.Is(err, ErrDuplicateTask):
		return CodeDuplicateTask
	case IsCancelled(err):
		return CodeCancelled
	default:
		return CodeInternal
	}
}
