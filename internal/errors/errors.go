package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError carries the operator-facing message, the user-facing message, and
// routing metadata for an application failure.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewValidationError reports malformed user input. Never retried.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: fmt.Sprintf("That doesn't look right. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

// NewStoreError reports a database failure. Store-level failures are fatal to
// the cycle, unlike per-user failures.
func NewStoreError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("store error: %s", underlyingMsg),
		UserMessage: "Something went wrong on our side. Please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewDeliveryError reports that a prompt or notification could not be sent to
// one user. Fan-out continues; the session still times out normally.
func NewDeliveryError(telegramID int64, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("prompt delivery failed for user %d", telegramID),
		UserMessage: "",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewSubmissionError reports a failed hand-off to the submission agent. The
// cycle stays resolved so the order can be re-filed without re-asking users.
func NewSubmissionError(lunchDate string, cause error) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     fmt.Sprintf("submission failed for %s", lunchDate),
		UserMessage: "The lunch order could not be filed. The operator has been notified.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewStateError reports an operation attempted in an incompatible
// conversation or cycle state.
func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     msg,
		UserMessage: "That action isn't available right now.",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

// NewConfigError reports invalid configuration. Always fatal at startup.
func NewConfigError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E600",
		Message:     fmt.Sprintf("configuration error: %s", underlyingMsg),
		UserMessage: "",
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}
