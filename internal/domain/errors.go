package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Wrap them with NewDomainError or fmt.Errorf("%w") so that
// ErrorCodeOf can classify the failure for logs and metrics.
var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrDuplicate     = fmt.Errorf("duplicate")
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrProviderError = fmt.Errorf("provider error")
	ErrRateLimit     = fmt.Errorf("rate limit exceeded")
	ErrCircuitOpen   = fmt.Errorf("circuit open")
	ErrConfigLoad    = fmt.Errorf("failed to load configuration")
	ErrDecryption    = fmt.Errorf("decryption failed")
	ErrEncryption    = fmt.Errorf("encryption operation failed")
)

// Interaction protocol errors. Each maps to a private notice shown to the
// user who clicked a result button.
var (
	ErrMalformedButton = fmt.Errorf("malformed button id")
	ErrMenuExpired     = fmt.Errorf("result menu expired: %w", ErrNotFound)
	ErrBadSelection    = fmt.Errorf("selection out of range: %w", ErrInvalidInput)
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.New")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown         ErrorCode = "UNKNOWN"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeDuplicate       ErrorCode = "DUPLICATE"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeInvalidInput    ErrorCode = "INVALID_INPUT"
	CodeProviderError   ErrorCode = "PROVIDER_ERROR"
	CodeRateLimit       ErrorCode = "RATE_LIMIT"
	CodeCircuitOpen     ErrorCode = "CIRCUIT_OPEN"
	CodeConfigLoad      ErrorCode = "CONFIG_LOAD"
	CodeDecryption      ErrorCode = "DECRYPTION"
	CodeEncryption      ErrorCode = "ENCRYPTION"
	CodeMalformedButton ErrorCode = "MALFORMED_BUTTON"
	CodeMenuExpired     ErrorCode = "MENU_EXPIRED"
	CodeBadSelection    ErrorCode = "BAD_SELECTION"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
// Specific sentinels are checked before the categories they wrap.
var errorCodeMap = []struct {
	err  error
	code ErrorCode
}{
	{ErrMalformedButton, CodeMalformedButton},
	{ErrMenuExpired, CodeMenuExpired},
	{ErrBadSelection, CodeBadSelection},
	{ErrNotFound, CodeNotFound},
	{ErrDuplicate, CodeDuplicate},
	{ErrTimeout, CodeTimeout},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrProviderError, CodeProviderError},
	{ErrRateLimit, CodeRateLimit},
	{ErrCircuitOpen, CodeCircuitOpen},
	{ErrConfigLoad, CodeConfigLoad},
	{ErrDecryption, CodeDecryption},
	{ErrEncryption, CodeEncryption},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	for _, m := range errorCodeMap {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
