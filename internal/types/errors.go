package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All components MUST use these constants instead of hardcoded strings.
const (
	// Data integrity (persisted record fails to map back to a valid entity)
	ErrCodeDataIntegrity    ErrorCode = "data_integrity_violation"
	ErrCodeDataUnknownEnum  ErrorCode = "data_unknown_enum_tag"
	ErrCodeDataMissingField ErrorCode = "data_missing_required_field"

	// Invariant violations (rejected synchronously, no state change)
	ErrCodeInvariantTerminal     ErrorCode = "invariant_terminal_state"
	ErrCodeInvariantTransition   ErrorCode = "invariant_illegal_transition"
	ErrCodeInvariantCapacity     ErrorCode = "invariant_capacity_exceeded"
	ErrCodeInvariantDuplicate    ErrorCode = "invariant_duplicate_entry"
	ErrCodeInvariantNotFound     ErrorCode = "invariant_entity_not_found"
	ErrCodeInvariantCycleState   ErrorCode = "invariant_cycle_state"
	ErrCodeInvariantOrderLinkage ErrorCode = "invariant_order_linkage"

	// Transient upstream failures (logged and swallowed at the call site)
	ErrCodeUpstreamSheetStore  ErrorCode = "upstream_sheet_store_unavailable"
	ErrCodeUpstreamNotifier    ErrorCode = "upstream_notifier_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"

	// Persistence failures
	ErrCodeStorageRead  ErrorCode = "storage_read_failed"
	ErrCodeStorageWrite ErrorCode = "storage_write_failed"

	// Fatal startup failures (abort initialization)
	ErrCodeStartupConfig  ErrorCode = "startup_config_invalid"
	ErrCodeStartupDataDir ErrorCode = "startup_data_dir_unusable"
)

// AppError is the standard application error type used throughout the core.
// All domain errors should be expressed as AppError to enable consistent
// error categorization and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether the error represents a transient upstream
// failure. Callers treat these as best-effort: log, skip, and rely on the
// next periodic cycle for natural retry.
func (e *AppError) IsTransient() bool {
	switch e.Code {
	case ErrCodeUpstreamSheetStore, ErrCodeUpstreamNotifier, ErrCodeUpstreamRateLimited:
		return true
	}
	return false
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error. This is the standard constructor for domain
// errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode reports whether err is (or wraps) an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsDataIntegrity reports whether err is any of the data-integrity codes.
// The persistence layer uses this to decide whether a collection file should
// be quarantined.
func IsDataIntegrity(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case ErrCodeDataIntegrity, ErrCodeDataUnknownEnum, ErrCodeDataMissingField:
		return true
	}
	return false
}

// IsInvariant reports whether err is any of the invariant-violation codes.
func IsInvariant(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case ErrCodeInvariantTerminal, ErrCodeInvariantTransition,
		ErrCodeInvariantCapacity, ErrCodeInvariantDuplicate,
		ErrCodeInvariantNotFound, ErrCodeInvariantCycleState,
		ErrCodeInvariantOrderLinkage:
		return true
	}
	return false
}
