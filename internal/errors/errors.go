package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"surveystats/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. The code of a wrapped
// AppError or domain error is kept.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    GetCode(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError, the mapped code of a
// domain error, or CodeInternalError.
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	for _, m := range domainCodes {
		if stderrors.Is(err, m.err) {
			return m.code
		}
	}
	return CodeInternalError
}

// FromDomain converts a domain error into an AppError carrying its mapped
// code. AppErrors and nil pass through unchanged.
func FromDomain(err error) error {
	if err == nil || IsAppError(err) {
		return err
	}
	return &AppError{Code: GetCode(err), Message: err.Error(), Cause: err}
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeMissingColumn   = "MISSING_COLUMN"
	CodeNonNumeric      = "NON_NUMERIC_COLUMN"
	CodeInvalidRoles    = "INVALID_ROLES"
	CodeNegativeWeight  = "NEGATIVE_WEIGHT"
	CodeNonPositive     = "NON_POSITIVE_WEIGHT"
	CodeEmptyInput      = "EMPTY_INPUT"
	CodeNonFinite       = "NON_FINITE_VALUE"
	CodeEmptyGroup      = "EMPTY_GROUP"
	CodeInvalidLevel    = "INVALID_LEVEL"
	CodeInvalidMode     = "INVALID_NORMALIZE_MODE"
	CodeZeroNormBase    = "ZERO_NORMALIZATION_BASE"
	CodeUnsupportedFile = "UNSUPPORTED_FILE"
)

var domainCodes = []struct {
	err  error
	code string
}{
	{core.ErrMissingColumn, CodeMissingColumn},
	{core.ErrNonNumericColumn, CodeNonNumeric},
	{core.ErrInvalidRoles, CodeInvalidRoles},
	{core.ErrNegativeWeight, CodeNegativeWeight},
	{core.ErrNonPositiveWeight, CodeNonPositive},
	{core.ErrEmptyInput, CodeEmptyInput},
	{core.ErrNonFiniteValue, CodeNonFinite},
	{core.ErrEmptyGroup, CodeEmptyGroup},
	{core.ErrInvalidLevel, CodeInvalidLevel},
	{core.ErrInvalidNormalizeMode, CodeInvalidMode},
	{core.ErrZeroNormalizationBase, CodeZeroNormBase},
	{core.ErrNotFound, CodeNotFound},
}

// HTTPStatus maps an error code to a response status.
func HTTPStatus(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInternalError, CodeDatabaseError, CodeConfigInvalid:
		return http.StatusInternalServerError
	case CodeEmptyGroup, CodeZeroNormBase:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func UnsupportedFile(path string) *AppError {
	return New(CodeUnsupportedFile, fmt.Sprintf("unsupported file type: %s", path))
}
