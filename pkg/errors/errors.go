package errors

import "errors"

var (
	// Not-found outcomes. Reads translate these into absent results; they
	// are only returned where a caller asked for a specific record.
	ErrPathNotFound   = errors.New("path not found")
	ErrReportNotFound = errors.New("report not found")

	// Authorization errors
	ErrUnauthorized = errors.New("authentication required")
	ErrNotPathOwner = errors.New("path is owned by another user")

	// Validation errors
	ErrNameRequired     = errors.New("path name is required")
	ErrEmptyPath        = errors.New("path must contain at least one point")
	ErrTooFewPoints     = errors.New("path must contain at least two points to share")
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Identity provider errors. Distinct from "no identity present": this
	// means the lookup itself failed.
	ErrIdentityProvider = errors.New("identity provider failure")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
	}
}
