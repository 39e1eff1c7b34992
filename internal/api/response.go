package api

import (
	"errors"
	"net/http"

	apperrors "github.com/richyrich98/dotanddot/pkg/errors"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func SuccessResponse(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

func ErrorResponse(message, code string) Response {
	return Response{
		Success: false,
		Error: &ErrorData{
			Message: message,
			Code:    code,
		},
	}
}

// statusForError maps service errors onto the wire taxonomy. Anything not
// recognized is a storage failure: the one kind of error the stores
// propagate unwrapped sentinels for is "the round-trip itself broke".
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrPathNotFound),
		errors.Is(err, apperrors.ErrReportNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, apperrors.ErrNotPathOwner):
		return http.StatusForbidden, "UNAUTHORIZED"
	case errors.Is(err, apperrors.ErrNameRequired),
		errors.Is(err, apperrors.ErrEmptyPath),
		errors.Is(err, apperrors.ErrTooFewPoints),
		errors.Is(err, apperrors.ErrInvalidLatitude),
		errors.Is(err, apperrors.ErrInvalidLongitude):
		return http.StatusBadRequest, "VALIDATION_FAILURE"
	case errors.Is(err, apperrors.ErrIdentityProvider):
		return http.StatusBadGateway, "IDENTITY_PROVIDER_FAILURE"
	default:
		return http.StatusInternalServerError, "STORAGE_FAILURE"
	}
}
