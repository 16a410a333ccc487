package errprocess

import (
	"errors"
	"net/http"

	"elearning_video_service/pkg/logger"
)

// ApiError carries an HTTP status together with the error message so the
// handler layer can map failures without string matching.
type ApiError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *ApiError) Error() string {
	return e.Message
}

// BadRequest 400, malformed input (missing file, unsupported mime type)
func BadRequest(msg string) *ApiError {
	return &ApiError{StatusCode: http.StatusBadRequest, Name: "BadRequestError", Message: msg}
}

// Unauthorized 401, missing or invalid credentials
func Unauthorized(msg string) *ApiError {
	return &ApiError{StatusCode: http.StatusUnauthorized, Name: "UnauthorizedError", Message: msg}
}

// Forbidden 403, caller lacks ownership of the target resource
func Forbidden(msg string) *ApiError {
	return &ApiError{StatusCode: http.StatusForbidden, Name: "ForbiddenError", Message: msg}
}

// NotFound 404, missing or deliberately hidden resource
func NotFound(msg string) *ApiError {
	return &ApiError{StatusCode: http.StatusNotFound, Name: "NotFoundError", Message: msg}
}

// Conflict 409, duplicate unique constraint
func Conflict(msg string) *ApiError {
	return &ApiError{StatusCode: http.StatusConflict, Name: "ConflictError", Message: msg}
}

// QueueUnavailable 503, the broker could not accept work. The upload that
// triggered the enqueue must not be rolled back because of this.
func QueueUnavailable(msg string) *ApiError {
	return &ApiError{StatusCode: http.StatusServiceUnavailable, Name: "QueueUnavailableError", Message: msg}
}

// AsApiError unwraps err into an *ApiError if it is one
func AsApiError(err error) (*ApiError, bool) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
