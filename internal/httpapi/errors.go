package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jpl-au/tagd/internal/resolve"
	"github.com/jpl-au/tagd/internal/store"
	"github.com/jpl-au/tagd/internal/validate"
)

// Error codes returned in the error body.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL_ERROR"
)

// APIError is the body of every failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// status maps a service error to an HTTP status and error code.
func status(err error) (int, string) {
	switch {
	case errors.Is(err, validate.ErrInvalidTag),
		errors.Is(err, validate.ErrTagTooLong),
		errors.Is(err, validate.ErrInvalidTagging):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, store.ErrConstraint), errors.Is(err, resolve.ErrDuplicateTag):
		return http.StatusConflict, CodeConflict
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// fail aborts the request with the error mapped to a status.
func fail(c *gin.Context, err error) {
	code, name := status(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, gin.H{"error": APIError{Code: name, Message: err.Error()}})
}

// badRequest aborts with a validation error for malformed input.
func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": APIError{Code: CodeValidation, Message: msg}})
}
