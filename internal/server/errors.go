package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	calceventdomain "github.com/planhaus/planhaus/internal/calcevent/domain"
	computedomain "github.com/planhaus/planhaus/internal/compute/domain"
	exportdomain "github.com/planhaus/planhaus/internal/export/domain"
	offerdomain "github.com/planhaus/planhaus/internal/offer/domain"
	offerfiledomain "github.com/planhaus/planhaus/internal/offerfile/domain"
	offerstepdomain "github.com/planhaus/planhaus/internal/offerstep/domain"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware converts errors recorded on the context into a
// uniform JSON error body once the handler chain finishes.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isBadRequestError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isUnauthorizedError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, tenantdomain.ErrUnauthorized)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, offerdomain.ErrNotFound),
		errors.Is(err, tenantdomain.ErrOfferNotFound),
		errors.Is(err, computedomain.ErrRunNotFound),
		errors.Is(err, calceventdomain.ErrRunNotFound),
		errors.Is(err, exportdomain.ErrNoPdf),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isBadRequestError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, offerdomain.ErrInvalidID),
		errors.Is(err, offerdomain.ErrInvalidCursor),
		errors.Is(err, offerstepdomain.ErrInvalidStepKey),
		errors.Is(err, offerfiledomain.ErrInvalidFilename),
		errors.Is(err, offerfiledomain.ErrInvalidStoragePath),
		errors.Is(err, exportdomain.ErrSignFailed):
		return true
	default:
		return false
	}
}
