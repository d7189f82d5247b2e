package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	branchdomain "github.com/shaghafhq/shaghaf/internal/branch/domain"
	clientdomain "github.com/shaghafhq/shaghaf/internal/client/domain"
	employeedomain "github.com/shaghafhq/shaghaf/internal/employee/domain"
	invoicedomain "github.com/shaghafhq/shaghaf/internal/invoice/domain"
	productdomain "github.com/shaghafhq/shaghaf/internal/product/domain"
	roomdomain "github.com/shaghafhq/shaghaf/internal/room/domain"
	sessiondomain "github.com/shaghafhq/shaghaf/internal/session/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

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
		c.Header("Content-Type", "application/json")
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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, branchdomain.ErrInvalidName),
		errors.Is(err, branchdomain.ErrInvalidID),
		errors.Is(err, employeedomain.ErrInvalidBranch),
		errors.Is(err, employeedomain.ErrInvalidName),
		errors.Is(err, employeedomain.ErrInvalidRole),
		errors.Is(err, employeedomain.ErrInvalidID),
		errors.Is(err, clientdomain.ErrInvalidBranch),
		errors.Is(err, clientdomain.ErrInvalidName),
		errors.Is(err, clientdomain.ErrInvalidPhone),
		errors.Is(err, clientdomain.ErrInvalidID),
		errors.Is(err, productdomain.ErrInvalidBranch),
		errors.Is(err, productdomain.ErrInvalidName),
		errors.Is(err, productdomain.ErrInvalidPrice),
		errors.Is(err, productdomain.ErrInvalidStock),
		errors.Is(err, productdomain.ErrInvalidID),
		errors.Is(err, roomdomain.ErrInvalidBranch),
		errors.Is(err, roomdomain.ErrInvalidName),
		errors.Is(err, roomdomain.ErrInvalidCapacity),
		errors.Is(err, roomdomain.ErrInvalidRate),
		errors.Is(err, roomdomain.ErrInvalidRange),
		errors.Is(err, roomdomain.ErrInvalidID),
		errors.Is(err, sessiondomain.ErrInvalidBranch),
		errors.Is(err, sessiondomain.ErrInvalidID),
		errors.Is(err, sessiondomain.ErrNoIndividuals),
		errors.Is(err, sessiondomain.ErrNoClient),
		errors.Is(err, sessiondomain.ErrInvalidQuantity),
		errors.Is(err, sessiondomain.ErrInvalidPrice),
		errors.Is(err, invoicedomain.ErrInvalidKind),
		errors.Is(err, invoicedomain.ErrInvalidAmount),
		errors.Is(err, invoicedomain.ErrInvalidMethod):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, branchdomain.ErrNotFound),
		errors.Is(err, employeedomain.ErrNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, roomdomain.ErrNotFound),
		errors.Is(err, sessiondomain.ErrNotFound),
		errors.Is(err, sessiondomain.ErrIndividualNotFound),
		errors.Is(err, sessiondomain.ErrItemNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, branchdomain.ErrDuplicate),
		errors.Is(err, roomdomain.ErrOverlap),
		errors.Is(err, productdomain.ErrInsufficientStock),
		errors.Is(err, sessiondomain.ErrSessionCompleted),
		errors.Is(err, sessiondomain.ErrFullExitRequired):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, productdomain.ErrInsufficientStock):
		return "insufficient stock"
	case errors.Is(err, sessiondomain.ErrSessionCompleted):
		return "session already completed"
	case errors.Is(err, sessiondomain.ErrFullExitRequired):
		return "use complete for a full exit"
	case errors.Is(err, roomdomain.ErrOverlap):
		return "booking overlaps an existing one"
	default:
		return "conflict"
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == "invalid_request" {
		return "request"
	}
	return ""
}

// classifyErrorForLog buckets handler errors for the request log.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case asValidationErrors(err) != nil, isValidationError(err):
		return "validation_error", err.Error()
	case isConflictError(err):
		return "conflict", err.Error()
	case isNotFoundError(err):
		return "not_found", err.Error()
	default:
		return "internal_error", err.Error()
	}
}
