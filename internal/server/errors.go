package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	attachmentdomain "github.com/lingkodlabs/lingkod/internal/attachment/domain"
	"github.com/lingkodlabs/lingkod/internal/authorization"
	certdomain "github.com/lingkodlabs/lingkod/internal/certificate/domain"
	certtemplatedomain "github.com/lingkodlabs/lingkod/internal/certtemplate/domain"
	"github.com/lingkodlabs/lingkod/internal/converter"
	doctypedomain "github.com/lingkodlabs/lingkod/internal/doctype/domain"
	officialdomain "github.com/lingkodlabs/lingkod/internal/official/domain"
	residentdomain "github.com/lingkodlabs/lingkod/internal/resident/domain"
	sequencedomain "github.com/lingkodlabs/lingkod/internal/sequence/domain"
	"gorm.io/gorm"
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
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
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
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, residentdomain.ErrNotVerified):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, certdomain.ErrInvalidTransition),
		errors.Is(err, certdomain.ErrDuplicateControlNumber),
		errors.Is(err, certdomain.ErrAttachmentRequired):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, sequencedomain.ErrAllocationFailed),
		errors.Is(err, converter.ErrNotReady),
		errors.Is(err, converter.ErrDaemonFailed):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, certdomain.ErrInvalidTransition):
		return "invalid status transition"
	case errors.Is(err, certdomain.ErrDuplicateControlNumber):
		return "duplicate control number"
	case errors.Is(err, certdomain.ErrAttachmentRequired):
		return "generated certificate required before release"
	default:
		return "conflict"
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
		errors.Is(err, certdomain.ErrInvalidPurpose),
		errors.Is(err, certdomain.ErrInvalidQuantity),
		errors.Is(err, certdomain.ErrReasonRequired),
		errors.Is(err, certdomain.ErrUnknownStatus),
		errors.Is(err, certtemplatedomain.ErrInvalidRequest),
		errors.Is(err, attachmentdomain.ErrInvalidSave):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, certdomain.ErrNotFound),
		errors.Is(err, residentdomain.ErrNotFound),
		errors.Is(err, doctypedomain.ErrNotFound),
		errors.Is(err, officialdomain.ErrNotFound),
		errors.Is(err, certtemplatedomain.ErrNotFound),
		errors.Is(err, attachmentdomain.ErrNotFound),
		errors.Is(err, attachmentdomain.ErrFileMissing),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, certdomain.ErrInvalidPurpose):
		return "invalid_purpose"
	case errors.Is(err, certdomain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, certdomain.ErrReasonRequired):
		return "reason_required"
	case errors.Is(err, certdomain.ErrUnknownStatus):
		return "unknown_status"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "reason_required":
		return "denied_reason"
	case "unknown_status":
		return "status"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "reason_required":
		return "denied reason is required"
	default:
		return "invalid value"
	}
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status >= http.StatusBadRequest:
		return "client_error", payload.Type
	default:
		return "", payload.Type
	}
}
