package dto

import (
	"errors"
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"

	"sgea/internal/model"
	"sgea/internal/repo"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	Unauthorized   = "UNAUTHORIZED"
	Forbidden      = "FORBIDDEN"
	NotFound       = "NOT_FOUND"
	Conflict       = "CONFLICT"
	EventFull      = "EVENT_FULL"
	NotImplemented = "NOT_IMPLEMENTED"

	EventNotFound         = "EVENT_NOT_FOUND"
	RegistrationNotFound  = "REGISTRATION_NOT_FOUND"
	RegistrationDuplicate = "REGISTRATION_DUPLICATE"
)

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code  string `json:"code"`
	Desc  string `json:"desc"`
	Field string `json:"field,omitempty"`
}

// CertificateIssueMessage is the queue payload asking the worker to complete a certificate.
type CertificateIssueMessage struct {
	CertificateID  int64     `json:"certificate_id"`
	RegistrationID int64     `json:"registration_id"`
	EventID        int64     `json:"event_id"`
	QueuedAt       time.Time `json:"queued_at"`
}

func errorResponse(c *ginext.Context, status int, code, desc string) {
	c.AbortWithStatusJSON(status, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func BadResponseError(c *ginext.Context, code, desc string) {
	errorResponse(c, http.StatusBadRequest, code, desc)
}

func InternalServerError(c *ginext.Context) {
	errorResponse(c, http.StatusInternalServerError, ServiceUnavailable, InternalError)
}

func FieldBadFormatError(c *ginext.Context, fieldName, desc string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Status: "error",
		Error: &Error{
			Code:  FieldBadFormat,
			Desc:  "Field '" + fieldName + "' " + desc,
			Field: fieldName,
		},
	})
}

func FieldIncorrectError(c *ginext.Context, fieldName, desc string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Status: "error",
		Error: &Error{
			Code:  FieldIncorrect,
			Desc:  "Field '" + fieldName + "' " + desc,
			Field: fieldName,
		},
	})
}

func UnauthorizedError(c *ginext.Context, desc string) {
	errorResponse(c, http.StatusUnauthorized, Unauthorized, desc)
}

func ForbiddenError(c *ginext.Context, desc string) {
	errorResponse(c, http.StatusForbidden, Forbidden, desc)
}

func NotImplementedError(c *ginext.Context, desc string) {
	errorResponse(c, http.StatusNotImplemented, NotImplemented, desc)
}

func EventNotFoundError(c *ginext.Context) {
	errorResponse(c, http.StatusNotFound, EventNotFound, "Event not found")
}

func RegistrationNotFoundError(c *ginext.Context) {
	errorResponse(c, http.StatusNotFound, RegistrationNotFound, "Registration not found")
}

func RegistrationDuplicateError(c *ginext.Context) {
	errorResponse(c, http.StatusConflict, RegistrationDuplicate, "You have already registered for this event")
}

// ErrorFrom writes the response matching err's class. It reports false for errors
// without a class so the caller can log them before answering 500.
func ErrorFrom(c *ginext.Context, err error) bool {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		FieldIncorrectError(c, verr.Field, verr.Msg)
	case errors.Is(err, repo.ErrEventNotFound):
		EventNotFoundError(c)
	case errors.Is(err, repo.ErrRegistrationNotFound):
		RegistrationNotFoundError(c)
	case errors.Is(err, model.ErrNotFound):
		errorResponse(c, http.StatusNotFound, NotFound, err.Error())
	case errors.Is(err, repo.ErrDuplicateRegistration):
		RegistrationDuplicateError(c)
	case errors.Is(err, model.ErrCapacity):
		errorResponse(c, http.StatusConflict, EventFull, "Event is full")
	case errors.Is(err, model.ErrConflict):
		errorResponse(c, http.StatusConflict, Conflict, err.Error())
	case errors.Is(err, model.ErrPermission):
		ForbiddenError(c, err.Error())
	default:
		return false
	}
	return true
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Status: "ok",
		Data:   data,
	})
}
