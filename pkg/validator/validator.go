package validator

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator"
)

var global *validator.Validate

const (
	ErrInvalidFormat      = "has invalid format"
	ErrFieldRequired      = "is required"
	ErrFieldExceedsMaxLen = "exceeds maximum length"
	ErrFieldBelowMinLen   = "is below minimum length"
	ErrFieldExceedsMaxVal = "exceeds maximum value"
	ErrFieldBelowMinVal   = "is below minimum value"
	ErrInvalidEmail       = "must be a valid e-mail address"
	ErrInvalidRole        = "must be student, teacher or organizer"
	ErrInvalidDate        = "must be a date in YYYY-MM-DD format"
	ErrUnknownValidation  = "is invalid"
)

const dateLayout = "2006-01-02"

// FieldError describes the first failed rule of a validated struct.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return e.Field + " " + e.Msg
}

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("role", validateRole)
	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("date", validateDate)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func validateRole(fl validator.FieldLevel) bool {
	switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
	case "student", "teacher", "organizer":
		return true
	}
	return false
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(dateLayout, fl.Field().String())
	return err == nil
}

// Validate checks structure and returns a *FieldError for the first broken rule.
func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return nil
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required", "notblank":
		msg = ErrFieldRequired
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "lt", "lte":
		msg = ErrFieldExceedsMaxVal
	case "gt", "gte":
		msg = ErrFieldBelowMinVal
	case "email":
		msg = ErrInvalidEmail
	case "role":
		msg = ErrInvalidRole
	case "date":
		msg = ErrInvalidDate
	default:
		msg = ErrUnknownValidation
	}
	return &FieldError{Field: fieldPath(ve.Namespace()), Msg: msg}
}

// fieldPath drops the struct name from a namespace such as "CreateEventRequest.start_date".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
