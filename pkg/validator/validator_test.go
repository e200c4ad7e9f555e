package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Login string `json:"login" validate:"required,notblank,min=3"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,role"`
}

type schedule struct {
	StartDate string  `json:"start_date" validate:"required,date"`
	Capacity  *int    `json:"capacity" validate:"required,gte=0"`
	IDs       []int64 `json:"ids" validate:"omitempty,dive,gt=0"`
}

func intptr(i int) *int { return &i }

func fieldErr(t *testing.T, err error) *FieldError {
	t.Helper()
	var fe *FieldError
	require.True(t, errors.As(err, &fe), "expected *FieldError, got %v", err)
	return fe
}

func TestValidateAcceptsValidInput(t *testing.T) {
	err := Validate(context.Background(), signup{Login: "ana", Email: "ana@uni.br", Role: "Teacher"})
	assert.NoError(t, err)

	err = Validate(context.Background(), schedule{StartDate: "2026-11-02", Capacity: intptr(0)})
	assert.NoError(t, err)
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	fe := fieldErr(t, Validate(context.Background(), signup{Login: "ana", Email: "nope", Role: "student"}))
	assert.Equal(t, "email", fe.Field)
	assert.Equal(t, ErrInvalidEmail, fe.Msg)

	fe = fieldErr(t, Validate(context.Background(), signup{Login: "   ", Email: "a@b.c", Role: "student"}))
	assert.Equal(t, "login", fe.Field)
	assert.Equal(t, ErrFieldRequired, fe.Msg)

	fe = fieldErr(t, Validate(context.Background(), signup{Login: "ana", Email: "a@b.c", Role: "admin"}))
	assert.Equal(t, "role", fe.Field)
	assert.Equal(t, ErrInvalidRole, fe.Msg)
}

func TestValidateDatesAndNumbers(t *testing.T) {
	fe := fieldErr(t, Validate(context.Background(), schedule{StartDate: "02/11/2026", Capacity: intptr(1)}))
	assert.Equal(t, "start_date", fe.Field)
	assert.Equal(t, ErrInvalidDate, fe.Msg)

	fe = fieldErr(t, Validate(context.Background(), schedule{StartDate: "2026-11-02"}))
	assert.Equal(t, "capacity", fe.Field)
	assert.Equal(t, ErrFieldRequired, fe.Msg)

	fe = fieldErr(t, Validate(context.Background(), schedule{StartDate: "2026-11-02", Capacity: intptr(-1)}))
	assert.Equal(t, ErrFieldBelowMinVal, fe.Msg)
}
