package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NewNotFound("instrument", nil), http.StatusNotFound},
		{NewValidationField("name", "name is required"), http.StatusBadRequest},
		{NewPermissionDenied("MANAGE_WAREHOUSE"), http.StatusForbidden},
		{NewPreconditionFailed("not backed up"), http.StatusUnprocessableEntity},
		{NewDuplicate("configuration key", "AUTO_INTERVAL"), http.StatusConflict},
		{NewConflict("reagent"), http.StatusConflict},
		{Unauthorized(errors.New("token expired")), http.StatusUnauthorized},
		{NewInternal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.StatusCode(), tc.err.Message)
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	appErr := From(cause)
	assert.Equal(t, ErrInternal, appErr.Code)
	assert.ErrorIs(t, appErr, cause)

	known := NewNotFound("test order", nil)
	assert.Same(t, known, From(known))
}

func TestIsCode(t *testing.T) {
	err := NewDuplicate("configuration key", "AUTO_INTERVAL")
	assert.True(t, IsCode(err, ErrDuplicate))
	assert.False(t, IsCode(err, ErrConflict))
	assert.False(t, IsCode(errors.New("plain"), ErrDuplicate))
	assert.False(t, IsCode(nil, ErrDuplicate))
}

func TestCodeNames(t *testing.T) {
	cases := map[ErrorCode]string{
		ErrNotFound:           "NOT_FOUND",
		ErrValidation:         "VALIDATION",
		ErrPermissionDenied:   "PERMISSION_DENIED",
		ErrPreconditionFailed: "PRECONDITION_FAILED",
		ErrDuplicate:          "DUPLICATE",
		ErrConflict:           "CONFLICT",
		ErrUnauthorized:       "UNAUTHORIZED",
		ErrInternal:           "INTERNAL",
	}
	for code, want := range cases {
		assert.Equal(t, want, code.String())
	}
	assert.Equal(t, "INTERNAL", ErrorCode(0).String(), "unknown codes fall back to internal")
}
