package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

func performRequest(t *testing.T, fail error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/things", func(c *gin.Context) {
		c.Error(fail)
	})

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/things", nil)
	require.NoError(t, err)
	r.ServeHTTP(w, req)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

// The error field carries the symbolic code name, never a rune cast of the
// numeric code; clients branch on it without string-parsing the message.
func TestErrorHandlerRendersSymbolicCode(t *testing.T) {
	w, body := performRequest(t, apperrors.NewValidationField("name", "name is required"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION", body.Error)
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Equal(t, "name is required", body.Fields["name"])
}

func TestErrorHandlerCodePerTaxonomy(t *testing.T) {
	cases := []struct {
		fail       error
		wantStatus int
		wantError  string
	}{
		{apperrors.NewNotFound("instrument", nil), http.StatusNotFound, "NOT_FOUND"},
		{apperrors.NewPermissionDenied("MANAGE_WAREHOUSE"), http.StatusForbidden, "PERMISSION_DENIED"},
		{apperrors.NewPreconditionFailed("not backed up"), http.StatusUnprocessableEntity, "PRECONDITION_FAILED"},
		{apperrors.NewDuplicate("serial number", "HA-1"), http.StatusConflict, "DUPLICATE"},
		{apperrors.NewConflict("reagent"), http.StatusConflict, "CONFLICT"},
	}
	for _, tc := range cases {
		w, body := performRequest(t, tc.fail)
		assert.Equal(t, tc.wantStatus, w.Code)
		assert.Equal(t, tc.wantError, body.Error)
	}
}

func TestErrorHandlerMasksInternalMessages(t *testing.T) {
	w, body := performRequest(t, errors.New("dial tcp: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", body.Error)
	assert.Equal(t, "internal error", body.Message)
}
