package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroslav/stretchsim/models"
)

func TestMapErrorToResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{models.ErrNotFound, http.StatusNotFound, "not_found"},
		{models.ErrUnknownPort, http.StatusNotFound, "not_found"},
		{models.ErrInvalidAction, http.StatusBadRequest, "invalid_action"},
		{models.ErrInvalidName, http.StatusBadRequest, "invalid_request"},
		{models.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
		{models.ErrInvalidVolumeName, http.StatusBadRequest, "invalid_request"},
		{models.ErrInvalidScenario, http.StatusBadRequest, "invalid_scenario"},
		{models.ErrAlreadyExists, http.StatusConflict, "conflict"},
		{models.ErrPortInUse, http.StatusConflict, "conflict"},
		{models.ErrPodFull, http.StatusConflict, "conflict"},
		{models.ErrNotMember, http.StatusConflict, "conflict"},
		{models.ErrLastMember, http.StatusConflict, "conflict"},
		{models.ErrVolumeInUse, http.StatusConflict, "conflict"},
		{models.ErrRateLimitExceeded, http.StatusTooManyRequests, "rate_limit_exceeded"},
		{models.ErrDatabaseError, http.StatusInternalServerError, "internal_error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Set("request_id", "req-1")

			wrapped := fmt.Errorf("outer: %w", fmt.Errorf("%w: site1fa1", tt.err))
			mapErrorToResponse(c, wrapped)

			assert.Equal(t, tt.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, "req-1", resp.RequestID)
			if tt.status < 500 {
				assert.Contains(t, resp.Message, "site1fa1")
			} else {
				assert.NotContains(t, resp.Message, "site1fa1")
			}
		})
	}
}

func TestRespondSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondSuccess(c, http.StatusOK, map[string]int{"tick": 3})
	assert.JSONEq(t, `{"data":{"tick":3}}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondSuccessWithMessage(c, http.StatusOK, "done")
	assert.JSONEq(t, `{"message":"done"}`, w.Body.String())
}
