package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/internal/interfaces/middleware"
	"github.com/relaycrm/backend/pkg/errors"
)

func TestGetUserFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetUserFromContext(c))

	c.Set(middleware.ContextKeyUser, &models.UserSession{ID: "u1", OrgID: "org1"})
	user := GetUserFromContext(c)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "org1", user.OrgID)
}

func TestRespondAppErrorMapsStatusAndCode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{errors.NewNotFoundError("Lead", "l1"), http.StatusNotFound, "NOT_FOUND"},
		{errors.NewValidationError("name", "required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{errors.NewPermissionError("create", "Workflow"), http.StatusForbidden, "PERMISSION_DENIED"},
		{errors.NewStateTransitionError("Quote", "Draft", "Accepted"), http.StatusConflict, "INVALID_TRANSITION"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/test", nil)

		RespondAppError(c, tc.err)

		assert.Equal(t, tc.wantStatus, w.Code)

		var body map[string]interface{}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.wantCode, body["code"])
		assert.NotEmpty(t, body["message"])
	}
}

func TestQueryInt(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/leads?limit=25&offset=junk", nil)

	assert.Equal(t, 25, QueryInt(c, "limit", 50))
	assert.Equal(t, 0, QueryInt(c, "offset", 0))
	assert.Equal(t, 50, QueryInt(c, "missing", 50))
}
