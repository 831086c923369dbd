package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/pkg/auth"
)

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/leads", nil)

	RequireAuth()(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	c.Request.Header.Set("Authorization", "Token abc123")

	RequireAuth()(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	token, err := auth.GenerateToken(auth.UserSession{
		ID:      "u1",
		OrgID:   "org1",
		Name:    "Jane",
		Email:   "jane@acme.io",
		Profile: auth.ProfileStandard,
	})
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	c.Request.Header.Set("Authorization", "Bearer "+token)

	RequireAuth()(c)

	assert.False(t, c.IsAborted())

	userInterface, exists := c.Get(ContextKeyUser)
	assert.True(t, exists)
	session := userInterface.(*models.UserSession)
	assert.Equal(t, "u1", session.ID)
	assert.Equal(t, "org1", session.OrgID)
	assert.False(t, session.IsAdmin())
}

func TestRequireOrgAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("denies standard user", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/api/workflows", nil)
		c.Set(ContextKeyUser, &models.UserSession{ID: "u1", Profile: models.ProfileStandard})

		RequireOrgAdmin()(c)

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("allows org admin", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/api/workflows", nil)
		c.Set(ContextKeyUser, &models.UserSession{ID: "u1", Profile: models.ProfileOrgAdmin})

		RequireOrgAdmin()(c)

		assert.False(t, c.IsAborted())
	})
}
