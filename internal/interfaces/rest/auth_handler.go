package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type AuthHandler struct {
	svcMgr *services.ServiceManager
}

func NewAuthHandler(svcMgr *services.ServiceManager) *AuthHandler {
	return &AuthHandler{svcMgr: svcMgr}
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		OrgName   string `json:"org_name"`
		OrgDomain string `json:"org_domain"`
		AdminName string `json:"admin_name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "user", "Organization created", func() (interface{}, error) {
		return h.svcMgr.Auth.Signup(c.Request.Context(), services.SignupInput{
			OrgName:   req.OrgName,
			OrgDomain: req.OrgDomain,
			AdminName: req.AdminName,
			Email:     req.Email,
			Password:  req.Password,
		})
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.svcMgr.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      result.Token,
		"user":       result.User,
		"expires_at": result.ExpiresAt,
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so logout is
// a client-side discard; the endpoint exists for API symmetry.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GetMe handles GET /api/auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	user := GetUserFromContext(c)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !BindJSON(c, &req) {
		return
	}

	if err := h.svcMgr.Auth.ChangePassword(c.Request.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}

// CreateUser handles POST /api/auth/users (admin only)
func (h *AuthHandler) CreateUser(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		Name      string  `json:"name"`
		Email     string  `json:"email"`
		Password  string  `json:"password"`
		Profile   string  `json:"profile"`
		ManagerID *string `json:"manager_id"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "user", "User created", func() (interface{}, error) {
		return h.svcMgr.Auth.CreateUser(c.Request.Context(), user, services.CreateUserInput{
			Name:      req.Name,
			Email:     req.Email,
			Password:  req.Password,
			Profile:   req.Profile,
			ManagerID: req.ManagerID,
		})
	})
}

// GetUsers handles GET /api/auth/users
func (h *AuthHandler) GetUsers(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "users", func() (interface{}, error) {
		return h.svcMgr.Auth.ListUsers(c.Request.Context(), user)
	})
}

// GetUser handles GET /api/auth/users/:id
func (h *AuthHandler) GetUser(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "user", func() (interface{}, error) {
		return h.svcMgr.Auth.GetUser(c.Request.Context(), user, c.Param("id"))
	})
}
