package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type TerritoryHandler struct {
	svcMgr *services.ServiceManager
}

func NewTerritoryHandler(svcMgr *services.ServiceManager) *TerritoryHandler {
	return &TerritoryHandler{svcMgr: svcMgr}
}

// CreateTerritory handles POST /api/territories (admin only)
func (h *TerritoryHandler) CreateTerritory(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		Name     string `json:"name"`
		Rule     string `json:"rule"`
		OwnerID  string `json:"owner_id"`
		Priority int    `json:"priority"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "territory", "Territory created", func() (interface{}, error) {
		return h.svcMgr.Territories.Create(c.Request.Context(), user, services.TerritoryInput{
			Name:     req.Name,
			Rule:     req.Rule,
			OwnerID:  req.OwnerID,
			Priority: req.Priority,
		})
	})
}

// GetTerritories handles GET /api/territories
func (h *TerritoryHandler) GetTerritories(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "territories", func() (interface{}, error) {
		return h.svcMgr.Territories.List(c.Request.Context(), user)
	})
}

// UpdateTerritory handles PUT /api/territories/:id (admin only)
func (h *TerritoryHandler) UpdateTerritory(c *gin.Context) {
	user := GetUserFromContext(c)

	var updates map[string]interface{}
	if !BindJSON(c, &updates) {
		return
	}

	HandleUpdateEnvelope(c, "territory", "Territory updated", func() (interface{}, error) {
		return h.svcMgr.Territories.Update(c.Request.Context(), user, c.Param("id"), updates)
	})
}

// DeleteTerritory handles DELETE /api/territories/:id (admin only)
func (h *TerritoryHandler) DeleteTerritory(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleDeleteEnvelope(c, "Territory deleted", func() error {
		return h.svcMgr.Territories.Delete(c.Request.Context(), user, c.Param("id"))
	})
}
