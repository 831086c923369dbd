package rest

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type OpportunityHandler struct {
	svcMgr *services.ServiceManager
}

func NewOpportunityHandler(svcMgr *services.ServiceManager) *OpportunityHandler {
	return &OpportunityHandler{svcMgr: svcMgr}
}

// CreateOpportunity handles POST /api/opportunities
func (h *OpportunityHandler) CreateOpportunity(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		AccountID string     `json:"account_id"`
		Name      string     `json:"name"`
		Stage     string     `json:"stage"`
		Amount    float64    `json:"amount"`
		CloseDate *time.Time `json:"close_date"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "opportunity", "Opportunity created", func() (interface{}, error) {
		return h.svcMgr.Opportunities.Create(c.Request.Context(), user, services.OpportunityInput{
			AccountID: req.AccountID,
			Name:      req.Name,
			Stage:     req.Stage,
			Amount:    req.Amount,
			CloseDate: req.CloseDate,
		})
	})
}

// GetOpportunity handles GET /api/opportunities/:id
func (h *OpportunityHandler) GetOpportunity(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "opportunity", func() (interface{}, error) {
		return h.svcMgr.Opportunities.Get(c.Request.Context(), user, c.Param("id"))
	})
}

// GetOpportunities handles GET /api/opportunities
func (h *OpportunityHandler) GetOpportunities(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "opportunities", func() (interface{}, error) {
		return h.svcMgr.Opportunities.List(c.Request.Context(), user,
			c.Query("stage"), c.Query("account_id"),
			QueryInt(c, "limit", 50), QueryInt(c, "offset", 0))
	})
}

// UpdateOpportunity handles PUT /api/opportunities/:id
func (h *OpportunityHandler) UpdateOpportunity(c *gin.Context) {
	user := GetUserFromContext(c)

	var updates map[string]interface{}
	if !BindJSON(c, &updates) {
		return
	}

	HandleUpdateEnvelope(c, "opportunity", "Opportunity updated", func() (interface{}, error) {
		return h.svcMgr.Opportunities.Update(c.Request.Context(), user, c.Param("id"), updates)
	})
}

// CloseOpportunity handles POST /api/opportunities/:id/close
func (h *OpportunityHandler) CloseOpportunity(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		Stage string `json:"stage"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleUpdateEnvelope(c, "opportunity", "Opportunity closed", func() (interface{}, error) {
		return h.svcMgr.Opportunities.Close(c.Request.Context(), user, c.Param("id"), req.Stage)
	})
}

// DeleteOpportunity handles DELETE /api/opportunities/:id
func (h *OpportunityHandler) DeleteOpportunity(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleDeleteEnvelope(c, "Opportunity deleted", func() error {
		return h.svcMgr.Opportunities.Delete(c.Request.Context(), user, c.Param("id"))
	})
}

// GetOpportunityQuotes handles GET /api/opportunities/:id/quotes
func (h *OpportunityHandler) GetOpportunityQuotes(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "quotes", func() (interface{}, error) {
		return h.svcMgr.Quotes.ListByOpportunity(c.Request.Context(), user, c.Param("id"))
	})
}
