package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type AccountHandler struct {
	svcMgr *services.ServiceManager
}

func NewAccountHandler(svcMgr *services.ServiceManager) *AccountHandler {
	return &AccountHandler{svcMgr: svcMgr}
}

// CreateAccount handles POST /api/accounts
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		Name           string  `json:"name"`
		Domain         string  `json:"domain"`
		Industry       string  `json:"industry"`
		Employees      int     `json:"employees"`
		AnnualRevenue  float64 `json:"annual_revenue"`
		BillingCountry string  `json:"billing_country"`
		BillingState   string  `json:"billing_state"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "account", "Account created", func() (interface{}, error) {
		return h.svcMgr.Accounts.Create(c.Request.Context(), user, services.AccountInput{
			Name:           req.Name,
			Domain:         req.Domain,
			Industry:       req.Industry,
			Employees:      req.Employees,
			AnnualRevenue:  req.AnnualRevenue,
			BillingCountry: req.BillingCountry,
			BillingState:   req.BillingState,
		})
	})
}

// GetAccount handles GET /api/accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "account", func() (interface{}, error) {
		return h.svcMgr.Accounts.Get(c.Request.Context(), user, c.Param("id"))
	})
}

// GetAccounts handles GET /api/accounts
func (h *AccountHandler) GetAccounts(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "accounts", func() (interface{}, error) {
		return h.svcMgr.Accounts.List(c.Request.Context(), user,
			QueryInt(c, "limit", 50), QueryInt(c, "offset", 0))
	})
}

// UpdateAccount handles PUT /api/accounts/:id
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	user := GetUserFromContext(c)

	var updates map[string]interface{}
	if !BindJSON(c, &updates) {
		return
	}

	HandleUpdateEnvelope(c, "account", "Account updated", func() (interface{}, error) {
		return h.svcMgr.Accounts.Update(c.Request.Context(), user, c.Param("id"), updates)
	})
}

// DeleteAccount handles DELETE /api/accounts/:id
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleDeleteEnvelope(c, "Account deleted", func() error {
		return h.svcMgr.Accounts.Delete(c.Request.Context(), user, c.Param("id"))
	})
}
