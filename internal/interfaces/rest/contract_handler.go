package rest

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type ContractHandler struct {
	svcMgr *services.ServiceManager
}

func NewContractHandler(svcMgr *services.ServiceManager) *ContractHandler {
	return &ContractHandler{svcMgr: svcMgr}
}

// CreateContract handles POST /api/contracts
func (h *ContractHandler) CreateContract(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		AccountID  string     `json:"account_id"`
		QuoteID    *string    `json:"quote_id"`
		Name       string     `json:"name"`
		Value      float64    `json:"value"`
		TermMonths int        `json:"term_months"`
		StartDate  *time.Time `json:"start_date"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "contract", "Contract created", func() (interface{}, error) {
		return h.svcMgr.Contracts.Create(c.Request.Context(), user, services.ContractInput{
			AccountID:  req.AccountID,
			QuoteID:    req.QuoteID,
			Name:       req.Name,
			Value:      req.Value,
			TermMonths: req.TermMonths,
			StartDate:  req.StartDate,
		})
	})
}

// GetContract handles GET /api/contracts/:id
func (h *ContractHandler) GetContract(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "contract", func() (interface{}, error) {
		return h.svcMgr.Contracts.Get(c.Request.Context(), user, c.Param("id"))
	})
}

// GetContracts handles GET /api/contracts
func (h *ContractHandler) GetContracts(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "contracts", func() (interface{}, error) {
		return h.svcMgr.Contracts.List(c.Request.Context(), user,
			c.Query("status"), c.Query("account_id"),
			QueryInt(c, "limit", 50), QueryInt(c, "offset", 0))
	})
}

// SubmitContract handles POST /api/contracts/:id/submit
func (h *ContractHandler) SubmitContract(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "contract", "Contract submitted", func() (interface{}, error) {
		return h.svcMgr.Contracts.Submit(c.Request.Context(), user, c.Param("id"))
	})
}

// SendContract handles POST /api/contracts/:id/send
func (h *ContractHandler) SendContract(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "contract", "Contract sent", func() (interface{}, error) {
		return h.svcMgr.Contracts.Send(c.Request.Context(), user, c.Param("id"))
	})
}

// SignContract handles POST /api/contracts/:id/sign
func (h *ContractHandler) SignContract(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "contract", "Contract signed", func() (interface{}, error) {
		return h.svcMgr.Contracts.MarkSigned(c.Request.Context(), user, c.Param("id"))
	})
}

// ActivateContract handles POST /api/contracts/:id/activate
func (h *ContractHandler) ActivateContract(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "contract", "Contract activated", func() (interface{}, error) {
		return h.svcMgr.Contracts.Activate(c.Request.Context(), user, c.Param("id"))
	})
}

// TerminateContract handles POST /api/contracts/:id/terminate
func (h *ContractHandler) TerminateContract(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "contract", "Contract terminated", func() (interface{}, error) {
		return h.svcMgr.Contracts.Terminate(c.Request.Context(), user, c.Param("id"))
	})
}
