package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type LeadHandler struct {
	svcMgr *services.ServiceManager
}

func NewLeadHandler(svcMgr *services.ServiceManager) *LeadHandler {
	return &LeadHandler{svcMgr: svcMgr}
}

type leadRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Website   string `json:"website"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	Industry  string `json:"industry"`
	Employees int    `json:"employees"`
	Notes     string `json:"notes"`
}

// CreateLead handles POST /api/leads
func (h *LeadHandler) CreateLead(c *gin.Context) {
	user := GetUserFromContext(c)

	var req leadRequest
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "lead", "Lead created", func() (interface{}, error) {
		return h.svcMgr.Leads.Create(c.Request.Context(), user, services.LeadInput{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Company:   req.Company,
			Email:     req.Email,
			Phone:     req.Phone,
			Website:   req.Website,
			Title:     req.Title,
			Source:    req.Source,
			Industry:  req.Industry,
			Employees: req.Employees,
			Notes:     req.Notes,
		})
	})
}

// GetLead handles GET /api/leads/:id
func (h *LeadHandler) GetLead(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "lead", func() (interface{}, error) {
		return h.svcMgr.Leads.Get(c.Request.Context(), user, c.Param("id"))
	})
}

// GetLeads handles GET /api/leads
func (h *LeadHandler) GetLeads(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "leads", func() (interface{}, error) {
		return h.svcMgr.Leads.List(c.Request.Context(), user,
			c.Query("status"), QueryInt(c, "limit", 50), QueryInt(c, "offset", 0))
	})
}

// UpdateLead handles PUT /api/leads/:id
func (h *LeadHandler) UpdateLead(c *gin.Context) {
	user := GetUserFromContext(c)

	var updates map[string]interface{}
	if !BindJSON(c, &updates) {
		return
	}

	HandleUpdateEnvelope(c, "lead", "Lead updated", func() (interface{}, error) {
		return h.svcMgr.Leads.Update(c.Request.Context(), user, c.Param("id"), updates)
	})
}

// DeleteLead handles DELETE /api/leads/:id
func (h *LeadHandler) DeleteLead(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleDeleteEnvelope(c, "Lead deleted", func() error {
		return h.svcMgr.Leads.Delete(c.Request.Context(), user, c.Param("id"))
	})
}

// ConvertLead handles POST /api/leads/:id/convert
func (h *LeadHandler) ConvertLead(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		CreateOpportunity bool    `json:"create_opportunity"`
		OpportunityName   string  `json:"opportunity_name"`
		Amount            float64 `json:"amount"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleUpdateEnvelope(c, "result", "Lead converted", func() (interface{}, error) {
		return h.svcMgr.Leads.Convert(c.Request.Context(), user, c.Param("id"), services.ConvertInput{
			CreateOpportunity: req.CreateOpportunity,
			OpportunityName:   req.OpportunityName,
			Amount:            req.Amount,
		})
	})
}
