package rest

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
	"github.com/relaycrm/backend/pkg/errors"
)

type CampaignHandler struct {
	svcMgr *services.ServiceManager
}

func NewCampaignHandler(svcMgr *services.ServiceManager) *CampaignHandler {
	return &CampaignHandler{svcMgr: svcMgr}
}

// CreateCampaign handles POST /api/campaigns
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		Name      string     `json:"name"`
		Type      string     `json:"type"`
		StartDate *time.Time `json:"start_date"`
		EndDate   *time.Time `json:"end_date"`
		Budget    float64    `json:"budget"`
		Location  string     `json:"location"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "campaign", "Campaign created", func() (interface{}, error) {
		return h.svcMgr.Campaigns.Create(c.Request.Context(), user, services.CampaignInput{
			Name:      req.Name,
			Type:      req.Type,
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			Budget:    req.Budget,
			Location:  req.Location,
		})
	})
}

// GetCampaign handles GET /api/campaigns/:id
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "campaign", func() (interface{}, error) {
		return h.svcMgr.Campaigns.Get(c.Request.Context(), user, c.Param("id"))
	})
}

// GetCampaigns handles GET /api/campaigns
func (h *CampaignHandler) GetCampaigns(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "campaigns", func() (interface{}, error) {
		return h.svcMgr.Campaigns.List(c.Request.Context(), user,
			QueryInt(c, "limit", 50), QueryInt(c, "offset", 0))
	})
}

// UpdateCampaign handles PUT /api/campaigns/:id
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	user := GetUserFromContext(c)

	var updates map[string]interface{}
	if !BindJSON(c, &updates) {
		return
	}

	HandleUpdateEnvelope(c, "campaign", "Campaign updated", func() (interface{}, error) {
		return h.svcMgr.Campaigns.Update(c.Request.Context(), user, c.Param("id"), updates)
	})
}

// AddMember handles POST /api/campaigns/:id/members
func (h *CampaignHandler) AddMember(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		LeadID    *string `json:"lead_id"`
		ContactID *string `json:"contact_id"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "member", "Member added", func() (interface{}, error) {
		return h.svcMgr.Campaigns.AddMember(c.Request.Context(), user, c.Param("id"), services.MemberInput{
			LeadID:    req.LeadID,
			ContactID: req.ContactID,
		})
	})
}

// GetMembers handles GET /api/campaigns/:id/members
func (h *CampaignHandler) GetMembers(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "members", func() (interface{}, error) {
		return h.svcMgr.Campaigns.ListMembers(c.Request.Context(), user,
			c.Param("id"), c.Query("status"))
	})
}

// SendInvites handles POST /api/campaigns/:id/invites
func (h *CampaignHandler) SendInvites(c *gin.Context) {
	user := GetUserFromContext(c)

	sent, err := h.svcMgr.Campaigns.SendInvites(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invites queued", "sent": sent})
}

// IngestReply handles POST /api/campaigns/:id/rsvp. The body is a raw
// text/calendar REPLY, not JSON.
func (h *CampaignHandler) IngestReply(c *gin.Context) {
	user := GetUserFromContext(c)

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		RespondAppError(c, errors.NewValidationError("body", "calendar reply body is required"))
		return
	}

	HandleUpdateEnvelope(c, "member", "RSVP recorded", func() (interface{}, error) {
		return h.svcMgr.Campaigns.IngestReply(c.Request.Context(), user, c.Param("id"), string(raw))
	})
}

// SetMemberStatus handles PUT /api/campaigns/members/:memberId/status
func (h *CampaignHandler) SetMemberStatus(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		Status string `json:"status"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleUpdateEnvelope(c, "member", "Member status updated", func() (interface{}, error) {
		return h.svcMgr.Campaigns.SetMemberStatus(c.Request.Context(), user, c.Param("memberId"), req.Status)
	})
}

// CompleteCampaign handles POST /api/campaigns/:id/complete
func (h *CampaignHandler) CompleteCampaign(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "campaign", "Campaign completed", func() (interface{}, error) {
		return h.svcMgr.Campaigns.Complete(c.Request.Context(), user, c.Param("id"))
	})
}
