package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/agent"
	"github.com/relaycrm/backend/internal/application/services"
)

type AgentHandler struct {
	svcMgr *services.ServiceManager
}

func NewAgentHandler(svcMgr *services.ServiceManager) *AgentHandler {
	return &AgentHandler{svcMgr: svcMgr}
}

// GetAgents handles GET /api/agents
func (h *AgentHandler) GetAgents(c *gin.Context) {
	specs := h.svcMgr.Orchestrator.Agents()

	type agentView struct {
		Name          string   `json:"name"`
		Description   string   `json:"description"`
		Enabled       bool     `json:"enabled"`
		Priority      int      `json:"priority"`
		Schedule      string   `json:"schedule,omitempty"`
		EventPatterns []string `json:"event_patterns,omitempty"`
	}

	views := make([]agentView, 0, len(specs))
	for _, s := range specs {
		views = append(views, agentView{
			Name:          s.Name,
			Description:   s.Description,
			Enabled:       s.Enabled,
			Priority:      s.Priority,
			Schedule:      s.Schedule,
			EventPatterns: s.EventPatterns,
		})
	}
	c.JSON(http.StatusOK, gin.H{"agents": views})
}

// TriggerAgent handles POST /api/agents/:name/trigger. User-initiated
// triggers bypass the debounce window.
func (h *AgentHandler) TriggerAgent(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		Reason   string                 `json:"reason"`
		Priority int                    `json:"priority"`
		Payload  map[string]interface{} `json:"payload"`
	}
	if !BindJSON(c, &req) {
		return
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["org_id"] = user.OrgID

	enqueued, err := h.svcMgr.Orchestrator.Trigger(agent.TriggerRequest{
		Agent:         c.Param("name"),
		Reason:        req.Reason,
		Priority:      req.Priority,
		UserInitiated: true,
		Payload:       payload,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Agent triggered", "enqueued": enqueued})
}

// GetAgentStats handles GET /api/agents/stats
func (h *AgentHandler) GetAgentStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pending": h.svcMgr.Orchestrator.PendingCount(),
		"running": h.svcMgr.Orchestrator.RunningCount(),
	})
}
